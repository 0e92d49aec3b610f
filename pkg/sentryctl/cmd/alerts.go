package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newAlertsCommand(rt *runtimeState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and acknowledge security alerts",
	}
	cmd.AddCommand(
		newAlertsListCommand(rt),
		newAlertsAckCommand(rt),
		newAlertsStatsCommand(rt),
	)
	return cmd
}

func newAlertsListCommand(rt *runtimeState) *cobra.Command {
	var (
		page        int
		size        int
		unackedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := rt.buildClient()
			if err != nil {
				return err
			}
			result, err := api.ListAlerts(cmd.Context(), page, size, unackedOnly)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(rt.writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCAMERA\tTYPE\tTIME\tACKED\tMESSAGE")
			for _, a := range result.Items {
				ts := time.UnixMilli(a.Timestamp).Format(time.RFC3339)
				acked := "-"
				if a.Acknowledged {
					acked = a.AcknowledgedBy
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.CameraID, a.AlertType, ts, acked, a.Message)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			rt.printf("Page %d of %d alerts total\n", result.Page, result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().BoolVar(&unackedOnly, "unacknowledged", false, "Only unacknowledged alerts")
	return cmd
}

func newAlertsAckCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid alert ID %q", args[0])
			}

			api, err := rt.buildClient()
			if err != nil {
				return err
			}
			a, err := api.AcknowledgeAlert(cmd.Context(), uint(id))
			if err != nil {
				return err
			}
			rt.printf("Alert %d acknowledged by %s\n", a.ID, a.AcknowledgedBy)
			return nil
		},
	}
}

func newAlertsStatsCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show alert counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := rt.buildClient()
			if err != nil {
				return err
			}
			stats, err := api.GetAlertStats(cmd.Context())
			if err != nil {
				return err
			}
			rt.printf("Total:          %d\n", stats.Total)
			rt.printf("Unacknowledged: %d\n", stats.Unacknowledged)
			return nil
		},
	}
}
