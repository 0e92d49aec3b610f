package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCamerasCommand(rt *runtimeState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cameras",
		Short: "Inspect the camera registry",
	}
	cmd.AddCommand(newCamerasListCommand(rt))
	return cmd
}

func newCamerasListCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered cameras",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := rt.buildClient()
			if err != nil {
				return err
			}
			cameras, err := api.ListCameras(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(rt.writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tLOCATION\tSTATUS\tSTREAM")
			for _, c := range cameras {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					c.ID, c.Name, c.Location, c.Status, c.StreamURL)
			}
			return w.Flush()
		},
	}
}
