package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sentry-vision/management-server/pkg/version"
)

func newVersionCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			rt.printf("%s\n", version.GetBuildInfo())
		},
	}
}
