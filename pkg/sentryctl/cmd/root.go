// Package cmd implements the sentryctl command tree.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/sentry-vision/management-server/pkg/sentryctl/client"
)

// keyringService namespaces stored tokens in the OS credential store.
const keyringService = "sentryctl"

type runtimeState struct {
	server        string
	tokenOverride string
	writer        io.Writer
}

func NewRootCommand() *cobra.Command {
	rt := &runtimeState{writer: os.Stdout}

	root := &cobra.Command{
		Use:           "sentryctl",
		Short:         "CLI for the Sentry Vision management server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if rt.server == "" {
				rt.server = os.Getenv("SENTRYCTL_SERVER")
			}
			if rt.server == "" {
				rt.server = "http://localhost:8080"
			}
			if rt.tokenOverride == "" {
				rt.tokenOverride = os.Getenv("SENTRYCTL_TOKEN")
			}
		},
	}

	root.PersistentFlags().StringVarP(&rt.server, "server", "s", "", "Management server URL")
	root.PersistentFlags().StringVar(&rt.tokenOverride, "token", "", "Bearer token override (bypass keyring)")

	root.AddCommand(
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newAlertsCommand(rt),
		newCamerasCommand(rt),
		newVersionCommand(rt),
	)

	return root
}

// buildClient constructs an authenticated API client from the flag,
// environment, or keyring token, in that order.
func (rt *runtimeState) buildClient() (*client.Client, error) {
	token := rt.tokenOverride
	if token == "" {
		stored, err := keyring.Get(keyringService, rt.server)
		if err == nil {
			token = stored
		}
	}
	if token == "" {
		return nil, fmt.Errorf("not logged in to %s: run 'sentryctl login' first", rt.server)
	}
	return client.New(rt.server, client.WithToken(token))
}

func (rt *runtimeState) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(rt.writer, format, args...)
}
