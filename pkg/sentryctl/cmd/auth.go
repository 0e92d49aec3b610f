package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/sentry-vision/management-server/pkg/sentryctl/client"
)

func newLoginCommand(rt *runtimeState) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session token in the OS keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				fmt.Fprint(os.Stderr, "Username: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}

			fmt.Fprint(os.Stderr, "Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			api, err := client.New(rt.server)
			if err != nil {
				return err
			}
			resp, err := api.Login(cmd.Context(), username, string(raw))
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			if err := keyring.Set(keyringService, rt.server, resp.Token); err != nil {
				return fmt.Errorf("storing token in keyring: %w", err)
			}
			rt.printf("Logged in to %s as %s (%s)\n", rt.server, resp.Username, resp.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when omitted)")
	return cmd
}

func newLogoutCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		RunE: func(*cobra.Command, []string) error {
			if err := keyring.Delete(keyringService, rt.server); err != nil {
				return fmt.Errorf("removing token from keyring: %w", err)
			}
			rt.printf("Logged out of %s\n", rt.server)
			return nil
		},
	}
}
