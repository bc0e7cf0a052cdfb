package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-timetrack-client/gateway"
	apperrors "github.com/jrsteele09/go-timetrack-client/internal/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if email == "" {
				fmt.Fprint(out, "Email: ")
				line, err := in.ReadString('\n')
				if err != nil && err != io.EOF {
					return err
				}
				email = strings.TrimSpace(line)
			}
			password, err := readPassword(cmd, in)
			if err != nil {
				return err
			}

			result, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %s", userMessage(err))
			}
			fmt.Fprintf(out, "Logged in as %s\n", result.Email)
			if result.ProfileErr != nil {
				fmt.Fprintf(out, "Profile unavailable: %s\n", userMessage(result.ProfileErr))
			} else if result.Role != "" {
				fmt.Fprintf(out, "Role: %s\n", result.Role)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.auth.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Validate the stored session and show the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ok, err := a.auth.Restore(cmd.Context())
			if err != nil {
				return fmt.Errorf("could not verify session: %s", userMessage(err))
			}
			if !ok {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			current, _ := a.store.Current()
			fmt.Fprintf(out, "Email:   %s\n", current.Email)
			fmt.Fprintf(out, "User ID: %s\n", current.UserID)
			fmt.Fprintf(out, "Role:    %s\n", current.Role)
			return nil
		},
	}
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise, so passwords can be piped in.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// userMessage prefers the server's message over the wrapped error text.
func userMessage(err error) string {
	var gwErr *gateway.Error
	if apperrors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return err.Error()
}
