package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/cli"
)

func loginCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend",
		Long: `Log in with a username and password. The session is saved locally and
used by every other command until it expires or you log out.

The password is read from --password, the SCHOOLCTL_PASSWORD environment
variable, or prompted for.`,
		Args: cobra.NoArgs,
		RunE: e.runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "username")
	cmd.Flags().StringP("password", "p", "", "password")

	return cmd
}

func (e *env) runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	prompter := cli.NewPrompter(e.stdin, out)

	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = e.v.GetString("password")
	}

	var err error
	if username == "" {
		if username, err = prompter.Ask(ctx, "Username"); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = prompter.AskSecret(ctx, "Password"); err != nil {
			return err
		}
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}

	b, err := e.openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	user, err := b.guard.Login(ctx, username, password)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Logged in as %s (user #%d, %s)", username, user.ID, user.Type)))
	return nil
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := e.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.guard.Logout(ctx); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged out"))
			return nil
		},
	}
}

func whoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := e.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.restore(ctx); err != nil {
				return err
			}
			user, _ := b.guard.User()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Username:  %s\n", b.guard.Username())
			fmt.Fprintf(out, "User ID:   %d\n", user.ID)
			fmt.Fprintf(out, "Role:      %s\n", user.Type)
			fmt.Fprintf(out, "Server:    %s\n", b.settings.API.BaseURL)
			if exp := b.guard.Expiry(); !exp.IsZero() {
				fmt.Fprintf(out, "Expires:   %s\n", exp.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}
