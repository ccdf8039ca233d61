package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/progression"
	"github.com/Veraticus/schoolctl/internal/tui"
	"github.com/Veraticus/schoolctl/internal/tui/themes"
)

func consoleCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Open the interactive console",
		Long: `Open the full-screen console. A saved login is reused; otherwise the
console starts at the login form. Logs go to logging.file while the
console is open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := e.settings

			closeLog, err := redirectLogs(s.Logging.File, s.Logging.Level, s.Logging.Format)
			if err != nil {
				return err
			}
			defer closeLog()

			b, err := e.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			opts := []tui.Option{
				tui.WithTheme(themes.GetTheme(s.UI.Theme)),
				tui.WithAuth(b.guard),
				tui.WithConnector(b.connect),
			}
			if dir, err := os.Getwd(); err == nil {
				opts = append(opts, tui.WithExportDir(dir))
			}
			if record, _ := cmd.Flags().GetBool("record"); record {
				dir, _ := cmd.Flags().GetString("record-dir")
				opts = append(opts, tui.WithRecording(dir))
			}

			if err := b.guard.Restore(ctx); err == nil {
				session, err := b.session(ctx)
				if err != nil {
					return err
				}
				opts = append(opts, tui.WithSession(session))
			} else {
				common.LogDebug("no saved login, starting at the login form", common.Fields{"reason": err.Error()})
			}

			return tui.Run(ctx, opts...)
		},
	}

	cmd.Flags().Bool("record", false, "write every frame to disk for debugging")
	cmd.Flags().String("record-dir", "", "where --record writes frames (default: a temp directory)")

	return cmd
}

// connect is the console's login form.
func (b *backend) connect(ctx context.Context, username, password string) (tui.Session, error) {
	if _, err := b.guard.Login(ctx, username, password); err != nil {
		return tui.Session{}, err
	}
	return b.session(ctx)
}

// session builds the screens and the progression wizard for the logged-in
// user.
func (b *backend) session(ctx context.Context) (tui.Session, error) {
	reg, err := b.registry(ctx)
	if err != nil {
		return tui.Session{}, err
	}
	return tui.Session{
		Registry: reg,
		Wizard:   progression.New(b.client, reg.Notifier(), api.UserMessage, progression.WithGuard(b.guard)),
	}, nil
}

// redirectLogs sends logging to path while the alternate screen is in use.
// An empty path discards logs.
func redirectLogs(path, levelName, format string) (func(), error) {
	level, err := common.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	var w io.Writer = io.Discard
	closeFn := func() {}
	if path != "" {
		f, err := common.OpenLogFile(path)
		if err != nil {
			return nil, err
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	if err := common.SetupLoggerTo(w, level, format); err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return closeFn, nil
}
