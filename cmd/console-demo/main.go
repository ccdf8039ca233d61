// Package main runs the console against an in-process sandbox with seeded
// data, so it can be tried without a backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"os/signal"
	"syscall"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/auth"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/lookup"
	"github.com/Veraticus/schoolctl/internal/progression"
	"github.com/Veraticus/schoolctl/internal/sandbox"
	"github.com/Veraticus/schoolctl/internal/storage"
	"github.com/Veraticus/schoolctl/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error running console: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// The alternate screen owns the terminal.
	if err := common.SetupLoggerTo(io.Discard, slog.LevelError, "console"); err != nil {
		return err
	}

	ts := httptest.NewServer(sandbox.New(sandbox.Options{PageBase: 1}).Handler())
	defer ts.Close()

	store, err := storage.Open(ctx, ":memory:")
	if err != nil {
		return err
	}
	defer store.Close()

	guard := auth.NewGuard(store, auth.Options{BaseURL: ts.URL})
	client, err := api.NewClient(ts.URL, api.WithTokenSource(guard))
	if err != nil {
		return err
	}
	lookups := lookup.New(client, lookup.WithCache(store, ts.URL))

	connect := func(ctx context.Context, username, password string) (tui.Session, error) {
		user, err := guard.Login(ctx, username, password)
		if err != nil {
			return tui.Session{}, err
		}
		reg, err := console.NewRegistry(ctx, console.Deps{
			Client: client,
			Guard:  guard,
			Lookup: lookups,
			User:   &user,
		})
		if err != nil {
			return tui.Session{}, err
		}
		return tui.Session{Registry: reg, Wizard: progression.New(client, reg.Notifier(), api.UserMessage, progression.WithGuard(guard))}, nil
	}

	fmt.Println("Demo accounts: admin/admin123, teacher/teacher123, staff/staff123")
	return tui.Run(ctx,
		tui.WithConnector(connect),
		tui.WithAuth(guard),
		tui.WithSize(120, 40),
	)
}
