// Command schoolctl is the administration console for the school
// management backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/config"
)

var version = "dev"

// env is what every command shares.
type env struct {
	v        *viper.Viper
	settings *config.Settings
	stdin    io.Reader
	cfgFile  string
}

func newRootCmd() *cobra.Command {
	e := &env{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "schoolctl",
		Short: "🎓 School administration console",
		Long: `schoolctl manages attendance, leave, inventory, transport, students and
teachers on the school management backend.

Run "schoolctl console" for the interactive console, or use the
subcommands to script individual operations.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.initConfig,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&e.cfgFile, "config", "", "config file (default: $HOME/.config/schoolctl/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("base-url", "", "backend base URL")

	// Bind flags to viper
	_ = e.v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = e.v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = e.v.BindPFlag("api.base_url", cmd.PersistentFlags().Lookup("base-url"))

	cmd.AddCommand(
		loginCmd(e),
		logoutCmd(e),
		whoamiCmd(e),
		configCmd(e),
		listCmd(e),
		showTabsCmd(e),
		createCmd(e),
		updateCmd(e),
		deleteCmd(e),
		approveCmd(e),
		pricingCmd(e),
		progressionCmd(e),
		exportCmd(e),
		consoleCmd(e),
		sandboxCmd(e),
		versionCmd(),
	)
	return cmd
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(describe(err)))
		os.Exit(1)
	}
}

// describe words err for the terminal. Errors from the backend and the
// session get their user-facing text; everything else is printed as is.
func describe(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) || api.IsAuth(err) {
		return api.UserMessage(err)
	}
	if _, ok := api.KindOf(err); ok {
		return api.UserMessage(err)
	}
	return err.Error()
}

func (e *env) initConfig(cmd *cobra.Command, _ []string) error {
	e.stdin = cmd.InOrStdin()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	// Set up config file
	if e.cfgFile != "" {
		e.v.SetConfigFile(e.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		e.v.AddConfigPath(fmt.Sprintf("%s/.config/schoolctl", home))
		e.v.AddConfigPath(".")
		e.v.SetConfigName("config")
		e.v.SetConfigType("yaml")
	}

	// Environment variables
	e.v.SetEnvPrefix("SCHOOLCTL")
	e.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	e.v.AutomaticEnv()
	config.SetDefaults(e.v)

	// Read config file
	if err := e.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	settings, err := config.Load(e.v)
	if err != nil {
		return err
	}
	e.settings = settings

	// Set up logging
	level, err := common.ParseLevel(settings.Logging.Level)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, settings.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schoolctl %s\n", version)
		},
	}
}
