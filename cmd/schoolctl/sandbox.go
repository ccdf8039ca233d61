package main

import (
	"crypto/tls"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/certs"
	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/config"
	"github.com/Veraticus/schoolctl/internal/sandbox"
)

func sandboxCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve a local backend with seeded data",
		Long: `Serve an in-memory backend for trying the console. It is seeded with
demo records and accepts admin/admin123, teacher/teacher123 and
staff/staff123. Nothing is persisted.

With --tls the sandbox serves HTTPS using a self-signed certificate kept in
sandbox.cert_dir; point api.ca_file at the printed certificate to trust it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := *e.settings
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				s.Sandbox.Addr = addr
			}
			if cmd.Flags().Changed("tls") {
				s.Sandbox.TLS, _ = cmd.Flags().GetBool("tls")
			}

			srv, scheme, err := buildSandbox(cmd.OutOrStdout(), s, certs.NewFileManager(s.Sandbox.CertDir))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Sandbox listening on %s://%s (Ctrl+C to stop)", scheme, s.Sandbox.Addr)))
			return srv.Run(cmd.Context(), s.Sandbox.Addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: sandbox.addr)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")

	return cmd
}

// buildSandbox prepares the server and, for TLS, its certificate.
func buildSandbox(out io.Writer, s config.Settings, mgr certs.Manager) (*sandbox.Server, string, error) {
	opts := sandbox.Options{
		Secret:   s.Sandbox.Secret,
		PageBase: s.API.PageBase,
	}
	if !s.Sandbox.TLS {
		return sandbox.New(opts), "http", nil
	}

	cert, err := mgr.Ensure()
	if err != nil {
		return nil, "", fmt.Errorf("sandbox certificate: %w", err)
	}
	opts.TLS = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	fmt.Fprintln(out, cli.FormatInfo("Certificate: "+mgr.CertFile()))
	fmt.Fprintln(out, cli.SubtleStyle.Render("Trust it with SCHOOLCTL_API_CA_FILE="+mgr.CertFile()))
	return sandbox.New(opts), "https", nil
}
