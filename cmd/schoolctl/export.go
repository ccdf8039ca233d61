package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/export"
)

func exportCmd(e *env) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "export <screen> <file>",
		Short: "Write a screen's records to CSV or PDF",
		Long: `Export the records of a screen. The format follows the file extension
unless --format is given. Without --all only the selected page is written.

Examples:
  schoolctl export attendance march.csv --filter date_from=2025-03-01 --all
  schoolctl export purchases pending.pdf --tab Pending`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			formatName, _ := cmd.Flags().GetString("format")
			path := args[1]
			if formatName == "" {
				formatName = path
			}
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), false)

			return e.withScreens(ctx, func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				if err := opts.apply(ctx, s); err != nil {
					return err
				}

				table := export.FromScreen(s)
				if all {
					if table, err = collectPages(ctx, cmd.ErrOrStderr(), s, table); err != nil {
						if handler.WasInterrupted() {
							return fmt.Errorf("export: %w", common.ErrCancelled)
						}
						return err
					}
				}

				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				if err := export.Write(f, format, table); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d rows to %s", len(table.Rows), path)))
				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().Bool("all", false, "export every page, not only the selected one")
	cmd.Flags().String("format", "", "csv or pdf (default: from the file extension)")

	return cmd
}

// collectPages appends the pages after the current one to t.
func collectPages(ctx context.Context, progress io.Writer, s console.Screen, t export.Table) (export.Table, error) {
	st := s.State()
	first, last := st.Page.Index, st.TotalPages-1
	if first >= last {
		return t, nil
	}

	bar := cli.NewProgressBar(progress, last-first+1, "Exporting "+s.Title())
	_ = bar.Add(1)
	for i := first + 1; i <= last; i++ {
		if err := s.SetPage(ctx, i); err != nil {
			return t, fmt.Errorf("fetch page %d: %w", i+1, err)
		}
		t.Rows = append(t.Rows, s.State().Rows...)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return t, nil
}
