package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/model"
)

func configCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings and server configuration",
	}

	cmd.AddCommand(configShowCmd(e))
	cmd.AddCommand(configLookupCmd(e))

	return cmd
}

func configShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if used := e.v.ConfigFileUsed(); used != "" {
				fmt.Fprintln(out, cli.FormatInfo("Config file: "+used))
			}
			for _, key := range slices.Sorted(slices.Values(e.v.AllKeys())) {
				value := e.v.Get(key)
				if key == "sandbox.secret" || key == "password" {
					value = "********"
				}
				fmt.Fprintf(out, "%s = %v\n", key, value)
			}
			return nil
		},
	}
}

func configLookupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <domain>",
		Short: "List the configuration options of a domain",
		Long: `List the statuses, categories and session years the server configures for
a domain such as attendance-management or inventory-management. When the
server cannot be reached the last cached copy is shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			domain := args[0]
			only, _ := cmd.Flags().GetString("set")

			b, err := e.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.restore(ctx); err != nil {
				return err
			}

			if err := b.lookup.Ensure(ctx, domain); err != nil {
				return err
			}
			state := b.lookup.Get(domain)

			out := cmd.OutOrStdout()
			if state.Stale {
				fmt.Fprintln(out, cli.FormatWarning("Server unreachable; showing the copy cached "+state.FetchedAt.Local().Format("2006-01-02 15:04")))
			}

			sets := map[model.OptionSet][]model.Option{
				model.OptionStatuses:     state.Data.Statuses,
				model.OptionCategories:   state.Data.Categories,
				model.OptionSessionYears: state.Data.SessionYears,
			}
			for _, set := range slices.Sorted(maps.Keys(sets)) {
				if only != "" && string(set) != only {
					continue
				}
				fmt.Fprintln(out, cli.FormatTitle(string(set)))
				rows := make([][]string, 0, len(sets[set]))
				for _, o := range sets[set] {
					active := "no"
					if o.IsActive {
						active = "yes"
					}
					rows = append(rows, []string{strconv.Itoa(o.ID), o.Name, o.Description, active})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("  none"))
					continue
				}
				fmt.Fprintln(out, cli.RenderTable([]string{"ID", "Name", "Description", "Active"}, []int{6, 20, 32, 6}, rows))
			}
			return nil
		},
	}

	cmd.Flags().String("set", "", "only show one option set (statuses, categories, session_years)")

	return cmd
}
