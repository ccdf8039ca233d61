package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/console"
	"github.com/Veraticus/schoolctl/internal/model"
)

// listOptions selects what "list" and "export" fetch.
type listOptions struct {
	filters  []string
	tab      string
	search   string
	page     int
	pageSize int
}

func (o *listOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&o.filters, "filter", "f", nil, "filter as name=value (repeatable)")
	cmd.Flags().StringVar(&o.tab, "tab", "", "tab to show")
	cmd.Flags().StringVarP(&o.search, "search", "s", "", "free-text search")
	cmd.Flags().IntVar(&o.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, "records per page (10, 25, 50 or 100)")
}

// apply puts the options on s and makes sure it has been fetched.
func (o *listOptions) apply(ctx context.Context, s console.Screen) error {
	fetched := false

	filters, err := parseFilters(o.filters)
	if err != nil {
		return err
	}
	if o.search != "" {
		filters[collection.SearchField] = o.search
	}
	if len(filters) > 0 {
		if err := s.SetFilters(ctx, filters); err != nil {
			return err
		}
		fetched = true
	}

	if o.tab != "" {
		i, err := tabIndex(s.State().Tabs, o.tab)
		if err != nil {
			return err
		}
		if err := s.SelectTab(ctx, i); err != nil {
			return err
		}
		fetched = true
	}

	if o.pageSize != 0 {
		if err := s.SetPageSize(ctx, o.pageSize); err != nil {
			return err
		}
		fetched = true
	}

	if o.page > 1 {
		return s.SetPage(ctx, o.page-1)
	}
	if !fetched {
		return s.Refresh(ctx)
	}
	return nil
}

func listCmd(e *env) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "List the records of a screen",
		Long: `List one page of a screen: attendance, leave, pricing, purchases, stock,
transport, students or teachers.

Examples:
  schoolctl list attendance --filter date_from=2025-03-10
  schoolctl list purchases --tab Pending
  schoolctl list students --search okafor --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				if err := opts.apply(cmd.Context(), s); err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), s.Records())
				}
				printScreen(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().Bool("json", false, "print the records as JSON")

	return cmd
}

// printScreen renders the visible page of s.
func printScreen(out io.Writer, s console.Screen) {
	st := s.State()

	title := s.Title()
	if len(st.Tabs) > 0 {
		title += " · " + st.Tabs[st.ActiveTab]
	}
	fmt.Fprintln(out, cli.FormatTitle(title))

	if len(st.Rows) == 0 {
		fmt.Fprintln(out, cli.InfoStyle.Render("No records found."))
		return
	}

	cols := s.Columns()
	headers := make([]string, len(cols)+1)
	widths := make([]int, len(cols)+1)
	headers[0], widths[0] = "ID", 6
	for i, c := range cols {
		headers[i+1], widths[i+1] = c.Title, c.Width
	}

	rows := make([][]string, len(st.Rows))
	for i, r := range st.Rows {
		row := make([]string, 0, len(r)+1)
		row = append(row, strconv.Itoa(st.IDs[i]))
		row = append(row, r...)
		if st.Approvable[i] {
			row[len(row)-1] = cli.WarningStyle.Render(row[len(row)-1])
		}
		rows[i] = row
	}
	fmt.Fprintln(out, cli.RenderTable(headers, widths, rows))
	fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Page %d of %d · %d records", st.Page.Index+1, max(st.TotalPages, 1), st.Total)))
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func showTabsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show-tabs <screen>",
		Short: "Describe a screen's tabs, filters and actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				describeScreen(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
}

func describeScreen(out io.Writer, s console.Screen) {
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (%s)", s.Title(), s.Name())))
	fmt.Fprintf(out, "Configuration: %s\n", s.Domain())

	tabs := s.State().Tabs
	if len(tabs) == 0 {
		tabs = []string{"none"}
	}
	fmt.Fprintf(out, "Tabs:          %s\n", strings.Join(tabs, ", "))

	var actions []string
	for _, a := range []console.Action{console.ActionCreate, console.ActionUpdate, console.ActionDelete, console.ActionApprove, console.ActionBulkPrice} {
		if s.Supports(a) {
			actions = append(actions, string(a))
		}
	}
	fmt.Fprintf(out, "Actions:       %s\n", strings.Join(actions, ", "))
	if s.Supports(console.ActionCreate) {
		fmt.Fprintf(out, "Required:      %s\n", strings.Join(s.RequiredFields(), ", "))
	}

	rows := make([][]string, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		rows = append(rows, []string{f.Name, f.Label, kindName(f.Kind), string(f.OptionSet) + strings.Join(f.Choices, "|")})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTable([]string{"Filter", "Label", "Kind", "Values"}, []int{16, 14, 8, 24}, rows))
}

func createCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <screen>",
		Short: "Create a record",
		Long: `Create a record from field=value assignments. Numbers and true/false are
sent as such; quote a value to send it as text.

Example:
  schoolctl create purchases --set student_id=4 --set item_id=2 --set quantity=3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("set")
			asJSON, _ := cmd.Flags().GetBool("json")

			values, err := console.ParseAssignments(pairs)
			if err != nil {
				return err
			}
			payload, err := console.EncodeAssignments(values)
			if err != nil {
				return err
			}

			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				created, err := s.Create(cmd.Context(), payload)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), created)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatNotification(reg.Notifier().Current()))
				return nil
			})
		},
	}

	cmd.Flags().StringArray("set", nil, "field=value (repeatable, or comma separated)")
	cmd.Flags().Bool("json", false, "print the created record as JSON")

	return cmd
}

func updateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <screen> <id>",
		Short: "Change fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			pairs, _ := cmd.Flags().GetStringArray("set")
			patch, err := console.ParseAssignments(pairs)
			if err != nil {
				return err
			}

			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				if _, err := s.Update(cmd.Context(), id, patch); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatNotification(reg.Notifier().Current()))
				return nil
			})
		},
	}

	cmd.Flags().StringArray("set", nil, "field=value (repeatable, or comma separated)")
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

func deleteCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <screen> <id>",
		Short: "Delete a record",
		Long: `Delete a record. You are asked to confirm unless --force is given; the
deletion cannot be undone.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			out := cmd.OutOrStdout()

			var confirm collection.Confirmer = cli.NewPrompter(e.stdin, out)
			if force {
				confirm = collection.AlwaysConfirm
			}

			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				deleted, err := s.Delete(cmd.Context(), id, confirm)
				if err != nil {
					return err
				}
				if !deleted {
					fmt.Fprintln(out, "Deletion cancelled.")
					return nil
				}
				fmt.Fprintln(out, cli.FormatNotification(reg.Notifier().Current()))
				return nil
			})
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	return cmd
}

func approveCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <screen> <id>",
		Short: "Approve or reject a pending request",
		Long: `Record a decision on a pending leave request, purchase or stock movement.

Examples:
  schoolctl approve leave 12 --comments "Enjoy the break"
  schoolctl approve purchases 7 --reject --comments "Over budget"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			reject, _ := cmd.Flags().GetBool("reject")
			comments, _ := cmd.Flags().GetString("comments")

			req := model.ApprovalRequest{Decision: model.DecisionApproved, Comments: comments}
			if reject {
				req.Decision = model.DecisionRejected
			}

			return e.withScreens(cmd.Context(), func(_ *backend, reg *console.Registry) error {
				s, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				if _, err := s.Approve(cmd.Context(), id, req); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatNotification(reg.Notifier().Current()))
				return nil
			})
		},
	}

	cmd.Flags().Bool("reject", false, "reject instead of approving")
	cmd.Flags().StringP("comments", "m", "", "comments recorded with the decision")

	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record ID %q", s)
	}
	return id, nil
}
