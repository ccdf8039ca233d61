package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/cli"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/progression"
)

func progressionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progression",
		Short: "Move students between academic sessions",
	}
	cmd.AddCommand(sessionsCmd(e), runProgressionCmd(e))
	return cmd
}

func sessionsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List academic sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := e.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.restore(cmd.Context()); err != nil {
				return err
			}

			sessions, err := b.client.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(sessions))
			for i, s := range sessions {
				current := ""
				if s.IsCurrent {
					current = "yes"
				}
				rows[i] = []string{strconv.Itoa(s.ID), s.Name, s.StartDate.String(), s.EndDate.String(), current}
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"ID", "Name", "Starts", "Ends", "Current"},
				[]int{4, 12, 12, 12, 8},
				rows,
			))
			return nil
		},
	}
}

// plan is what "progression run" was asked to do.
type plan struct {
	from    string
	to      string
	retain  []int
	demote  []int
	exclude []int
	yes     bool
}

func runProgressionCmd(e *env) *cobra.Command {
	var p plan
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Promote, retain or demote students for the next session",
		Long: `Preview the students of a session, plan their moves and execute them.

Every previewed student is promoted unless listed with --retain, --demote
or --exclude. The planned moves are shown for confirmation first.

Examples:
  schoolctl progression run --to 2025
  schoolctl progression run --from 2024 --to 2025 --retain 12,31 --exclude 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			handler := cli.NewInterruptHandler(out)
			ctx := handler.HandleInterrupts(cmd.Context(), true)

			b, err := e.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.restore(ctx); err != nil {
				return err
			}

			notes := collection.NewNotifier(nil, 0)
			w := progression.New(b.client, notes, api.UserMessage, progression.WithGuard(b.guard))
			err = runPlan(ctx, w, p, cli.NewPrompter(e.stdin, out), out)
			if handler.WasInterrupted() {
				return fmt.Errorf("progression: %w", common.ErrCancelled)
			}
			if err != nil {
				return err
			}
			if n := notes.Current(); n.Visible {
				fmt.Fprintln(out, cli.FormatNotification(n))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&p.from, "from", "", "source session name or ID (default: the current session)")
	cmd.Flags().StringVar(&p.to, "to", "", "target session name or ID")
	cmd.Flags().IntSliceVar(&p.retain, "retain", nil, "student IDs kept in their class")
	cmd.Flags().IntSliceVar(&p.demote, "demote", nil, "student IDs moved down a class")
	cmd.Flags().IntSliceVar(&p.exclude, "exclude", nil, "student IDs left out")
	cmd.Flags().BoolVarP(&p.yes, "yes", "y", false, "execute without asking")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// runPlan walks the wizard from session choice to results.
func runPlan(ctx context.Context, w *progression.Wizard, p plan, confirm collection.Confirmer, out io.Writer) error {
	if err := w.Load(ctx); err != nil {
		return err
	}
	from, err := findSession(w.Sessions(), p.from)
	if err != nil {
		return err
	}
	to, err := findSession(w.Sessions(), p.to)
	if err != nil {
		return err
	}
	if err := w.ChooseSessions(from.ID, to.ID); err != nil {
		return err
	}
	if err := w.Preview(ctx); err != nil {
		return err
	}
	if len(w.Candidates()) == 0 {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("No students to move from %s to %s.", from.Name, to.Name)))
		return nil
	}

	for _, id := range p.exclude {
		if _, ok := w.Action(id); !ok {
			return fmt.Errorf("student %d is not in the preview", id)
		}
		if _, err := w.Toggle(id); err != nil {
			return err
		}
	}
	for _, id := range p.retain {
		if err := w.SetAction(id, model.ActionRetained); err != nil {
			return err
		}
	}
	for _, id := range p.demote {
		if err := w.SetAction(id, model.ActionDemoted); err != nil {
			return err
		}
	}

	if err := w.Review(); err != nil {
		if errors.Is(err, progression.ErrNothingChosen) {
			return fmt.Errorf("every student was excluded")
		}
		return err
	}

	moves := w.Moves()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s → %s", from.Name, to.Name)))
	fmt.Fprintln(out, renderMoves(moves))

	if !p.yes {
		ok, err := confirm.Confirm(ctx, fmt.Sprintf("Process %d students?", len(moves)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Progression cancelled.")
			return nil
		}
	}

	res, err := w.Execute(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderResult(res))
	return nil
}

// findSession resolves a session by name or ID. Empty means the current
// session.
func findSession(sessions []model.Session, ref string) (model.Session, error) {
	ref = strings.TrimSpace(ref)
	for _, s := range sessions {
		switch {
		case ref == "" && s.IsCurrent:
			return s, nil
		case ref != "" && strings.EqualFold(s.Name, ref):
			return s, nil
		}
	}
	if id, err := strconv.Atoi(ref); err == nil {
		for _, s := range sessions {
			if s.ID == id {
				return s, nil
			}
		}
	}
	if ref == "" {
		return model.Session{}, fmt.Errorf("no current session; pass --from")
	}
	return model.Session{}, fmt.Errorf("unknown session %q", ref)
}

func renderMoves(moves []progression.Move) string {
	rows := make([][]string, len(moves))
	for i, m := range moves {
		rows[i] = []string{
			strconv.Itoa(m.Candidate.StudentID),
			m.Candidate.Name,
			m.Candidate.ClassName,
			m.Target.Name,
			string(m.Action),
		}
	}
	return cli.RenderTable([]string{"ID", "Student", "From", "To", "Action"}, []int{5, 24, 10, 10, 10}, rows)
}

func renderResult(res model.ProgressionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed: %d\n", res.Processed)
	fmt.Fprintf(&b, "Promoted:  %d\n", res.Promoted)
	fmt.Fprintf(&b, "Retained:  %d\n", res.Retained)
	fmt.Fprintf(&b, "Demoted:   %d", res.Demoted)
	for _, f := range res.Failures {
		fmt.Fprintf(&b, "\n%s", cli.FormatWarning(fmt.Sprintf("student %d: %s", f.StudentID, f.Reason)))
	}
	return cli.RenderBox("Progression complete", b.String())
}
