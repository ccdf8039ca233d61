// Package progression drives the year-end session progression flow:
// choose two sessions, preview the students, decide each student's action,
// execute, and review the outcome.
package progression

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

// Step is a stage of the wizard.
type Step int

// Steps, in order.
const (
	StepSelectSessions Step = iota
	StepPreviewStudents
	StepConfirmActions
	StepViewResults
)

func (s Step) String() string {
	switch s {
	case StepSelectSessions:
		return "Select sessions"
	case StepPreviewStudents:
		return "Preview students"
	case StepConfirmActions:
		return "Confirm actions"
	case StepViewResults:
		return "Results"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Wizard errors.
var (
	ErrWrongStep     = errors.New("not available at this step")
	ErrSameSession   = errors.New("source and target sessions must differ")
	ErrUnknownOption = errors.New("unknown session or class")
	ErrNothingChosen = errors.New("no students selected")
)

// Backend is the server side of the flow.
type Backend interface {
	Sessions(ctx context.Context) ([]model.Session, error)
	Classes(ctx context.Context) ([]model.Class, error)
	PreviewProgression(ctx context.Context, req model.PreviewRequest) (model.PreviewResponse, error)
	ExecuteProgression(ctx context.Context, req model.ExecuteRequest) (model.ProgressionResult, error)
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithGuard hands authentication failures to g, which logs the user out,
// instead of reporting them as ordinary errors.
func WithGuard(g collection.Guard) Option {
	return func(w *Wizard) { w.guard = g }
}

// Move is one row of the confirmation list.
type Move struct {
	Candidate model.Candidate
	Target    model.Class
	Action    model.ProgressionAction
}

// Wizard is the progression state machine. It only moves forward through
// its explicit actions; Back returns to the previous step and Reset leaves
// the results.
type Wizard struct {
	backend    Backend
	guard      collection.Guard
	notes      *collection.Notifier
	describe   func(error) string
	selection  *collection.Selection[int, model.ProgressionAction]
	result     *model.ProgressionResult
	err        error
	sessions   []model.Session
	classes    []model.Class
	candidates []model.Candidate
	step       Step
	from       int
	to         int
	mu         sync.Mutex
}

// New creates a wizard. notes and describe may be nil.
func New(backend Backend, notes *collection.Notifier, describe func(error) string, opts ...Option) *Wizard {
	if describe == nil {
		describe = func(err error) string { return err.Error() }
	}
	w := &Wizard{
		backend:   backend,
		notes:     notes,
		describe:  describe,
		selection: collection.NewSelection[int, model.ProgressionAction](),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Load fetches the sessions and classes the first step chooses from.
func (w *Wizard) Load(ctx context.Context) error {
	var sessions []model.Session
	var classes []model.Class
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sessions, err = w.backend.Sessions(gctx)
		return err
	})
	g.Go(func() (err error) {
		classes, err = w.backend.Classes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return w.fail(fmt.Errorf("load sessions and classes: %w", err))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sessions = sessions
	w.classes = classes
	w.err = nil
	return nil
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Err returns the last failure, cleared by the next successful action.
func (w *Wizard) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Sessions returns the loaded sessions.
func (w *Wizard) Sessions() []model.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.sessions)
}

// Classes returns the loaded classes.
func (w *Wizard) Classes() []model.Class {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.classes)
}

// Chosen returns the selected source and target session ids.
func (w *Wizard) Chosen() (from, to int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.from, w.to
}

// Candidates returns the previewed students.
func (w *Wizard) Candidates() []model.Candidate {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.candidates)
}

// Result returns the execution outcome once the wizard reached the results.
func (w *Wizard) Result() (model.ProgressionResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return model.ProgressionResult{}, false
	}
	return *w.result, true
}

// ChooseSessions sets the source and target sessions.
func (w *Wizard) ChooseSessions(from, to int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectSessions {
		return fmt.Errorf("choose sessions: %w", ErrWrongStep)
	}
	if from == to {
		return ErrSameSession
	}
	for _, id := range []int{from, to} {
		if !slices.ContainsFunc(w.sessions, func(s model.Session) bool { return s.ID == id }) {
			return fmt.Errorf("%w: session %d", ErrUnknownOption, id)
		}
	}
	w.from, w.to = from, to
	return nil
}

// Preview asks the server for candidates and moves to the preview step.
// Every candidate starts selected for promotion.
func (w *Wizard) Preview(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepSelectSessions {
		w.mu.Unlock()
		return fmt.Errorf("preview: %w", ErrWrongStep)
	}
	from, to := w.from, w.to
	w.mu.Unlock()
	if from == 0 || to == 0 {
		return fmt.Errorf("preview: choose sessions first: %w", ErrUnknownOption)
	}

	resp, err := w.backend.PreviewProgression(ctx, model.PreviewRequest{FromSessionID: from, ToSessionID: to})
	if err != nil {
		return w.fail(fmt.Errorf("preview progression: %w", err))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.candidates = resp.Students
	w.selection.Clear()
	ids := make([]int, len(resp.Students))
	for i, c := range resp.Students {
		ids[i] = c.StudentID
	}
	w.selection.ToggleAll(ids, model.ActionPromoted)
	w.err = nil
	w.step = StepPreviewStudents
	return nil
}

// Toggle includes or excludes a student, returning whether it is included.
func (w *Wizard) Toggle(studentID int) (bool, error) {
	if err := w.at(StepPreviewStudents, "toggle"); err != nil {
		return false, err
	}
	return w.selection.Toggle(studentID, model.ActionPromoted), nil
}

// ToggleAll includes every candidate, or excludes all when all are included.
func (w *Wizard) ToggleAll() error {
	if err := w.at(StepPreviewStudents, "toggle all"); err != nil {
		return err
	}
	w.mu.Lock()
	ids := make([]int, len(w.candidates))
	for i, c := range w.candidates {
		ids[i] = c.StudentID
	}
	w.mu.Unlock()
	w.selection.ToggleAll(ids, model.ActionPromoted)
	return nil
}

// SetAction changes the action of an included student.
func (w *Wizard) SetAction(studentID int, action model.ProgressionAction) error {
	if err := w.at(StepPreviewStudents, "set action"); err != nil {
		return err
	}
	if !action.Valid() {
		return fmt.Errorf("invalid action %q", action)
	}
	if !w.selection.Set(studentID, action) {
		return fmt.Errorf("student %d is not selected", studentID)
	}
	return nil
}

// Action returns a student's planned action and whether it is included.
func (w *Wizard) Action(studentID int) (model.ProgressionAction, bool) {
	return w.selection.Get(studentID)
}

// Review moves to the confirmation step.
func (w *Wizard) Review() error {
	if err := w.at(StepPreviewStudents, "review"); err != nil {
		return err
	}
	if w.selection.Len() == 0 {
		return ErrNothingChosen
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepConfirmActions
	return nil
}

// Moves lists the included students with the class each ends up in.
func (w *Wizard) Moves() []Move {
	w.mu.Lock()
	candidates, classes := w.candidates, w.classes
	w.mu.Unlock()

	var out []Move
	for _, c := range candidates {
		action, ok := w.selection.Get(c.StudentID)
		if !ok {
			continue
		}
		target, ok := TargetClass(classes, c.ClassID, action)
		if !ok {
			target = model.Class{ID: c.ClassID, Name: c.ClassName}
		}
		out = append(out, Move{Candidate: c, Action: action, Target: target})
	}
	return out
}

// Execute commits the plan and moves to the results.
func (w *Wizard) Execute(ctx context.Context) (model.ProgressionResult, error) {
	if err := w.at(StepConfirmActions, "execute"); err != nil {
		return model.ProgressionResult{}, err
	}
	moves := w.Moves()
	req := model.ExecuteRequest{Actions: make([]model.PlannedMove, len(moves))}
	req.FromSessionID, req.ToSessionID = w.Chosen()
	for i, m := range moves {
		req.Actions[i] = model.PlannedMove{StudentID: m.Candidate.StudentID, Action: m.Action, TargetClassID: m.Target.ID}
	}

	res, err := w.backend.ExecuteProgression(ctx, req)
	if err != nil {
		return res, w.fail(fmt.Errorf("execute progression: %w", err))
	}

	w.mu.Lock()
	w.result = &res
	w.err = nil
	w.step = StepViewResults
	w.mu.Unlock()

	common.LogInfo("progression executed", common.Fields{
		"processed": res.Processed,
		"failures":  len(res.Failures),
	})
	if w.notes != nil {
		if len(res.Failures) > 0 {
			w.notes.Warning(fmt.Sprintf("Processed %d students, %d failed", res.Processed, len(res.Failures)))
		} else {
			w.notes.Success(fmt.Sprintf("Processed %d students", res.Processed))
		}
	}
	return res, nil
}

// Back returns to the previous step. The results can only be left by Reset.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepPreviewStudents, StepConfirmActions:
		w.step--
		return nil
	default:
		return fmt.Errorf("back: %w", ErrWrongStep)
	}
}

// Reset clears every choice and returns to the first step. Loaded sessions
// and classes are kept.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepSelectSessions
	w.from, w.to = 0, 0
	w.candidates = nil
	w.result = nil
	w.err = nil
	w.selection.Clear()
}

func (w *Wizard) at(step Step, what string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != step {
		return fmt.Errorf("%s: %w", what, ErrWrongStep)
	}
	return nil
}

func (w *Wizard) fail(err error) error {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	if w.guard != nil && w.guard.HandleUnauthorized(err) {
		return err
	}
	if w.notes != nil && !errors.Is(err, context.Canceled) {
		w.notes.Error(w.describe(err))
	}
	return err
}
