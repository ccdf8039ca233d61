package progression

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/testutil"
)

type fakeBackend struct {
	previewErr error
	executeErr error
	executed   []model.ExecuteRequest
	candidates []model.Candidate
}

func (f *fakeBackend) Sessions(context.Context) ([]model.Session, error) {
	return []model.Session{{ID: 1, Name: "2024", IsCurrent: true}, {ID: 2, Name: "2025"}}, nil
}

func (f *fakeBackend) Classes(context.Context) ([]model.Class, error) {
	return []model.Class{
		{ID: 1, Name: "Form 1", Order: 1},
		{ID: 2, Name: "Form 2", Order: 2},
		{ID: 3, Name: "Form 3", Order: 3},
	}, nil
}

func (f *fakeBackend) PreviewProgression(context.Context, model.PreviewRequest) (model.PreviewResponse, error) {
	if f.previewErr != nil {
		return model.PreviewResponse{}, f.previewErr
	}
	return model.PreviewResponse{Students: f.candidates}, nil
}

func (f *fakeBackend) ExecuteProgression(_ context.Context, req model.ExecuteRequest) (model.ProgressionResult, error) {
	if f.executeErr != nil {
		return model.ProgressionResult{}, f.executeErr
	}
	f.executed = append(f.executed, req)
	res := model.ProgressionResult{}
	for _, a := range req.Actions {
		res.Processed++
		switch a.Action {
		case model.ActionPromoted:
			res.Promoted++
		case model.ActionRetained:
			res.Retained++
		case model.ActionDemoted:
			res.Demoted++
		}
	}
	return res, nil
}

func newWizard(t *testing.T) (*Wizard, *fakeBackend, *collection.Notifier) {
	t.Helper()
	backend := &fakeBackend{candidates: []model.Candidate{
		{StudentID: 11, Name: "Achieng Otieno", ClassID: 1, ClassName: "Form 1"},
		{StudentID: 12, Name: "Baraka Mutua", ClassID: 2, ClassName: "Form 2"},
		{StudentID: 13, Name: "Chidi Wekesa", ClassID: 3, ClassName: "Form 3"},
	}}
	notes := collection.NewNotifier(collection.NewManualClock(time.Now()), time.Second)
	w := New(backend, notes, nil)
	require.NoError(t, w.Load(context.Background()))
	return w, backend, notes
}

func TestWizardHappyPath(t *testing.T) {
	ctx := context.Background()
	w, backend, notes := newWizard(t)
	assert.Equal(t, StepSelectSessions, w.Step())
	assert.Len(t, w.Sessions(), 2)

	require.NoError(t, w.ChooseSessions(1, 2))
	require.NoError(t, w.Preview(ctx))
	assert.Equal(t, StepPreviewStudents, w.Step())
	assert.Len(t, w.Candidates(), 3)

	action, ok := w.Action(12)
	require.True(t, ok)
	assert.Equal(t, model.ActionPromoted, action)

	require.NoError(t, w.SetAction(12, model.ActionRetained))
	included, err := w.Toggle(11)
	require.NoError(t, err)
	assert.False(t, included)

	require.NoError(t, w.Review())
	assert.Equal(t, StepConfirmActions, w.Step())
	moves := w.Moves()
	require.Len(t, moves, 2)
	assert.Equal(t, "Form 2", moves[0].Target.Name)
	assert.Equal(t, "Form 3", moves[1].Target.Name, "promotion from the top class stays put")

	res, err := w.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepViewResults, w.Step())
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Retained)
	require.Len(t, backend.executed, 1)
	assert.Equal(t, []model.PlannedMove{
		{StudentID: 12, Action: model.ActionRetained, TargetClassID: 2},
		{StudentID: 13, Action: model.ActionPromoted, TargetClassID: 3},
	}, backend.executed[0].Actions)
	assert.Equal(t, "Processed 2 students", notes.Current().Text)

	got, ok := w.Result()
	require.True(t, ok)
	assert.Equal(t, res, got)
}

func TestWizardNavigation(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newWizard(t)

	assert.ErrorIs(t, w.Back(), ErrWrongStep)
	assert.ErrorIs(t, w.Review(), ErrWrongStep, "cannot skip ahead")
	_, err := w.Execute(ctx)
	assert.ErrorIs(t, err, ErrWrongStep)

	require.NoError(t, w.ChooseSessions(1, 2))
	require.NoError(t, w.Preview(ctx))
	require.NoError(t, w.Review())
	require.NoError(t, w.Back())
	assert.Equal(t, StepPreviewStudents, w.Step())
	require.NoError(t, w.Back())
	assert.Equal(t, StepSelectSessions, w.Step())

	require.NoError(t, w.Preview(ctx))
	require.NoError(t, w.Review())
	_, err = w.Execute(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Back(), ErrWrongStep, "results are left only by reset")

	w.Reset()
	assert.Equal(t, StepSelectSessions, w.Step())
	assert.Empty(t, w.Candidates())
	from, to := w.Chosen()
	assert.Zero(t, from)
	assert.Zero(t, to)
	_, ok := w.Result()
	assert.False(t, ok)
	assert.Len(t, w.Classes(), 3)
}

func TestWizardValidation(t *testing.T) {
	ctx := context.Background()
	w, _, _ := newWizard(t)

	assert.ErrorIs(t, w.ChooseSessions(1, 1), ErrSameSession)
	assert.ErrorIs(t, w.ChooseSessions(1, 9), ErrUnknownOption)
	assert.ErrorIs(t, w.Preview(ctx), ErrUnknownOption)

	require.NoError(t, w.ChooseSessions(1, 2))
	require.NoError(t, w.Preview(ctx))
	assert.Error(t, w.SetAction(11, "Expelled"))

	require.NoError(t, w.ToggleAll())
	assert.Error(t, w.SetAction(11, model.ActionDemoted), "excluded students carry no action")
	assert.ErrorIs(t, w.Review(), ErrNothingChosen)
}

func TestWizardFailuresStayOnStep(t *testing.T) {
	ctx := context.Background()
	w, backend, notes := newWizard(t)
	require.NoError(t, w.ChooseSessions(1, 2))

	backend.previewErr = errors.New("boom")
	require.Error(t, w.Preview(ctx))
	assert.Equal(t, StepSelectSessions, w.Step())
	assert.Error(t, w.Err())
	assert.Equal(t, collection.SeverityError, notes.Current().Severity)

	backend.previewErr = nil
	require.NoError(t, w.Preview(ctx))
	assert.NoError(t, w.Err())
	require.NoError(t, w.Review())

	backend.executeErr = errors.New("down")
	_, err := w.Execute(ctx)
	require.Error(t, err)
	assert.Equal(t, StepConfirmActions, w.Step())
}

type stubGuard struct {
	handled []error
}

func (g *stubGuard) IsAuthenticated() bool { return len(g.handled) == 0 }

func (g *stubGuard) HandleUnauthorized(err error) bool {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindAuth {
		g.handled = append(g.handled, err)
		return true
	}
	return false
}

func TestWizardHandsAuthFailuresToGuard(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{candidates: []model.Candidate{{StudentID: 11, ClassID: 1}}}
	notes := collection.NewNotifier(collection.NewManualClock(time.Now()), time.Second)
	guard := &stubGuard{}
	w := New(backend, notes, nil, WithGuard(guard))
	require.NoError(t, w.Load(ctx))
	require.NoError(t, w.ChooseSessions(1, 2))

	backend.previewErr = &api.Error{Kind: api.KindAuth, Status: 401, Message: "token revoked"}
	require.Error(t, w.Preview(ctx))
	assert.Len(t, guard.handled, 1)
	assert.False(t, notes.Current().Visible, "the guard redirects instead of a banner")

	backend.previewErr = errors.New("boom")
	require.Error(t, w.Preview(ctx))
	assert.Len(t, guard.handled, 1)
	assert.Equal(t, collection.SeverityError, notes.Current().Severity)
}

// revokingTransport answers every request for path with a 401.
type revokingTransport struct {
	path string
}

func (rt revokingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path == rt.path {
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"detail":"token revoked"}`)),
			Request:    req,
		}, nil
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestWizardRevokedSessionLogsOut(t *testing.T) {
	ctx := context.Background()
	b := testutil.SetupBackend(t, testutil.WithTransport(revokingTransport{path: "/sessions"}))
	b.Login("admin", "admin123")

	redirects := 0
	b.Guard.OnUnauthorized(func() { redirects++ })

	w := New(b.Client, nil, api.UserMessage, WithGuard(b.Guard))
	err := w.Load(ctx)
	require.Error(t, err)
	assert.True(t, api.IsAuth(err))

	assert.False(t, b.Guard.IsAuthenticated())
	assert.Equal(t, 1, redirects)
	_, err = b.Store.LoadSession(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
