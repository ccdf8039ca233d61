package collection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
)

func newTestView(t *testing.T, src Source[row], opts ...Option[row]) (*View[row], *ManualClock) {
	t.Helper()
	clock := NewManualClock(testEpoch)
	opts = append([]Option[row]{
		WithClock[row](clock),
		WithFields[row](
			Field{Name: "class_id", Kind: KindID},
			Field{Name: "date_from", Kind: KindDate},
		),
	}, opts...)
	v, err := NewView(context.Background(), src, opts...)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v, clock
}

func TestView_NeverShowsMoreRowsThanPageSize(t *testing.T) {
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		return Page[row]{Items: rows(40), Total: 40}, nil
	}}
	v, _ := newTestView(t, src, WithPageSize[row](25))

	require.NoError(t, v.Refresh(context.Background()))

	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 25)
	assert.Equal(t, 40, snap.Total)
	assert.Equal(t, 2, snap.TotalPages)
}

func TestView_FilterChangeResetsPage(t *testing.T) {
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		return Page[row]{Items: rows(10), Total: 100, TotalPages: 10}, nil
	}}
	v, _ := newTestView(t, src, WithPageSize[row](10))
	ctx := context.Background()

	require.NoError(t, v.SetPage(ctx, 4))
	assert.Equal(t, 4, src.Last().Page.Index)

	require.NoError(t, v.SetFilter(ctx, "class_id", "7"))
	last := src.Last()
	assert.Equal(t, 0, last.Page.Index)
	assert.Equal(t, "7", last.Filters["class_id"])

	require.NoError(t, v.SetPage(ctx, 2))
	require.NoError(t, v.SetPageSize(ctx, 50))
	assert.Equal(t, PageRequest{Index: 0, Size: 50}, src.Last().Page)
}

func TestView_AllSentinelRemovesFilter(t *testing.T) {
	src := &recordingSource{}
	v, _ := newTestView(t, src)
	ctx := context.Background()

	require.NoError(t, v.SetFilter(ctx, "class_id", "3"))
	require.NoError(t, v.SetFilter(ctx, "class_id", AllValue))

	_, present := src.Last().Filters["class_id"]
	assert.False(t, present)
	assert.Empty(t, src.Last().Values().Get("class_id"))
}

func TestView_InvalidFilterDoesNotFetch(t *testing.T) {
	src := &recordingSource{}
	v, _ := newTestView(t, src)

	err := v.SetFilter(context.Background(), "class_id", "seven")
	require.ErrorIs(t, err, ErrInvalidFilter)
	assert.Empty(t, src.Calls())

	err = v.SetFilter(context.Background(), "nope", "1")
	require.ErrorIs(t, err, ErrUnknownFilter)
}

func TestView_MixedFiltersCommitNothingOnError(t *testing.T) {
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		return Page[row]{Items: rows(10), Total: 100, TotalPages: 10}, nil
	}}
	v, _ := newTestView(t, src, WithPageSize[row](10))
	ctx := context.Background()
	require.NoError(t, v.SetPage(ctx, 2))
	calls := len(src.Calls())

	err := v.SetFilters(ctx, map[string]string{"date_from": "2024-01-01", "class_id": "abc"})
	require.ErrorIs(t, err, ErrInvalidFilter)

	snap := v.Snapshot()
	assert.Empty(t, snap.Filters)
	assert.Equal(t, 2, snap.Page.Index)
	assert.Len(t, src.Calls(), calls)
	assert.Empty(t, src.Last().Filters)

	require.NoError(t, v.SetFilters(ctx, map[string]string{"date_from": "2024-01-01", "class_id": "4"}))
	last := src.Last()
	assert.Equal(t, 0, last.Page.Index)
	assert.Equal(t, map[string]string{"date_from": "2024-01-01", "class_id": "4"}, last.Filters)
	assert.Len(t, src.Calls(), calls+1)
}

func TestView_OutOfOrderResponsesKeepLatest(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &recordingSource{respond: func(q Query) (Page[row], error) {
		if q.Filters["class_id"] == "1" {
			close(started)
			<-release
			return Page[row]{Items: []row{{ID: 1, Name: "stale"}}, Total: 1}, nil
		}
		return Page[row]{Items: []row{{ID: 2, Name: "fresh"}}, Total: 1}, nil
	}}
	v, _ := newTestView(t, src)
	ctx := context.Background()

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = v.SetFilter(ctx, "class_id", "1")
	}()
	<-started

	require.NoError(t, v.SetFilter(ctx, "class_id", "2"))
	close(release)
	wg.Wait()

	require.ErrorIs(t, slowErr, ErrSuperseded)
	snap := v.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "fresh", snap.Rows[0].Name)
	assert.False(t, snap.Loading)
}

func TestView_FailureKeepsStaleItems(t *testing.T) {
	fail := false
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		if fail {
			return Page[row]{}, errors.New("boom")
		}
		return Page[row]{Items: rows(3), Total: 3}, nil
	}}
	v, _ := newTestView(t, src, WithDescriber[row](func(error) string { return "Something went wrong. Please try again." }))
	ctx := context.Background()

	require.NoError(t, v.Refresh(ctx))
	fail = true
	require.Error(t, v.Refresh(ctx))

	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 3)
	require.Error(t, snap.Err)
	assert.True(t, snap.Notification.Visible)
	assert.Equal(t, SeverityError, snap.Notification.Severity)
	assert.Equal(t, "Something went wrong. Please try again.", snap.Notification.Text)
}

func TestView_DebouncedSearchIssuesOneFetch(t *testing.T) {
	src := &recordingSource{}
	v, clock := newTestView(t, src)

	for _, text := range []string{"a", "ad", "ada"} {
		v.TypeSearch(text)
		clock.Advance(100 * DefaultSearchDebounce / 300)
	}
	assert.Empty(t, src.Calls())
	assert.Equal(t, "ada", v.Snapshot().PendingSearch)

	clock.Advance(DefaultSearchDebounce)
	calls := src.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ada", calls[0].Filters[SearchField])
	assert.Equal(t, 0, calls[0].Page.Index)

	v.TypeSearch("ada ")
	clock.Advance(DefaultSearchDebounce)
	assert.Len(t, src.Calls(), 1, "trimmed text equal to the committed search does not refetch")
}

func TestView_MutationRefetchesSnapshotOnce(t *testing.T) {
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		return Page[row]{Items: rows(10), Total: 50, TotalPages: 5}, nil
	}}
	mut := &recordingMutator{}
	v, _ := newTestView(t, src, WithPageSize[row](10), WithMutator[row](mut), WithLabel[row]("Student"))
	ctx := context.Background()

	require.NoError(t, v.SetFilter(ctx, "class_id", "4"))
	require.NoError(t, v.SetPage(ctx, 2))
	want := v.Query()
	before := len(src.Calls())

	_, err := v.Update(ctx, 9, map[string]any{"status": "Inactive"})
	require.NoError(t, err)

	calls := src.Calls()
	require.Len(t, calls, before+1)
	assert.True(t, want.Equal(calls[len(calls)-1]))
	assert.Equal(t, []int{9}, mut.updated)

	n := v.Notifier().Current()
	assert.Equal(t, SeveritySuccess, n.Severity)
	assert.Equal(t, "Student #9 updated", n.Text)
}

func TestView_DeleteDeclinedMakesNoRequest(t *testing.T) {
	src := &recordingSource{}
	mut := &recordingMutator{}
	v, _ := newTestView(t, src, WithMutator[row](mut))
	ctx := context.Background()

	var prompt string
	deleted, err := v.Delete(ctx, 3, ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	}))
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, prompt, "#3")
	assert.Empty(t, mut.deleted)
	assert.Empty(t, src.Calls())

	_, err = v.Delete(ctx, 3, nil)
	require.ErrorIs(t, err, ErrConfirmationRequired)

	deleted, err = v.Delete(ctx, 3, AlwaysConfirm)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []int{3}, mut.deleted)
	assert.Len(t, src.Calls(), 1)
}

func TestView_MutationFailureNotifiesWithoutRefetch(t *testing.T) {
	src := &recordingSource{}
	mut := &recordingMutator{err: errors.New("name: field required")}
	v, _ := newTestView(t, src, WithMutator[row](mut))

	_, err := v.Create(context.Background(), row{Name: ""})
	require.Error(t, err)
	assert.Empty(t, src.Calls())
	n := v.Notifier().Current()
	assert.Equal(t, SeverityError, n.Severity)
	assert.Equal(t, "name: field required", n.Text)
}

func TestView_ApproveRejectsInvalidDecision(t *testing.T) {
	v, _ := newTestView(t, &recordingSource{}, WithMutator[row](&recordingMutator{}))
	_, err := v.Approve(context.Background(), 1, model.ApprovalRequest{Decision: "maybe"})
	require.ErrorIs(t, err, ErrInvalidDecision)

	_, err = v.Approve(context.Background(), 1, model.ApprovalRequest{Decision: model.DecisionApproved})
	require.NoError(t, err)
}

func TestView_WithoutMutatorIsReadOnly(t *testing.T) {
	v, _ := newTestView(t, &recordingSource{})
	_, err := v.Create(context.Background(), row{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestView_AuthGate(t *testing.T) {
	src := &recordingSource{}
	guard := &stubGuard{}
	v, _ := newTestView(t, src, WithGuard[row](guard))
	ctx := context.Background()

	require.ErrorIs(t, v.Refresh(ctx), common.ErrNotAuthenticated)
	assert.Empty(t, src.Calls())

	guard.authenticated = true
	src.respond = func(Query) (Page[row], error) { return Page[row]{}, errUnauthorized }
	require.Error(t, v.Refresh(ctx))
	assert.Equal(t, 1, guard.redirects)
	assert.False(t, v.Notifier().Current().Visible)

	require.ErrorIs(t, v.Refresh(ctx), common.ErrNotAuthenticated)
	assert.Len(t, src.Calls(), 1)
}

func TestView_ConfigGate(t *testing.T) {
	src := &recordingSource{}
	ready := &stubReadiness{err: errors.New("config unavailable")}
	v, _ := newTestView(t, src, WithReadiness[row](ready, "attendance-management"))

	err := v.Refresh(context.Background())
	require.ErrorIs(t, err, common.ErrConfigNotReady)
	assert.Empty(t, src.Calls())
	assert.Equal(t, []string{"attendance-management"}, ready.domains)

	ready.err = nil
	require.NoError(t, v.Refresh(context.Background()))
	assert.Len(t, src.Calls(), 1)
}

func TestView_ClientTabsDoNotRefetch(t *testing.T) {
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		return Page[row]{Items: rows(6), Total: 6}, nil
	}}
	v, _ := newTestView(t, src, WithTabs(
		ClientTab[row]("All", nil),
		ClientTab("Active", func(r row) bool { return r.Active }),
		ClientTab("Inactive", func(r row) bool { return !r.Active }),
	))
	ctx := context.Background()

	require.NoError(t, v.Refresh(ctx))
	assert.Equal(t, ClientFetchLimit, src.Last().Page.Size)
	assert.Len(t, v.Snapshot().Rows, 6)

	require.NoError(t, v.SelectTab(ctx, 1))
	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 3)
	assert.Equal(t, 3, snap.Total)
	for _, r := range snap.Rows {
		assert.True(t, r.Active)
	}
	assert.Len(t, src.Calls(), 1)
}

func TestView_ClientTabsLoadEveryPage(t *testing.T) {
	all := rows(750)
	src := &recordingSource{respond: func(q Query) (Page[row], error) {
		start := min(q.Page.Index*q.Page.Size, len(all))
		end := min(start+q.Page.Size, len(all))
		return Page[row]{Items: all[start:end], Total: len(all), TotalPages: 2}, nil
	}}
	v, _ := newTestView(t, src, WithTabs(
		ClientTab[row]("All", nil),
		ClientTab("Active", func(r row) bool { return r.Active }),
	))
	ctx := context.Background()

	require.NoError(t, v.Refresh(ctx))
	calls := src.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, PageRequest{Index: 0, Size: ClientFetchLimit}, calls[0].Page)
	assert.Equal(t, PageRequest{Index: 1, Size: ClientFetchLimit}, calls[1].Page)

	snap := v.Snapshot()
	assert.Len(t, snap.Rows, 750)
	assert.Equal(t, 750, snap.Total)
	assert.Equal(t, 1, snap.TotalPages)

	require.NoError(t, v.SelectTab(ctx, 1))
	assert.Equal(t, 375, v.Snapshot().Total)

	require.NoError(t, v.NextPage(ctx))
	require.NoError(t, v.SetPage(ctx, 3))
	assert.Equal(t, 0, v.Snapshot().Page.Index)
	assert.Len(t, src.Calls(), 2)
}

func TestView_ServerTabsRefetchFromFirstPage(t *testing.T) {
	src := &recordingSource{respond: func(Query) (Page[row], error) {
		return Page[row]{Items: rows(10), Total: 30}, nil
	}}
	v, _ := newTestView(t, src, WithPageSize[row](10), WithTabs(
		ServerTab[row]("All", nil),
		ServerTab[row]("Pending", map[string]string{"status": "Pending"}),
	))
	ctx := context.Background()

	require.NoError(t, v.SetPage(ctx, 2))
	require.NoError(t, v.SelectTab(ctx, 1))

	last := src.Last()
	assert.Equal(t, 0, last.Page.Index)
	assert.Equal(t, "Pending", last.Params["status"])
	assert.Equal(t, "Pending", last.Values().Get("status"))

	require.NoError(t, v.SelectTab(ctx, 1))
	assert.Len(t, src.Calls(), 2, "reselecting the active tab is a no-op")
	require.Error(t, v.SelectTab(ctx, 5))
}

func TestView_EmptyLastPageStepsBack(t *testing.T) {
	src := &recordingSource{respond: func(q Query) (Page[row], error) {
		if q.Page.Index >= 2 {
			return Page[row]{Items: nil, Total: 20, TotalPages: 2}, nil
		}
		return Page[row]{Items: rows(10), Total: 20, TotalPages: 2}, nil
	}}
	v, _ := newTestView(t, src, WithPageSize[row](10))

	require.NoError(t, v.SetPage(context.Background(), 2))
	snap := v.Snapshot()
	assert.Equal(t, 1, snap.Page.Index)
	assert.Len(t, snap.Rows, 10)
}

func TestView_DeletingLastRowOfLastPageRefetchesOnce(t *testing.T) {
	var mu sync.Mutex
	total := 21
	src := &recordingSource{respond: func(q Query) (Page[row], error) {
		mu.Lock()
		defer mu.Unlock()
		start := min(q.Page.Index*q.Page.Size, total)
		end := min(start+q.Page.Size, total)
		return Page[row]{Items: rows(total)[start:end], Total: total, TotalPages: (total + q.Page.Size - 1) / q.Page.Size}, nil
	}}
	mut := &recordingMutator{}
	v, _ := newTestView(t, src, WithPageSize[row](10), WithMutator[row](mut))
	ctx := context.Background()

	require.NoError(t, v.SetPage(ctx, 2))
	require.Len(t, v.Snapshot().Rows, 1)
	before := len(src.Calls())

	mu.Lock()
	total = 20
	mu.Unlock()
	ok, err := v.Delete(ctx, 21, AlwaysConfirm)
	require.NoError(t, err)
	require.True(t, ok)

	calls := src.Calls()
	require.Len(t, calls, before+1)
	assert.Equal(t, 1, calls[len(calls)-1].Page.Index)
	snap := v.Snapshot()
	assert.Equal(t, 1, snap.Page.Index)
	assert.Len(t, snap.Rows, 10)
}

func TestView_NewViewRejectsBadConfig(t *testing.T) {
	_, err := NewView[row](context.Background(), &recordingSource{}, WithPageSize[row](7))
	require.Error(t, err)

	_, err = NewView(context.Background(), &recordingSource{}, WithTabs(
		ServerTab[row]("All", nil),
		ClientTab[row]("Mine", nil),
	))
	require.ErrorIs(t, err, ErrMixedTabs)
}
