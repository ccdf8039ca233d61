package sandbox_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/auth"
	"github.com/Veraticus/schoolctl/internal/collection"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/sandbox"
	"github.com/Veraticus/schoolctl/internal/storage"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	server *sandbox.Server
	client *api.Client
	guard  *auth.Guard
	url    string
}

func newHarness(t *testing.T, pageBase int, username, password string) *harness {
	t.Helper()
	now := func() time.Time { return testNow }
	srv := sandbox.New(sandbox.Options{Now: now, PageBase: pageBase})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	guard := auth.NewGuard(store, auth.Options{
		BaseURL:  ts.URL,
		TokenURL: ts.URL + "/auth/token",
		ClientID: "console",
		Now:      now,
	})
	_, err = guard.Login(context.Background(), username, password)
	require.NoError(t, err)

	client, err := api.NewClient(ts.URL, api.WithTokenSource(guard), api.WithPageBase(pageBase))
	require.NoError(t, err)
	return &harness{server: srv, client: client, guard: guard, url: ts.URL}
}

func query(index, size int, params map[string]string) collection.Query {
	return collection.Query{Page: collection.PageRequest{Index: index, Size: size}, Params: params}
}

func apiKind(t *testing.T, err error) api.Kind {
	t.Helper()
	require.Error(t, err)
	kind, ok := api.KindOf(err)
	require.True(t, ok, "expected an api error, got %v", err)
	return kind
}

func TestLoginIdentifiesUser(t *testing.T) {
	h := newHarness(t, 1, "teacher", "teacher123")
	user, ok := h.guard.User()
	require.True(t, ok)
	assert.Equal(t, model.User{ID: 2, Type: model.UserTeacher}, user)
}

func TestBadPasswordRejected(t *testing.T) {
	srv := sandbox.New(sandbox.Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	g := auth.NewGuard(store, auth.Options{BaseURL: ts.URL, TokenURL: ts.URL + "/auth/token"})
	_, err = g.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.False(t, g.IsAuthenticated())
}

func TestListPagesRespectWireBase(t *testing.T) {
	for _, base := range []int{0, 1} {
		h := newHarness(t, base, "admin", "admin123")
		res := api.NewResource[model.AttendanceRecord](h.client, api.ResourceAttendance)

		first, err := res.List(context.Background(), query(0, 25, nil))
		require.NoError(t, err)
		assert.Len(t, first.Items, 25)
		assert.Equal(t, 60, first.Total)
		assert.Equal(t, 3, first.TotalPages)

		last, err := res.List(context.Background(), query(2, 25, nil))
		require.NoError(t, err)
		assert.Len(t, last.Items, 10)
		assert.NotEqual(t, first.Items[0].ID, last.Items[0].ID)
	}
}

func TestPageBaseMismatchIsValidationError(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	zeroBased, err := api.NewClient(h.url, api.WithTokenSource(h.guard), api.WithPageBase(0))
	require.NoError(t, err)

	_, err = api.NewResource[model.Student](zeroBased, api.ResourceStudents).List(context.Background(), query(0, 10, nil))
	assert.Equal(t, api.KindValidation, apiKind(t, err))
}

func TestFiltersNarrowResults(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	ctx := context.Background()
	res := api.NewResource[model.Purchase](h.client, api.ResourcePurchases)

	page, err := res.List(ctx, query(0, 100, map[string]string{"status": "Pending"}))
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	for _, p := range page.Items {
		assert.Equal(t, model.StatusPending, p.Status)
	}

	page, err = res.List(ctx, query(0, 100, map[string]string{"date_from": "2025-03-08", "date_to": "2025-03-10"}))
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	res := api.NewResource[model.Purchase](h.client, api.ResourcePurchases)

	_, err := res.Create(context.Background(), model.Purchase{StudentID: 1, ItemID: 1})
	assert.Equal(t, api.KindValidation, apiKind(t, err))

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "quantity", apiErr.Fields[0].Field)
}

func TestCreateDerivesServerFields(t *testing.T) {
	h := newHarness(t, 1, "teacher", "teacher123")
	res := api.NewResource[model.LeaveRequest](h.client, api.ResourceLeave)
	start, _ := model.ParseDate("2025-03-12")
	end, _ := model.ParseDate("2025-03-14")

	created, err := res.Create(context.Background(), model.LeaveRequest{
		StartDate: start, EndDate: end, LeaveTypeID: 1, Reason: "Flu",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created.ApplicantID)
	assert.Equal(t, "Sick", created.LeaveType)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, 3, created.Days())

	mine, err := res.List(context.Background(), query(0, 100, map[string]string{"applicant_id": "2"}))
	require.NoError(t, err)
	assert.Contains(t, mine.Items, created)
}

func TestBusinessRuleConflict(t *testing.T) {
	h := newHarness(t, 1, "teacher", "teacher123")
	res := api.NewResource[model.LeaveRequest](h.client, api.ResourceLeave)
	start, _ := model.ParseDate("2025-03-12")
	end, _ := model.ParseDate("2025-03-10")

	_, err := res.Create(context.Background(), model.LeaveRequest{
		StartDate: start, EndDate: end, LeaveTypeID: 1, Reason: "Flu",
	})
	assert.Equal(t, api.KindBusiness, apiKind(t, err))
	assert.Equal(t, "end_date must not be before start_date", api.UserMessage(err))
}

func TestApproveOnlyPending(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	ctx := context.Background()
	res := api.NewResource[model.Purchase](h.client, api.ResourcePurchases)

	pending, err := res.List(ctx, query(0, 1, map[string]string{"status": "Pending"}))
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	id := pending.Items[0].ID

	done, err := res.Approve(ctx, id, model.ApprovalRequest{Decision: model.DecisionApproved})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	_, err = res.Approve(ctx, id, model.ApprovalRequest{Decision: model.DecisionRejected})
	assert.Equal(t, api.KindBusiness, apiKind(t, err))
}

func TestUpdateAndDelete(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	ctx := context.Background()
	res := api.NewResource[model.Teacher](h.client, api.ResourceTeachers)

	updated, err := res.Update(ctx, 1, map[string]any{"subject": "Geography"})
	require.NoError(t, err)
	assert.Equal(t, "Geography", updated.Subject)
	assert.Equal(t, 1, updated.ID)

	_, err = res.Update(ctx, 1, map[string]any{"email": "not-an-email"})
	assert.Equal(t, api.KindValidation, apiKind(t, err))

	require.NoError(t, res.Delete(ctx, 1))
	_, err = res.Get(ctx, 1)
	assert.Equal(t, api.KindBusiness, apiKind(t, err))
}

func TestRejectsForeignToken(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	forged, err := sandbox.New(sandbox.Options{Secret: "other"}).Sign(sandbox.DefaultAccounts[0], testNow.Add(time.Hour))
	require.NoError(t, err)

	client, err := api.NewClient(h.url, api.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: forged})))
	require.NoError(t, err)
	_, err = api.NewResource[model.Student](client, api.ResourceStudents).List(context.Background(), query(0, 10, nil))
	assert.True(t, api.IsAuth(err))
	assert.Equal(t, api.MsgAuth, api.UserMessage(err))
}

func TestConfigurationAndReferenceData(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	ctx := context.Background()

	bag, err := h.client.Configuration(ctx, "leave-management")
	require.NoError(t, err)
	assert.Equal(t, "Sick", bag.LabelFor(model.OptionCategories, 1))

	_, err = h.client.Configuration(ctx, "unknown")
	assert.Equal(t, api.KindBusiness, apiKind(t, err))

	sessions, err := h.client.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	classes, err := h.client.Classes(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 4)
}

func TestBulkPrices(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	ctx := context.Background()

	res, err := h.client.BulkUpdatePrices(ctx, model.BulkPriceRequest{Items: []model.PriceUpdate{
		{ID: 1, UnitPrice: decimal.RequireFromString("1500")},
		{ID: 2, UnitPrice: decimal.RequireFromString("700.50")},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	row, err := api.NewResource[model.PricingRow](h.client, api.ResourcePricing).Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "700.50", row.UnitPrice.StringFixed(2))

	_, err = h.client.BulkUpdatePrices(ctx, model.BulkPriceRequest{Items: []model.PriceUpdate{
		{ID: 1, UnitPrice: decimal.RequireFromString("-1")},
	}})
	assert.Equal(t, api.KindValidation, apiKind(t, err))
}

func TestProgression(t *testing.T) {
	h := newHarness(t, 1, "admin", "admin123")
	ctx := context.Background()

	_, err := h.client.PreviewProgression(ctx, model.PreviewRequest{FromSessionID: 1, ToSessionID: 1})
	assert.Equal(t, api.KindBusiness, apiKind(t, err))

	preview, err := h.client.PreviewProgression(ctx, model.PreviewRequest{FromSessionID: 1, ToSessionID: 2})
	require.NoError(t, err)
	require.NotEmpty(t, preview.Students)

	var form1 model.Candidate
	for _, c := range preview.Students {
		if c.ClassID == 1 {
			form1 = c
			break
		}
	}
	require.NotZero(t, form1.StudentID)

	result, err := h.client.ExecuteProgression(ctx, model.ExecuteRequest{
		FromSessionID: 1,
		ToSessionID:   2,
		Actions: []model.PlannedMove{
			{StudentID: form1.StudentID, Action: model.ActionPromoted, TargetClassID: 2},
			{StudentID: 9999, Action: model.ActionRetained, TargetClassID: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Promoted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 9999, result.Failures[0].StudentID)

	moved, err := api.NewResource[model.Student](h.client, api.ResourceStudents).Get(ctx, form1.StudentID)
	require.NoError(t, err)
	assert.Equal(t, "Form 2", moved.ClassName)
}
