package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/schoolctl/internal/api"
	"github.com/Veraticus/schoolctl/internal/common"
	"github.com/Veraticus/schoolctl/internal/model"
	"github.com/Veraticus/schoolctl/internal/sandbox"
)

// harness points the command line at a fresh sandbox and a private store.
func harness(t *testing.T) {
	t.Helper()
	ts := httptest.NewServer(sandbox.New(sandbox.Options{PageBase: 1}).Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("SCHOOLCTL_API_BASE_URL", ts.URL)
	t.Setenv("SCHOOLCTL_DATABASE_PATH", filepath.Join(dir, "schoolctl.db"))
	t.Setenv("SCHOOLCTL_LOGGING_LEVEL", "error")
	t.Setenv("SCHOOLCTL_PASSWORD", "")
}

// run executes one command line and returns what it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func login(t *testing.T) {
	t.Helper()
	out := mustRun(t, "login", "-u", "admin", "-p", "admin123")
	require.Contains(t, out, "Logged in as admin")
}

// records lists a screen as JSON.
func records(t *testing.T, args ...string) []map[string]any {
	t.Helper()
	out := mustRun(t, append([]string{"list"}, append(args, "--json")...)...)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs), out)
	return recs
}

func TestVersion(t *testing.T) {
	harness(t)
	assert.Equal(t, "schoolctl dev\n", mustRun(t, "version"))
}

func TestLoginAndWhoami(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "whoami")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, string(model.UserAdmin))

	assert.Contains(t, mustRun(t, "logout"), "Logged out")
	_, err := run(t, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, describe(err), "Not logged in")
}

func TestLoginPrompts(t *testing.T) {
	harness(t)

	out, err := run(t, "teacher\nteacher123\n", "login")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Username:")
	assert.Contains(t, out, "Logged in as teacher")
}

func TestLoginPasswordFromEnvironment(t *testing.T) {
	harness(t)
	t.Setenv("SCHOOLCTL_PASSWORD", "staff123")

	assert.Contains(t, mustRun(t, "login", "-u", "staff"), "Logged in as staff")
}

func TestLoginRejected(t *testing.T) {
	harness(t)

	_, err := run(t, "", "login", "-u", "admin", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password.", describe(err))
}

func TestCommandsNeedLogin(t *testing.T) {
	harness(t)

	for _, args := range [][]string{
		{"list", "students"},
		{"show-tabs", "leave"},
		{"progression", "sessions"},
	} {
		_, err := run(t, "", args...)
		require.Error(t, err, args)
		assert.Equal(t, `Not logged in. Run "schoolctl login" first.`, describe(err), args)
	}
}

func TestList(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "list", "attendance")
	assert.Contains(t, out, "Attendance · All")
	assert.Contains(t, out, "Page 1 of 3 · 60 records")

	out = mustRun(t, "list", "attendance", "--page", "3")
	assert.Contains(t, out, "Page 3 of 3")

	out = mustRun(t, "list", "attendance", "--page-size", "50", "--tab", "present")
	assert.Contains(t, out, "Attendance · Present")
}

func TestListJSON(t *testing.T) {
	harness(t)
	login(t)

	assert.Len(t, records(t, "students", "--page-size", "50"), 40)
	assert.Len(t, records(t, "students"), 25)
}

func TestListRejectsBadInput(t *testing.T) {
	harness(t)
	login(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown screen", args: []string{"list", "grades"}, want: "grades"},
		{name: "unknown tab", args: []string{"list", "purchases", "--tab", "Lost"}, want: "unknown tab"},
		{name: "filter without value", args: []string{"list", "leave", "--filter", "status"}, want: "not name=value"},
		{name: "unknown filter", args: []string{"list", "leave", "--filter", "colour=red"}, want: "unknown filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, describe(err), tt.want)
		})
	}
}

func TestShowTabs(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "show-tabs", "purchases")
	assert.Contains(t, out, "All, Pending, Completed")
	assert.Contains(t, out, "create, delete, approve")
	assert.Contains(t, out, "student_id, item_id, quantity")
	assert.Contains(t, out, "date_from")
}

func TestUpdateAndDelete(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "update", "pricing", "1", "--set", "unit_price=1350")
	assert.Contains(t, out, "Price #1 updated")

	out, err := run(t, "n\n", "delete", "pricing", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Delete Price #1? This cannot be undone.")
	assert.Contains(t, out, "Deletion cancelled.")

	out = mustRun(t, "delete", "pricing", "1", "--force")
	assert.Contains(t, out, "Price #1 deleted")

	_, err = run(t, "", "delete", "pricing", "abc", "--force")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record ID")
}

func TestCreate(t *testing.T) {
	harness(t)
	login(t)

	_, err := run(t, "", "create", "purchases", "--set", "student_id=1", "--set", "item_id=1")
	require.Error(t, err)
	assert.Contains(t, describe(err), "quantity")

	before := len(records(t, "purchases", "--page-size", "100"))
	out := mustRun(t, "create", "purchases", "--set", "student_id=1,item_id=1,quantity=2")
	assert.Contains(t, out, "Purchase created")
	assert.Len(t, records(t, "purchases", "--page-size", "100"), before+1)
}

func TestApprove(t *testing.T) {
	harness(t)
	login(t)

	pending := records(t, "purchases", "--tab", "pending", "--page-size", "100")
	require.NotEmpty(t, pending)
	id := strconv.Itoa(int(pending[0]["id"].(float64)))

	out := mustRun(t, "approve", "purchases", id, "-m", "Paid in cash")
	assert.Contains(t, out, "Purchase #"+id+" approved")
	assert.Len(t, records(t, "purchases", "--tab", "pending", "--page-size", "100"), len(pending)-1)

	_, err := run(t, "", "approve", "attendance", "1")
	require.Error(t, err)
}

func TestPricingBulk(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "pricing", "bulk", "--set", "1=1350", "--set", "2=99.50")
	assert.Contains(t, out, "Updated 2 prices")

	_, err := run(t, "", "pricing", "bulk", "--set", "1=-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"-3" is not a valid price`)
}

func TestParsePrices(t *testing.T) {
	req, err := parsePrices([]string{"1=10", " 2 = 0.5 "})
	require.NoError(t, err)
	require.Len(t, req.Items, 2)
	assert.Equal(t, 2, req.Items[1].ID)
	assert.Equal(t, "0.5", req.Items[1].UnitPrice.String())

	for _, bad := range [][]string{nil, {"1"}, {"x=1"}, {"1=abc"}, {"1=1", "1=2"}} {
		_, err := parsePrices(bad)
		assert.Error(t, err, bad)
	}
}

func TestProgression(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "progression", "sessions")
	assert.Contains(t, out, "2024")
	assert.Contains(t, out, "2025")

	out, err := run(t, "n\n", "progression", "run", "--to", "2025")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2024 → 2025")
	assert.Contains(t, out, "Progression cancelled.")

	students := records(t, "students", "--page-size", "100", "--tab", "active")
	require.GreaterOrEqual(t, len(students), 2)
	first := strconv.Itoa(int(students[0]["id"].(float64)))
	second := strconv.Itoa(int(students[1]["id"].(float64)))

	out = mustRun(t, "progression", "run", "--from", "2024", "--to", "2025",
		"--retain", first, "--exclude", second, "--yes")
	assert.Contains(t, out, "Progression complete")
	assert.Contains(t, out, "Retained:  1")
	assert.Contains(t, out, "Processed: "+strconv.Itoa(len(students)-1))
}

func TestProgressionRejectsSameSession(t *testing.T) {
	harness(t)
	login(t)

	_, err := run(t, "", "progression", "run", "--from", "2025", "--to", "2025", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestFindSession(t *testing.T) {
	sessions := []model.Session{
		{ID: 1, Name: "2024", IsCurrent: true},
		{ID: 2, Name: "2025"},
	}

	s, err := findSession(sessions, "")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ID)

	s, err = findSession(sessions, "2025")
	require.NoError(t, err)
	assert.Equal(t, 2, s.ID)

	s, err = findSession(sessions, "1")
	require.NoError(t, err)
	assert.Equal(t, "2024", s.Name)

	_, err = findSession(sessions, "1999")
	require.Error(t, err)

	_, err = findSession(sessions[1:], "")
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	harness(t)
	login(t)
	dir := t.TempDir()

	page := filepath.Join(dir, "page.csv")
	out := mustRun(t, "export", "attendance", page)
	assert.Contains(t, out, "Exported 25 rows")

	all := filepath.Join(dir, "all.csv")
	out = mustRun(t, "export", "attendance", all, "--all")
	assert.Contains(t, out, "Exported 60 rows")

	f, err := os.Open(all)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 61)

	pdf := filepath.Join(dir, "students.pdf")
	mustRun(t, "export", "students", pdf)
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = run(t, "", "export", "students", filepath.Join(dir, "students.xlsx"))
	require.Error(t, err)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	harness(t)

	out := mustRun(t, "config", "show")
	assert.Contains(t, out, "api.base_url")
	assert.NotContains(t, out, "sandbox-signing-secret")
}

func TestConfigLookup(t *testing.T) {
	harness(t)
	login(t)

	out := mustRun(t, "config", "lookup", "attendance-management")
	assert.Contains(t, out, "statuses")
	assert.Contains(t, out, "Present")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "plain", describe(errors.New("plain")))
	assert.Equal(t, "Try again.", describe(common.NewUserError("Try again.", errors.New("inner"))))
	assert.Equal(t, api.MsgAuth, describe(&api.Error{Kind: api.KindAuth, Status: 401}))
}
