package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Veraticus/schoolctl/internal/model"
)

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type row struct {
	Name   string
	ID     int
	Active bool
}

func (r row) EntityID() int { return r.ID }

func rows(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{ID: i + 1, Name: "row", Active: i%2 == 0}
	}
	return out
}

type recordingSource struct {
	respond func(q Query) (Page[row], error)
	calls   []Query
	mu      sync.Mutex
}

func (s *recordingSource) List(_ context.Context, q Query) (Page[row], error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	respond := s.respond
	s.mu.Unlock()
	if respond == nil {
		return Page[row]{Items: rows(3), Total: 3, TotalPages: 1}, nil
	}
	return respond(q)
}

func (s *recordingSource) Calls() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Query(nil), s.calls...)
}

func (s *recordingSource) Last() Query {
	calls := s.Calls()
	if len(calls) == 0 {
		return Query{}
	}
	return calls[len(calls)-1]
}

type recordingMutator struct {
	err     error
	deleted []int
	updated []int
	created int
	mu      sync.Mutex
}

func (m *recordingMutator) Create(_ context.Context, r row) (row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return row{}, m.err
	}
	m.created++
	return r, nil
}

func (m *recordingMutator) Update(_ context.Context, id int, _ map[string]any) (row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return row{}, m.err
	}
	m.updated = append(m.updated, id)
	return row{ID: id}, nil
}

func (m *recordingMutator) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *recordingMutator) Approve(_ context.Context, id int, _ model.ApprovalRequest) (row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return row{}, m.err
	}
	return row{ID: id}, nil
}

var errUnauthorized = errors.New("401 unauthorized")

type stubGuard struct {
	authenticated bool
	redirects     int
}

func (g *stubGuard) IsAuthenticated() bool { return g.authenticated }

func (g *stubGuard) HandleUnauthorized(err error) bool {
	if errors.Is(err, errUnauthorized) {
		g.authenticated = false
		g.redirects++
		return true
	}
	return false
}

type stubReadiness struct {
	err     error
	domains []string
}

func (r *stubReadiness) Ensure(_ context.Context, domain string) error {
	r.domains = append(r.domains, domain)
	return r.err
}
