package testutil

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/schoolctl/internal/model"
)

type countingTransport struct {
	calls atomic.Int64
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func TestSetupBackend(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rt := &countingTransport{}
	b := SetupBackend(t, WithNow(now), WithTransport(rt))

	user := b.Login("teacher", "teacher123")
	assert.Equal(t, model.UserTeacher, user.Type)
	assert.True(t, b.Guard.IsAuthenticated())
	assert.WithinDuration(t, now.Add(time.Hour), b.Guard.Expiry(), time.Second)

	sessions, err := b.Client.Sessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, int64(1), rt.calls.Load())
}
