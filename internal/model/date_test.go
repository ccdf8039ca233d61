package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "calendar date", input: `"2024-03-01"`, want: "2024-03-01"},
		{name: "timestamp truncated", input: `"2024-03-01T15:04:05Z"`, want: "2024-03-01"},
		{name: "null", input: `null`, want: ""},
		{name: "empty string", input: `""`, want: ""},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `20240301`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDate_MarshalZeroIsNull(t *testing.T) {
	b, err := json.Marshal(struct {
		D Date `json:"d"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":null}`, string(b))

	b, err = json.Marshal(NewDate(time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-06"`, string(b))
}
