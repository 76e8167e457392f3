package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shyim/db-auto-backup/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.NotifyConfig
		expected string
	}{
		{
			name:     "nothing configured",
			cfg:      config.NotifyConfig{},
			expected: "",
		},
		{
			name: "success hook wins",
			cfg: config.NotifyConfig{
				SuccessHookURL: "https://hooks.example.com/ok",
				HealthchecksID: "abc",
				UptimeKumaURL:  "https://kuma.example.com/push",
			},
			expected: "https://hooks.example.com/ok",
		},
		{
			name:     "healthchecks default host",
			cfg:      config.NotifyConfig{HealthchecksID: "abc"},
			expected: "https://hc-ping.com/abc",
		},
		{
			name:     "healthchecks custom host",
			cfg:      config.NotifyConfig{HealthchecksID: "abc", HealthchecksHost: "hc.example.com"},
			expected: "https://hc.example.com/abc",
		},
		{
			name:     "uptime kuma last",
			cfg:      config.NotifyConfig{UptimeKumaURL: "https://kuma.example.com/push"},
			expected: "https://kuma.example.com/push",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveTarget(tt.cfg))
		})
	}
}

func TestReport_Body(t *testing.T) {
	r := Report{Containers: []string{"db", "cache"}}
	assert.Equal(t, "db\ncache", r.Body())

	r.StorageEnabled = true
	r.Uploads = []string{"backups/db.sql"}
	assert.Equal(t, "db\ncache\n\nS3 Uploads:\nbackups/db.sql", r.Body())

	r.Uploads = nil
	assert.Equal(t, "db\ncache\n\nS3 Uploads:\n", r.Body())
}

type captured struct {
	method string
	body   string
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, captured{method: r.Method, body: string(body)})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWebhook_Get(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK)

	err := NewWebhook(srv.URL, false).Send(context.Background(), Report{Containers: []string{"db"}})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodGet, (*calls)[0].method)
	assert.Empty(t, (*calls)[0].body)
}

func TestWebhook_Post(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK)

	report := Report{
		Containers:     []string{"db", "cache"},
		Uploads:        []string{"backups/db.sql", "backups/cache.rdb"},
		StorageEnabled: true,
	}
	err := NewWebhook(srv.URL, true).Send(context.Background(), report)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
	assert.Equal(t, "db\ncache\n\nS3 Uploads:\nbackups/db.sql\nbackups/cache.rdb", (*calls)[0].body)
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError)

	err := NewWebhook(srv.URL, false).Send(context.Background(), Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhook_Unreachable(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	err := NewWebhook(url, false).Send(context.Background(), Report{})
	assert.Error(t, err)
}
