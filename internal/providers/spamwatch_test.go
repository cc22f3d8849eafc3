package providers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notapi/notapi/internal/cache"
	"github.com/notapi/notapi/internal/config"
)

func outcomeMap(t *testing.T, o Outcome) map[string]any {
	t.Helper()
	m := make(map[string]any, len(o.Fields))
	for _, f := range o.Fields {
		m[f.Key] = f.Value
	}
	return m
}

func TestSpamwatchInvoke(t *testing.T) {
	t.Run("banned user yields normalized record", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, "/banlist/123", r.URL.Path)
			_, _ = w.Write([]byte(`{"id":123,"reason":"spam","date":1704067200,"admin":777,"message":"internal note"}`))
		}))
		defer srv.Close()

		sw := NewSpamwatch(config.SpamwatchConfig{URL: srv.URL, Token: "tok"}, nil, slog.Default())

		outcomes, ok := sw.Invoke(context.Background(), Params{ID: "123"})
		require.True(t, ok)
		require.Len(t, outcomes, 1)

		m := outcomeMap(t, outcomes[0])
		assert.Equal(t, "Bearer tok", gotAuth)
		assert.Equal(t, "", m["error"])
		assert.Equal(t, int64(123), m["id"])
		assert.Equal(t, "spam", m["reason"])
		assert.Equal(t, "2024-01-01T00:00:00Z", m["date"])
		// Moderator identity and internal message never leave the service.
		assert.NotContains(t, m, "admin")
		assert.NotContains(t, m, "message")
	})

	t.Run("not-found user reports the upstream error as data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":404,"error":"Not Found"}`))
		}))
		defer srv.Close()

		sw := NewSpamwatch(config.SpamwatchConfig{URL: srv.URL, Token: "tok"}, nil, slog.Default())

		outcomes, ok := sw.Invoke(context.Background(), Params{ID: "999"})
		require.True(t, ok)

		m := outcomeMap(t, outcomes[0])
		assert.Equal(t, "Not Found", m["error"])
	})

	t.Run("transport failure reports the error as data", func(t *testing.T) {
		sw := NewSpamwatch(config.SpamwatchConfig{URL: "http://127.0.0.1:1", Token: "tok"}, nil, slog.Default())

		outcomes, ok := sw.Invoke(context.Background(), Params{ID: "1"})
		require.True(t, ok)
		m := outcomeMap(t, outcomes[0])
		assert.NotEqual(t, "", m["error"])
	})

	t.Run("missing id param is unrecognized", func(t *testing.T) {
		sw := NewSpamwatch(config.SpamwatchConfig{URL: "http://example.com"}, nil, slog.Default())

		_, ok := sw.Invoke(context.Background(), Params{Encode: "sos"})
		assert.False(t, ok)
	})

	t.Run("repeat lookups are served from the cache", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(`{"id":55,"reason":"flood","date":1704067200}`))
		}))
		defer srv.Close()

		mr := miniredis.RunT(t)
		store, err := cache.New(context.Background(), config.CacheConfig{Endpoint: mr.Addr(), TTL: "10m"}, slog.Default(), nil)
		require.NoError(t, err)
		defer store.Close()

		sw := NewSpamwatch(config.SpamwatchConfig{URL: srv.URL, Token: "tok"}, store, slog.Default())

		first, ok := sw.Invoke(context.Background(), Params{ID: "55"})
		require.True(t, ok)
		second, ok := sw.Invoke(context.Background(), Params{ID: "55"})
		require.True(t, ok)

		assert.Equal(t, outcomeMap(t, first[0]), outcomeMap(t, second[0]))
		assert.Equal(t, int64(1), hits.Load())
	})
}
