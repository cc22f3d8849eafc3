package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notapi/notapi/internal/config"
)

type banRecord struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := New(context.Background(), config.CacheConfig{
		Endpoint: mr.Addr(),
		TTL:      "10m",
	}, slog.Default(), nil)
	require.NoError(t, err)
	require.NotNil(t, s)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNew(t *testing.T) {
	t.Run("disabled config yields nil store", func(t *testing.T) {
		s, err := New(context.Background(), config.CacheConfig{}, slog.Default(), nil)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("unreachable endpoint fails at startup", func(t *testing.T) {
		_, err := New(context.Background(), config.CacheConfig{
			Endpoint: "127.0.0.1:1",
			TTL:      "10m",
		}, slog.Default(), nil)
		assert.Error(t, err)
	})
}

func TestGetSetJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s, _ := newTestStore(t)
		ctx := context.Background()

		s.SetJSON(ctx, "spamwatch:123", banRecord{ID: 123, Reason: "spam"})

		var got banRecord
		require.True(t, s.GetJSON(ctx, "spamwatch:123", &got))
		assert.Equal(t, int64(123), got.ID)
		assert.Equal(t, "spam", got.Reason)
	})

	t.Run("miss returns false", func(t *testing.T) {
		s, _ := newTestStore(t)

		var got banRecord
		assert.False(t, s.GetJSON(context.Background(), "nope", &got))
	})

	t.Run("entries expire with the configured TTL", func(t *testing.T) {
		s, mr := newTestStore(t)
		ctx := context.Background()

		s.SetJSON(ctx, "spamwatch:9", banRecord{ID: 9})
		mr.FastForward(11 * time.Minute)

		var got banRecord
		assert.False(t, s.GetJSON(ctx, "spamwatch:9", &got))
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		s, mr := newTestStore(t)

		require.NoError(t, mr.Set("notapi:lookup:bad", "{not json"))

		var got banRecord
		assert.False(t, s.GetJSON(context.Background(), "bad", &got))
	})
}

func TestNilStore(t *testing.T) {
	t.Run("all operations are safe on nil", func(t *testing.T) {
		var s *Store

		var got banRecord
		assert.False(t, s.GetJSON(context.Background(), "k", &got))
		s.SetJSON(context.Background(), "k", got)
		assert.NoError(t, s.Ping(context.Background()))
		assert.NoError(t, s.Close())
	})
}

func TestPing(t *testing.T) {
	t.Run("ping fails after redis goes away", func(t *testing.T) {
		s, mr := newTestStore(t)

		require.NoError(t, s.Ping(context.Background()))
		mr.Close()
		assert.Error(t, s.Ping(context.Background()))
	})
}
