package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notapi/notapi/internal/config"
)

// newGeniusServer serves /search and a /song lyrics page.
func newGeniusServer(t *testing.T, lyricsHTML string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			fmt.Fprintf(w, `{"response":{"hits":[{"result":{"title":"Bohemian Rhapsody","url":"%s/song","primary_artist":{"name":"Queen"}}}]}}`, srv.URL)
		case "/song":
			_, _ = w.Write([]byte(lyricsHTML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLyricsInvoke(t *testing.T) {
	t.Run("search plus scrape produces a full outcome", func(t *testing.T) {
		page := `<html><body><div data-lyrics-container="true">Is this the real life?<br/>Is this just fantasy?</div></body></html>`
		srv := newGeniusServer(t, page)

		l := NewLyrics(config.LyricsConfig{URL: srv.URL, Token: "tok"}, nil, slog.Default())

		outcomes, ok := l.Invoke(context.Background(), Params{Query: "bohemian rhapsody"})
		require.True(t, ok)
		require.Len(t, outcomes, 1)

		m := outcomeMap(t, outcomes[0])
		assert.Equal(t, "", m["error"])
		assert.Equal(t, "Bohemian Rhapsody", m["title"])
		assert.Equal(t, "Queen", m["artist"])
		assert.Equal(t, "Is this the real life?\nIs this just fantasy?", m["lyrics"])
	})

	t.Run("multiple containers are joined and entities unescaped", func(t *testing.T) {
		page := `<div data-lyrics-container="true"><i>verse</i> one &amp; two</div><div data-lyrics-container="true">chorus</div>`
		srv := newGeniusServer(t, page)

		l := NewLyrics(config.LyricsConfig{URL: srv.URL, Token: "tok"}, nil, slog.Default())

		outcomes, _ := l.Invoke(context.Background(), Params{Query: "x"})
		m := outcomeMap(t, outcomes[0])
		assert.Equal(t, "verse one & two\nchorus", m["lyrics"])
	})

	t.Run("no hits reports error as data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response":{"hits":[]}}`))
		}))
		defer srv.Close()

		l := NewLyrics(config.LyricsConfig{URL: srv.URL, Token: "tok"}, nil, slog.Default())

		outcomes, ok := l.Invoke(context.Background(), Params{Query: "zxqw"})
		require.True(t, ok)
		m := outcomeMap(t, outcomes[0])
		assert.Equal(t, errNoSongs.Error(), m["error"])
	})

	t.Run("page without lyrics containers reports error as data", func(t *testing.T) {
		srv := newGeniusServer(t, `<html><body>no lyrics here</body></html>`)

		l := NewLyrics(config.LyricsConfig{URL: srv.URL, Token: "tok"}, nil, slog.Default())

		outcomes, ok := l.Invoke(context.Background(), Params{Query: "x"})
		require.True(t, ok)
		m := outcomeMap(t, outcomes[0])
		assert.Contains(t, m["error"], "no lyrics found")
	})

	t.Run("missing q param is unrecognized", func(t *testing.T) {
		l := NewLyrics(config.LyricsConfig{URL: "http://example.com"}, nil, slog.Default())

		_, ok := l.Invoke(context.Background(), Params{ID: "5"})
		assert.False(t, ok)
	})
}
