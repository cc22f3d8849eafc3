package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/notapi/notapi/internal/cache"
	"github.com/notapi/notapi/internal/config"
)

// songRecord is the normalized search hit plus scraped lyrics, also the
// cache entry shape.
type songRecord struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
	Lyrics string `json:"lyrics"`
}

// geniusSearch is the relevant slice of the upstream search response.
type geniusSearch struct {
	Response struct {
		Hits []struct {
			Result struct {
				Title         string `json:"title"`
				URL           string `json:"url"`
				PrimaryArtist struct {
					Name string `json:"name"`
				} `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

var errNoSongs = errors.New("no songs found")

// Lyrics searches the Genius catalog and scrapes the matched song's lyrics
// from its public page. The search API carries no lyrics itself.
type Lyrics struct {
	baseURL string
	token   string
	client  *http.Client
	store   *cache.Store
	logger  *slog.Logger
}

// NewLyrics creates the lyrics provider. store may be nil.
func NewLyrics(cfg config.LyricsConfig, store *cache.Store, logger *slog.Logger) *Lyrics {
	return &Lyrics{
		baseURL: cfg.URL,
		token:   cfg.Token.Value(),
		client:  &http.Client{Timeout: 30 * time.Second},
		store:   store,
		logger:  logger.With("component", "lyrics"),
	}
}

// Name implements Provider.
func (l *Lyrics) Name() string { return "lyrics" }

// Invoke implements Provider. The q parameter is the free-text search.
func (l *Lyrics) Invoke(ctx context.Context, p Params) ([]Outcome, bool) {
	if p.Query == "" {
		return nil, false
	}

	var o Outcome

	var rec songRecord
	if l.store.GetJSON(ctx, "lyrics:"+p.Query, &rec) {
		return []Outcome{songOutcome(rec)}, true
	}

	rec, err := l.search(ctx, p.Query)
	if err != nil {
		o.Set("error", err.Error())
		return []Outcome{o}, true
	}

	l.store.SetJSON(ctx, "lyrics:"+p.Query, rec)
	return []Outcome{songOutcome(rec)}, true
}

func songOutcome(rec songRecord) Outcome {
	var o Outcome
	o.Set("error", "")
	o.Set("title", rec.Title)
	o.Set("artist", rec.Artist)
	o.Set("url", rec.URL)
	o.Set("lyrics", rec.Lyrics)
	return o
}

func (l *Lyrics) search(ctx context.Context, query string) (songRecord, error) {
	u := l.baseURL + "/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return songRecord{}, err
	}
	req.Header.Set("Authorization", "Bearer "+l.token)

	resp, err := l.client.Do(req)
	if err != nil {
		return songRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return songRecord{}, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return songRecord{}, err
	}

	var gs geniusSearch
	if err := json.Unmarshal(body, &gs); err != nil {
		return songRecord{}, fmt.Errorf("decoding search response: %w", err)
	}
	if len(gs.Response.Hits) == 0 {
		return songRecord{}, errNoSongs
	}

	hit := gs.Response.Hits[0].Result
	rec := songRecord{
		Title:  hit.Title,
		Artist: hit.PrimaryArtist.Name,
		URL:    hit.URL,
	}

	lyrics, err := l.scrape(ctx, rec.URL)
	if err != nil {
		return songRecord{}, fmt.Errorf("fetching lyrics: %w", err)
	}
	rec.Lyrics = lyrics

	return rec, nil
}

var (
	lyricsContainerRe = regexp.MustCompile(`(?s)<div[^>]+data-lyrics-container="true"[^>]*>(.*?)</div>`)
	brRe              = regexp.MustCompile(`<br\s*/?>`)
	tagRe             = regexp.MustCompile(`<[^>]*>`)
)

// scrape pulls the lyrics text out of a song page. The page embeds the
// lyrics in divs marked data-lyrics-container.
func (l *Lyrics) scrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("song page returned status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}

	matches := lyricsContainerRe.FindAllSubmatch(page, -1)
	if len(matches) == 0 {
		return "", errors.New("no lyrics found on song page")
	}

	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n")
		}
		block := brRe.ReplaceAll(m[1], []byte("\n"))
		block = tagRe.ReplaceAll(block, nil)
		sb.Write(block)
	}
	return strings.TrimSpace(html.UnescapeString(sb.String())), nil
}
