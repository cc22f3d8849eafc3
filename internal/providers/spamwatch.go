package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/notapi/notapi/internal/cache"
	"github.com/notapi/notapi/internal/config"
)

// banRecord is the normalized ban entry exposed to clients and stored in the
// lookup cache. Moderator identity and ban message are withheld on purpose.
type banRecord struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
	Date   string `json:"date"`
}

// spamwatchBan is the upstream wire shape.
type spamwatchBan struct {
	ID      int64  `json:"id"`
	Reason  string `json:"reason"`
	Date    int64  `json:"date"`
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Spamwatch looks up Telegram user IDs on the SpamWatch ban list.
type Spamwatch struct {
	baseURL string
	token   string
	client  *http.Client
	store   *cache.Store
	logger  *slog.Logger
}

// NewSpamwatch creates the ban-list provider. store may be nil.
func NewSpamwatch(cfg config.SpamwatchConfig, store *cache.Store, logger *slog.Logger) *Spamwatch {
	return &Spamwatch{
		baseURL: cfg.URL,
		token:   cfg.Token.Value(),
		client:  &http.Client{Timeout: 15 * time.Second},
		store:   store,
		logger:  logger.With("component", "spamwatch"),
	}
}

// Name implements Provider.
func (s *Spamwatch) Name() string { return "spamwatch" }

// Invoke implements Provider. The id parameter selects the user to look up.
// Lookup failures are reported in the outcome's error field; the HTTP
// request itself always succeeds.
func (s *Spamwatch) Invoke(ctx context.Context, p Params) ([]Outcome, bool) {
	if p.ID == "" {
		return nil, false
	}

	var o Outcome

	var rec banRecord
	if s.store.GetJSON(ctx, "spamwatch:"+p.ID, &rec) {
		o.Set("error", "")
		o.Set("id", rec.ID)
		o.Set("reason", rec.Reason)
		o.Set("date", rec.Date)
		return []Outcome{o}, true
	}

	rec, lookupErr := s.lookup(ctx, p.ID)
	if lookupErr != nil {
		o.Set("error", lookupErr.Error())
		return []Outcome{o}, true
	}

	s.store.SetJSON(ctx, "spamwatch:"+p.ID, rec)

	o.Set("error", "")
	o.Set("id", rec.ID)
	o.Set("reason", rec.Reason)
	o.Set("date", rec.Date)
	return []Outcome{o}, true
}

func (s *Spamwatch) lookup(ctx context.Context, id string) (banRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/banlist/"+id, nil)
	if err != nil {
		return banRecord{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return banRecord{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return banRecord{}, err
	}

	var ban spamwatchBan
	if err := json.Unmarshal(body, &ban); err != nil {
		return banRecord{}, fmt.Errorf("decoding ban response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ban.Error
		if msg == "" {
			msg = resp.Status
		}
		return banRecord{}, fmt.Errorf("%s", msg)
	}

	return banRecord{
		ID:     ban.ID,
		Reason: ban.Reason,
		Date:   time.Unix(ban.Date, 0).UTC().Format(time.RFC3339),
	}, nil
}
