package reqctx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/observability"
)

// Geo holds the location facets attached to a visitor. Coarse on purpose:
// range/coordinate level data is deliberately not collected.
type Geo struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// geoResponse is the wire shape of the upstream lookup service.
type geoResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
	Timezone   string `json:"timezone"`
}

// GeoClient looks up location facets for an IP, caching results in-process.
// Lookups are best-effort: any failure yields an empty Geo and the request
// proceeds without location data.
type GeoClient struct {
	baseURL string
	client  *http.Client
	cache   *ristretto.Cache[string, Geo]
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGeoClient creates a geolocation client. metrics may be nil.
func NewGeoClient(cfg config.GeoConfig, logger *slog.Logger, metrics *observability.Metrics) (*GeoClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, Geo]{
		NumCounters: 10_000, // ~1k distinct IPs expected; 10x counters per the ristretto docs
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("geo cache: %w", err)
	}

	return &GeoClient{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: config.MustParseDuration(cfg.Timeout, 5*time.Second),
		},
		cache:   cache,
		ttl:     config.MustParseDuration(cfg.CacheTTL, time.Hour),
		logger:  logger.With("component", "geo"),
		metrics: metrics,
	}, nil
}

// Lookup returns location facets for ip. Loopback addresses and lookup
// failures return an empty Geo.
func (g *GeoClient) Lookup(ctx context.Context, ip string) Geo {
	if ip == "" || IsLoopback(ip) {
		return Geo{}
	}

	if cached, ok := g.cache.Get(ip); ok {
		return cached
	}

	geo, err := g.fetch(ctx, ip)
	if err != nil {
		if g.metrics != nil {
			g.metrics.IncGeoErrors()
		}
		g.logger.Debug("geo lookup failed", "ip", ip, "error", err)
		return Geo{}
	}

	g.cache.SetWithTTL(ip, geo, 1, g.ttl)
	return geo
}

func (g *GeoClient) fetch(ctx context.Context, ip string) (Geo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+ip, nil)
	if err != nil {
		return Geo{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Geo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Geo{}, fmt.Errorf("geo service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Geo{}, err
	}

	var gr geoResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return Geo{}, fmt.Errorf("decoding geo response: %w", err)
	}
	if gr.Status != "success" {
		return Geo{}, fmt.Errorf("geo lookup for %s failed: %s", ip, gr.Message)
	}

	return Geo{
		Country:  gr.Country,
		Region:   gr.RegionName,
		City:     gr.City,
		Timezone: gr.Timezone,
	}, nil
}

// Wait blocks until pending cache writes are applied. Test helper.
func (g *GeoClient) Wait() { g.cache.Wait() }

// Close releases the cache's background goroutines.
func (g *GeoClient) Close() { g.cache.Close() }
