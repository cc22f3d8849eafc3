// Package config handles loading and validation of NotAPI configuration
// from a YAML file and environment variables. Environment variables always
// override file-based values. Env var names follow the struct path with a
// NOTAPI_ prefix:
//
//	server.address → NOTAPI_SERVER_ADDRESS
//	bot.log_chat_id → NOTAPI_BOT_LOG_CHAT_ID
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// defaultConfigFile is the default path for the YAML configuration file.
// Override via NOTAPI_CONFIG_FILE environment variable.
const defaultConfigFile = "/etc/notapi/config.yaml"

// QueueCapacity is the process-wide cap on concurrently executing provider
// invocations. Fixed for the lifetime of the process; deliberately not a
// config knob.
const QueueCapacity = 3

// ---------------------------------------------------------------------------
// Enum types — typed string constants replace scattered hard-coded values.
// All canonical forms are lowercase; Load() normalizes before validation.
// ---------------------------------------------------------------------------

// Mode selects the runtime profile. Production registers the bot webhook and
// arms the keep-alive scheduler; development logs the bot identity and leaves
// the scheduler off.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeProduction, ModeDevelopment:
		return true
	}
	return false
}

// LogLevel controls the minimum severity for structured log output.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// LogFormat selects the structured log encoding.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

func (f LogFormat) Valid() bool {
	switch f {
	case LogFormatJSON, LogFormatText:
		return true
	}
	return false
}

// TLSVersion selects the minimum TLS protocol version.
type TLSVersion string

const (
	TLSVersion12 TLSVersion = "1.2"
	TLSVersion13 TLSVersion = "1.3"
)

func (v TLSVersion) Valid() bool {
	switch v {
	case TLSVersion12, TLSVersion13, "":
		return true
	}
	return false
}

// Config is the top-level NotAPI configuration.
type Config struct {
	Mode      Mode            `yaml:"mode"       env:"MODE"`
	Server    ServerConfig    `yaml:"server"     envPrefix:"SERVER_"`
	Admin     AdminConfig     `yaml:"admin"      envPrefix:"ADMIN_"`
	Bot       BotConfig       `yaml:"bot"        envPrefix:"BOT_"`
	Providers ProvidersConfig `yaml:"providers"  envPrefix:"PROVIDERS_"`
	Geo       GeoConfig       `yaml:"geo"        envPrefix:"GEO_"`
	KeepAlive KeepAliveConfig `yaml:"keep_alive" envPrefix:"KEEP_ALIVE_"`
	Blocklist BlocklistConfig `yaml:"blocklist"  envPrefix:"BLOCKLIST_"`
	Cache     CacheConfig     `yaml:"cache"      envPrefix:"CACHE_"`
	Logging   LoggingConfig   `yaml:"logging"    envPrefix:"LOGGING_"`
	Tracing   TracingConfig   `yaml:"tracing"    envPrefix:"TRACING_"`
}

// ServerConfig holds the public gateway server settings.
type ServerConfig struct {
	Address      string          `yaml:"address"       env:"ADDRESS"`
	ReadTimeout  string          `yaml:"read_timeout"  env:"READ_TIMEOUT"`
	WriteTimeout string          `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  string          `yaml:"idle_timeout"  env:"IDLE_TIMEOUT"`
	DrainTimeout string          `yaml:"drain_timeout" env:"DRAIN_TIMEOUT"`
	TLS          ServerTLSConfig `yaml:"tls"           envPrefix:"TLS_"`

	// InvokeTimeout bounds an invocation's queue wait plus run time. Empty
	// disables the bound (legacy behavior: a slow external call holds its
	// slot until the transport gives up). When it fires the caller gets
	// 503; the slot is still released once the invocation returns.
	InvokeTimeout string `yaml:"invoke_timeout" env:"INVOKE_TIMEOUT"`

	// TrustedProxies is a list of CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are trusted. When empty, proxy headers are always
	// trusted (legacy behavior). When set, proxy headers are only honored
	// when RemoteAddr falls within one of these ranges.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`

	// TrustedIPDepth controls which entry in X-Forwarded-For to use when
	// the request arrives through a trusted proxy chain. 0 (default) uses
	// the leftmost (client-provided) entry. A positive value N selects the
	// Nth entry from the right.
	TrustedIPDepth int `yaml:"trusted_ip_depth" env:"TRUSTED_IP_DEPTH"`
}

// ServerTLSConfig holds optional TLS termination settings.
type ServerTLSConfig struct {
	Enabled      bool       `yaml:"enabled"       env:"ENABLED"`
	CertFile     string     `yaml:"cert_file"     env:"CERT_FILE"`
	KeyFile      string     `yaml:"key_file"      env:"KEY_FILE"`
	HTTP3Enabled bool       `yaml:"http3_enabled" env:"HTTP3_ENABLED"`
	MinVersion   TLSVersion `yaml:"min_version"   env:"MIN_VERSION"`
}

// AdminConfig holds the admin/observability server settings.
type AdminConfig struct {
	Address      string `yaml:"address"       env:"ADDRESS"`
	ReadTimeout  string `yaml:"read_timeout"  env:"READ_TIMEOUT"`
	WriteTimeout string `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout  string `yaml:"idle_timeout"  env:"IDLE_TIMEOUT"`
}

// BotConfig holds Telegram bot and operator-channel settings. When Token is
// empty the bot webhook and the notification sink are disabled; the API
// pipeline itself keeps working.
type BotConfig struct {
	Token      RedactedString `yaml:"token"       env:"TOKEN"`
	APIBaseURL string         `yaml:"api_base_url" env:"API_BASE_URL"`

	// WebhookBase is the public base URL of this deployment; the webhook is
	// registered at WebhookBase + the token-derived secret path.
	WebhookBase string `yaml:"webhook_base" env:"WEBHOOK_BASE"`

	// SecretPath is the operator-chosen first segment of the webhook path.
	SecretPath string `yaml:"secret_path" env:"SECRET_PATH"`

	// LogChatID is the operator channel that receives the audit trail of
	// successful API calls.
	LogChatID int64 `yaml:"log_chat_id" env:"LOG_CHAT_ID"`
}

// ProvidersConfig holds per-provider external service settings.
type ProvidersConfig struct {
	Spamwatch SpamwatchConfig `yaml:"spamwatch" envPrefix:"SPAMWATCH_"`
	Lyrics    LyricsConfig    `yaml:"lyrics"    envPrefix:"LYRICS_"`
}

// SpamwatchConfig holds ban-list service settings.
type SpamwatchConfig struct {
	URL   string         `yaml:"url"   env:"URL"`
	Token RedactedString `yaml:"token" env:"TOKEN"`
}

// LyricsConfig holds lyrics search service settings.
type LyricsConfig struct {
	URL   string         `yaml:"url"   env:"URL"`
	Token RedactedString `yaml:"token" env:"TOKEN"`
}

// GeoConfig holds the geolocation enrichment service settings.
type GeoConfig struct {
	URL      string `yaml:"url"       env:"URL"`
	Timeout  string `yaml:"timeout"   env:"TIMEOUT"`
	CacheTTL string `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// KeepAliveConfig holds the periodic self-probe settings. URL defaults to
// bot.webhook_base when empty.
type KeepAliveConfig struct {
	URL          string `yaml:"url"           env:"URL"`
	Cadence      string `yaml:"cadence"       env:"CADENCE"`
	ProbeTimeout string `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
}

// BlocklistConfig holds the static IP and user-agent blocklists. The env
// forms are space-separated, matching how the legacy deployment provisioned
// them.
type BlocklistConfig struct {
	IPs        []string `yaml:"ips"         env:"IPS"         envSeparator:" "`
	UserAgents []string `yaml:"user_agents" env:"USER_AGENTS" envSeparator:" "`
}

// CacheConfig holds the optional Redis-backed lookup cache for external
// provider responses (spamwatch, lyrics). Disabled when Endpoint is empty.
type CacheConfig struct {
	Endpoint string         `yaml:"endpoint" env:"ENDPOINT"`
	Password RedactedString `yaml:"password" env:"PASSWORD"`
	DB       int            `yaml:"db"       env:"DB"`
	TTL      string         `yaml:"ttl"      env:"TTL"`
}

// Enabled reports whether the lookup cache is configured.
func (c CacheConfig) Enabled() bool { return c.Endpoint != "" }

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"  env:"LEVEL"`
	Format LogFormat `yaml:"format" env:"FORMAT"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"      env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint"     env:"ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate  float64 `yaml:"sample_rate"  env:"SAMPLE_RATE"`
}

// RedactedString is a string that masks its value in String(), GoString(),
// and MarshalJSON() to prevent accidental leakage in logs or serialized
// output. Use .Value() to access the underlying secret.
type RedactedString string

const redactedPlaceholder = "[REDACTED]"

// Value returns the underlying secret string.
func (r RedactedString) Value() string { return string(r) }

// String implements fmt.Stringer — always returns a redacted placeholder.
func (r RedactedString) String() string {
	if r == "" {
		return ""
	}
	return redactedPlaceholder
}

// GoString implements fmt.GoStringer for %#v.
func (r RedactedString) GoString() string { return r.String() }

// MarshalJSON masks the value in JSON output.
func (r RedactedString) MarshalJSON() ([]byte, error) {
	if r == "" {
		return []byte(`""`), nil
	}
	return json.Marshal(redactedPlaceholder)
}

// Defaults returns a Config populated with sensible default values.
func Defaults() *Config {
	return &Config{
		Mode: ModeDevelopment,
		Server: ServerConfig{
			Address:      ":3000",
			ReadTimeout:  "30s",
			WriteTimeout: "60s",
			IdleTimeout:  "120s",
			DrainTimeout: "30s",
		},
		Admin: AdminConfig{
			Address:      ":9090",
			ReadTimeout:  "5s",
			WriteTimeout: "10s",
			IdleTimeout:  "30s",
		},
		Bot: BotConfig{
			APIBaseURL: "https://api.telegram.org",
			SecretPath: "webhook",
		},
		Providers: ProvidersConfig{
			Spamwatch: SpamwatchConfig{URL: "https://api.spamwat.ch"},
			Lyrics:    LyricsConfig{URL: "https://api.genius.com"},
		},
		Geo: GeoConfig{
			URL:      "http://ip-api.com/json",
			Timeout:  "5s",
			CacheTTL: "1h",
		},
		KeepAlive: KeepAliveConfig{
			Cadence:      "6h",
			ProbeTimeout: "3s",
		},
		Cache: CacheConfig{
			TTL: "10m",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatJSON,
		},
		Tracing: TracingConfig{
			ServiceName: "notapi",
			SampleRate:  0.1,
		},
	}
}

// ConfigFilePath returns the resolved config file path (from env or default).
func ConfigFilePath() string {
	configFile := os.Getenv("NOTAPI_CONFIG_FILE")
	if configFile == "" {
		configFile = defaultConfigFile
	}
	return configFile
}

// Load reads configuration from a YAML file and overlays environment variable
// overrides. The config file path defaults to /etc/notapi/config.yaml and can
// be overridden via NOTAPI_CONFIG_FILE.
func Load() (*Config, error) {
	return LoadFromPath(ConfigFilePath())
}

// LoadFromPath reads configuration from the given YAML file and overlays
// environment variable overrides. Used by the config watcher to reload.
func LoadFromPath(configFile string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(configFile) // config file path is intentionally user-provided.
	if err == nil {
		if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configFile, yamlErr)
		}
	}
	// If the file doesn't exist, we continue with defaults + env overrides.

	if envErr := env.ParseWithOptions(cfg, env.Options{Prefix: "NOTAPI_"}); envErr != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", envErr)
	}

	cfg.normalize()

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize lowercases all enum fields so that YAML values like "Production"
// or env values like "PRODUCTION" match the canonical lowercase constants,
// and resolves defaults that depend on other fields.
func (cfg *Config) normalize() {
	cfg.Mode = Mode(strings.ToLower(string(cfg.Mode)))
	cfg.Logging.Level = LogLevel(strings.ToLower(string(cfg.Logging.Level)))
	cfg.Logging.Format = LogFormat(strings.ToLower(string(cfg.Logging.Format)))
	cfg.Server.TLS.MinVersion = TLSVersion(normalizeTLSVersion(string(cfg.Server.TLS.MinVersion)))

	cfg.Bot.WebhookBase = strings.TrimRight(cfg.Bot.WebhookBase, "/")
	if cfg.KeepAlive.URL == "" {
		cfg.KeepAlive.URL = cfg.Bot.WebhookBase
	}

	// Drop empty entries that a sloppy space-separated env value produces.
	cfg.Blocklist.IPs = compact(cfg.Blocklist.IPs)
	cfg.Blocklist.UserAgents = compact(cfg.Blocklist.UserAgents)
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeTLSVersion maps the various accepted spellings to canonical "1.2" / "1.3".
func normalizeTLSVersion(v string) string {
	switch strings.ToLower(v) {
	case "1.3", "tls13", "tls1.3":
		return string(TLSVersion13)
	case "1.2", "tls12", "tls1.2":
		return string(TLSVersion12)
	default:
		return v // leave as-is; validation will catch invalid values
	}
}

// Validate checks that the configuration is internally consistent.
func Validate(cfg *Config) error {
	if !cfg.Mode.Valid() {
		return fmt.Errorf("invalid mode %q: must be production or development", cfg.Mode)
	}
	if err := validateDurations(cfg); err != nil {
		return err
	}
	if err := validateTLS(cfg); err != nil {
		return err
	}
	if err := validateBot(cfg); err != nil {
		return err
	}
	if err := validateURLs(cfg); err != nil {
		return err
	}
	if err := validateLogging(cfg); err != nil {
		return err
	}
	return validateTracing(cfg)
}

func validateDurations(cfg *Config) error {
	durations := []struct {
		name, val string
	}{
		{"server.read_timeout", cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout},
		{"server.idle_timeout", cfg.Server.IdleTimeout},
		{"server.drain_timeout", cfg.Server.DrainTimeout},
		{"server.invoke_timeout", cfg.Server.InvokeTimeout},
		{"admin.read_timeout", cfg.Admin.ReadTimeout},
		{"admin.write_timeout", cfg.Admin.WriteTimeout},
		{"admin.idle_timeout", cfg.Admin.IdleTimeout},
		{"geo.timeout", cfg.Geo.Timeout},
		{"geo.cache_ttl", cfg.Geo.CacheTTL},
		{"keep_alive.cadence", cfg.KeepAlive.Cadence},
		{"keep_alive.probe_timeout", cfg.KeepAlive.ProbeTimeout},
		{"cache.ttl", cfg.Cache.TTL},
	}

	for _, d := range durations {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	return nil
}

func validateTLS(cfg *Config) error {
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
	}
	if cfg.Server.TLS.HTTP3Enabled && !cfg.Server.TLS.Enabled {
		return fmt.Errorf("server.tls.http3_enabled requires server.tls.enabled to be true (QUIC mandates TLS)")
	}
	if v := cfg.Server.TLS.MinVersion; v != "" && !v.Valid() {
		return fmt.Errorf("invalid server.tls.min_version %q: must be 1.2 or 1.3", v)
	}
	return nil
}

func validateBot(cfg *Config) error {
	if cfg.Bot.Token == "" {
		// Bot-less operation is allowed outside production: the API works,
		// nothing is audited. Production without a token is a misdeploy.
		if cfg.Mode == ModeProduction {
			return fmt.Errorf("bot.token is required in production mode")
		}
		return nil
	}
	if cfg.Bot.LogChatID == 0 {
		return fmt.Errorf("bot.log_chat_id is required when bot.token is set")
	}
	if cfg.Mode == ModeProduction && cfg.Bot.WebhookBase == "" {
		return fmt.Errorf("bot.webhook_base is required in production mode")
	}
	if cfg.Bot.SecretPath == "" || strings.Contains(cfg.Bot.SecretPath, "/") {
		return fmt.Errorf("bot.secret_path must be a single non-empty path segment")
	}
	return nil
}

func validateURLs(cfg *Config) error {
	urls := []struct {
		name, val string
	}{
		{"bot.api_base_url", cfg.Bot.APIBaseURL},
		{"bot.webhook_base", cfg.Bot.WebhookBase},
		{"providers.spamwatch.url", cfg.Providers.Spamwatch.URL},
		{"providers.lyrics.url", cfg.Providers.Lyrics.URL},
		{"geo.url", cfg.Geo.URL},
		{"keep_alive.url", cfg.KeepAlive.URL},
	}
	for _, u := range urls {
		if u.val == "" {
			continue
		}
		parsed, err := url.Parse(u.val)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid %s %q: scheme and host are required", u.name, u.val)
		}
	}
	return nil
}

func validateLogging(cfg *Config) error {
	if !cfg.Logging.Level.Valid() {
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}
	if !cfg.Logging.Format.Valid() {
		return fmt.Errorf("invalid logging.format %q", cfg.Logging.Format)
	}
	return nil
}

func validateTracing(cfg *Config) error {
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool { return c.Mode == ModeProduction }

// ParseDuration parses a duration string, returning def if the string is empty.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// MustParseDuration parses a duration string, returning def on empty or error.
func MustParseDuration(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s, def)
	if err != nil {
		return def
	}
	return d
}
