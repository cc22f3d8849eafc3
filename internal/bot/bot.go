// Package bot serves the Telegram webhook: the /ping diagnostics command and
// a private-chat relay that echoes raw updates back to the sender. Updates
// arrive on a token-derived secret path so only Telegram can reach it.
package bot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/telegram"
)

// maxUpdateAge is how stale an update may be before it is dropped. Telegram
// redelivers queued updates after an outage; replying to those hours later
// only confuses people.
const maxUpdateAge = 5 * time.Minute

// maxUpdateBody bounds the webhook request body.
const maxUpdateBody = 1 << 20

// WebhookPath returns the path the webhook is mounted at: the operator's
// chosen segment followed by a digest of the bot token. Knowing the first
// segment alone is not enough to forge updates.
func WebhookPath(cfg config.BotConfig) string {
	sum := sha256.Sum256([]byte(cfg.Token.Value()))
	return "/" + cfg.SecretPath + "/" + hex.EncodeToString(sum[:])
}

// Register points Telegram at this deployment. Production clears any stale
// webhook and installs the current one; registration failures are logged and
// swallowed, the gateway still serves without a bot. Development skips
// registration and just logs the bot identity.
func Register(ctx context.Context, client *telegram.Client, cfg config.BotConfig, production bool, logger *slog.Logger) {
	if !client.Enabled() {
		return
	}
	if !production {
		me, err := client.GetMe(ctx)
		if err != nil {
			logger.Warn("bot identity lookup failed", "error", err)
			return
		}
		logger.Info("bot ready", "id", me.ID, "username", me.Username)
		return
	}
	if err := client.DeleteWebhook(ctx); err != nil {
		logger.Warn("webhook delete failed", "error", err)
	}
	url := cfg.WebhookBase + WebhookPath(cfg)
	if err := client.SetWebhook(ctx, url); err != nil {
		logger.Warn("webhook set failed", "error", err)
		return
	}
	logger.Info("webhook registered", "url", cfg.WebhookBase+"/"+cfg.SecretPath+"/…")
}

// Handler processes webhook updates.
type Handler struct {
	client  *telegram.Client
	logger  *slog.Logger
	started time.Time
	now     func() time.Time
}

// NewHandler builds the update handler. started anchors the uptime reported
// by /ping.
func NewHandler(client *telegram.Client, started time.Time, logger *slog.Logger) *Handler {
	return &Handler{
		client:  client,
		logger:  logger.With("component", "bot"),
		started: started,
		now:     time.Now,
	}
}

// update mirrors telegram.Update but keeps the raw message bytes so the
// relay can echo fields our trimmed types do not model.
type update struct {
	UpdateID int64           `json:"update_id"`
	Message  json.RawMessage `json:"message,omitempty"`
}

// ServeHTTP always answers 200 so Telegram does not requeue updates we
// chose to drop or failed to act on.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodPost {
		return
	}
	var upd update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody)).Decode(&upd); err != nil {
		h.logger.Warn("undecodable update", "error", err)
		return
	}
	if len(upd.Message) == 0 {
		return
	}
	var msg telegram.Message
	if err := json.Unmarshal(upd.Message, &msg); err != nil {
		h.logger.Warn("undecodable message", "error", err)
		return
	}
	if msg.Chat == nil || h.stale(&msg) {
		return
	}

	ctx := r.Context()
	switch {
	case isCommand(msg.Text, "/ping"):
		h.handlePing(ctx, &msg)
	case msg.Chat.Type == "private" && !skipRelay(msg.Text):
		h.handleRelay(ctx, &msg, upd.Message)
	}
}

func (h *Handler) stale(msg *telegram.Message) bool {
	return h.now().Sub(time.Unix(msg.Date, 0)) >= maxUpdateAge
}

// handlePing replies immediately, then edits the reply with the measured
// send round trip and the process uptime.
func (h *Handler) handlePing(ctx context.Context, msg *telegram.Message) {
	start := h.now()
	reply, err := h.client.SendReply(ctx, msg.Chat.ID, msg.MessageID, "Ping !")
	if err != nil {
		h.logger.Warn("ping reply failed", "error", err)
		return
	}
	speed := float64(h.now().Sub(start).Microseconds()) / 1000
	text := fmt.Sprintf("🏓 Pong !!\n<b>Speed</b> - <code>%.2fms</code>\n<b>Uptime</b> - <code>%s</code>",
		speed, formatUptime(h.now().Sub(h.started)))
	if _, err := h.client.EditMessageText(ctx, reply.Chat.ID, reply.MessageID, text); err != nil {
		h.logger.Warn("ping edit failed", "error", err)
	}
}

// handleRelay echoes the raw message back to a private chat so people can
// inspect what Telegram actually delivered.
func (h *Handler) handleRelay(ctx context.Context, msg *telegram.Message, raw json.RawMessage) {
	var indented bytes.Buffer
	if err := json.Indent(&indented, raw, "", "  "); err != nil {
		indented.Reset()
		indented.Write(raw)
	}
	text := "<pre>" + indented.String() + "</pre>"
	if _, err := h.client.SendReply(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		h.logger.Warn("relay failed", "error", err)
	}
}

func isCommand(text, cmd string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == cmd {
		return true
	}
	// Commands may carry the bot mention or arguments.
	return strings.HasPrefix(lower, cmd+"@") || strings.HasPrefix(lower, cmd+" ")
}

// skipRelay lists texts the relay must not echo because a command handler
// owns them.
func skipRelay(text string) bool {
	lower := strings.ToLower(text)
	for _, cmd := range []string{"/ping"} {
		if strings.Contains(lower, cmd) {
			return true
		}
	}
	return false
}

// formatUptime renders a duration as Nd:Nh:Nm:Ns.
func formatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	days := total / 86400
	total %= 86400
	hours := total / 3600
	total %= 3600
	return fmt.Sprintf("%dd:%dh:%dm:%ds", days, hours, total/60, total%60)
}
