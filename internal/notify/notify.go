// Package notify delivers the audit trail of successful API calls to the
// operator's Telegram channel. Delivery is best-effort: the caller's
// response never learns whether it worked, and a record that cannot be
// delivered is dropped.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/notapi/notapi/internal/observability"
	"github.com/notapi/notapi/internal/providers"
	"github.com/notapi/notapi/internal/reqctx"
	"github.com/notapi/notapi/internal/telegram"
)

// inlineLimit is Telegram's message length ceiling. A rendered result at or
// above it ships as a document attachment instead.
const inlineLimit = 4096

var (
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// Notifier posts call records to the operator channel.
type Notifier struct {
	client  *telegram.Client
	chatID  int64
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Notifier. client may be nil, in which case Notify is a
// no-op.
func New(client *telegram.Client, chatID int64, logger *slog.Logger, metrics *observability.Metrics) *Notifier {
	return &Notifier{
		client:  client,
		chatID:  chatID,
		logger:  logger.With("component", "notify"),
		metrics: metrics,
	}
}

// Enabled reports whether notifications are configured.
func (n *Notifier) Enabled() bool { return n != nil && n.client.Enabled() }

// Notify posts one call record. Small results go inline as an HTML message;
// large ones go as a .txt attachment named after the provider and the
// caller's address digits. A failed attachment is retried once as an inline
// message carrying the failure; if that fails too, the record is dropped
// silently.
func (n *Notifier) Notify(ctx context.Context, provider string, v reqctx.Visitor, res providers.Result) {
	if !n.Enabled() {
		return
	}

	rendered, err := res.Indent()
	if err != nil {
		n.logger.Error("rendering result for notification", "error", err)
		return
	}

	userBlock := visitorBlock(v)

	if len(rendered) < inlineLimit {
		text := fmt.Sprintf("<pre>%s</pre>\n\n%s", html.EscapeString(string(rendered)), userBlock)
		if _, err := n.client.SendMessage(ctx, n.chatID, text); err != nil {
			n.fallback(ctx, err, userBlock)
			return
		}
		if n.metrics != nil {
			n.metrics.IncNotifyInline()
		}
		return
	}

	plain := htmlTagRe.ReplaceAllString(userBlock, "")
	content := fmt.Sprintf("%s\n\n%s", rendered, plain)
	filename := AttachmentName(provider, v.IP)

	if _, err := n.client.SendDocument(ctx, n.chatID, filename, []byte(content)); err != nil {
		n.fallback(ctx, err, userBlock)
		return
	}
	if n.metrics != nil {
		n.metrics.IncNotifyAttachment()
	}
}

// fallback makes exactly one inline retry carrying the delivery error. A
// second failure ends the attempt; the caller's response is long gone and
// there is nobody left to tell.
func (n *Notifier) fallback(ctx context.Context, cause error, userBlock string) {
	text := fmt.Sprintf("<pre>%s</pre>\n\n%s", html.EscapeString(cause.Error()), userBlock)
	if _, err := n.client.SendMessage(ctx, n.chatID, text); err != nil {
		if n.metrics != nil {
			n.metrics.IncNotifyDropped()
		}
		n.logger.Warn("notification dropped", "cause", cause, "fallback_error", err)
		return
	}
	if n.metrics != nil {
		n.metrics.IncNotifyFallback()
	}
}

// AttachmentName builds the document filename: provider name plus the
// digits of the caller's address.
func AttachmentName(provider, ip string) string {
	digits := nonDigitRe.ReplaceAllString(ip, "")
	return fmt.Sprintf("%s_%s.txt", provider, digits)
}

// visitorBlock renders the visitor context as one HTML line per facet:
// uppercase key in bold, value in a code span. Empty geo facets are left
// out, matching what a loopback visitor historically produced.
func visitorBlock(v reqctx.Visitor) string {
	var sb strings.Builder
	line := func(key, val string) {
		fmt.Fprintf(&sb, "<b>%s:</b> <code>%s</code>\n", strings.ToUpper(key), html.EscapeString(val))
	}

	line("ip", v.IP)
	if v.Country != "" {
		line("country", v.Country)
	}
	if v.Region != "" {
		line("region", v.Region)
	}
	if v.City != "" {
		line("city", v.City)
	}
	if v.Timezone != "" {
		line("timezone", v.Timezone)
	}
	line("browser", v.Browser)
	line("version", v.Version)
	line("os", v.OS)
	line("platform", v.Platform)
	line("source", v.Source)
	return sb.String()
}
