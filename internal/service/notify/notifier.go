// Package notify delivers operator notifications about monitoring outcomes.
package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/andres10976/slotwatch/internal/model"
)

type Kind string

const (
	KindSupplyCreated      Kind = "supply_created"
	KindRateLimitExhausted Kind = "rate_limit_exhausted"
	KindError              Kind = "error"
)

// Event is one notification. Text is the rendered HTML body; the other
// fields carry the same facts in structured form.
type Event struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Time        time.Time       `json:"time"`
	Text        string          `json:"text"`
	OperationID string          `json:"operation_id,omitempty"`
	DraftID     int64           `json:"draft_id,omitempty"`
	Interval    *model.Interval `json:"interval,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Sender delivers an event to a single recipient.
type Sender interface {
	Send(ctx context.Context, recipient string, ev Event) error
}

// Notifier fans events out to a fixed recipient list. Delivery failures
// are logged per recipient and never returned.
type Notifier struct {
	recipients []string
	sender     Sender
	clock      clockwork.Clock
	logger     zerolog.Logger
}

func New(sender Sender, recipients []string, clock clockwork.Clock, logger zerolog.Logger) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Notifier{
		recipients: recipients,
		sender:     sender,
		clock:      clock,
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

// NotifySuccess reports a committed supply. Monitoring has already been
// stopped when this is sent.
func (n *Notifier) NotifySuccess(ctx context.Context, operationID string, draftID int64, iv model.Interval) {
	text := strings.Join([]string{
		"✅ <b>Supply created</b>",
		"",
		"🆔 <b>Operation ID:</b> " + html.EscapeString(operationID),
		"📦 <b>Draft ID:</b> " + strconv.FormatInt(draftID, 10),
		"🕒 <b>Slot:</b> " + html.EscapeString(iv.From) + " → " + html.EscapeString(iv.To),
		"",
		"Monitoring stopped.",
	}, "\n")

	n.broadcast(ctx, Event{
		Kind:        KindSupplyCreated,
		Text:        text,
		OperationID: operationID,
		DraftID:     draftID,
		Interval:    &iv,
	})
}

// NotifyRateLimitExhausted reports that draft creation gave up after
// repeated 429 responses. message is the last upstream message.
func (n *Notifier) NotifyRateLimitExhausted(ctx context.Context, message string) {
	now := n.clock.Now()
	text := strings.Join([]string{
		"⚠️ <b>Draft creation rate limit exceeded</b>",
		"",
		"🕐 Time: " + now.Format("2006-01-02 15:04:05 MST"),
		"💬 API message: <code>" + html.EscapeString(message) + "</code>",
		"",
		"Monitoring continues; the next draft refresh will try again.",
	}, "\n")

	n.broadcast(ctx, Event{
		Kind:    KindRateLimitExhausted,
		Text:    text,
		Message: message,
	})
}

// NotifyError reports a failure that needs operator attention.
func (n *Notifier) NotifyError(ctx context.Context, what string, err error) {
	msg := fmt.Sprint(err)
	text := "❌ <b>Error:</b> " + html.EscapeString(what) + "\n\n<pre>" + html.EscapeString(msg) + "</pre>"

	n.broadcast(ctx, Event{
		Kind:    KindError,
		Text:    text,
		Message: what + ": " + msg,
	})
}

func (n *Notifier) broadcast(ctx context.Context, ev Event) {
	if len(n.recipients) == 0 {
		n.logger.Warn().Str("kind", string(ev.Kind)).Msg("no recipients configured")
		return
	}
	ev.ID = uuid.NewString()
	ev.Time = n.clock.Now()

	sent := 0
	for _, r := range n.recipients {
		if err := n.sender.Send(ctx, r, ev); err != nil {
			n.logger.Error().Err(err).Str("recipient", r).Str("kind", string(ev.Kind)).Msg("notification failed")
			continue
		}
		sent++
	}
	n.logger.Info().
		Str("kind", string(ev.Kind)).
		Int("sent", sent).
		Int("recipients", len(n.recipients)).
		Msg("notification delivered")
}
