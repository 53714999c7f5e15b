package notify

import (
	"context"
	"sync"

	"github.com/recares/dme-matcher/internal/pkg/logger"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	// Kind names the template that produced the message, for logs and tags.
	Kind string `json:"kind"`
}

// Message kinds.
const (
	KindSubmitterConfirmation = "submitter_confirmation"
	KindSubscriberAlert       = "subscriber_alert"
	KindOptOutConfirmation    = "opt_out_confirmation"
	KindOptOutUnsuccessful    = "opt_out_unsuccessful"
	KindPartnerOptOut         = "partner_opt_out"
	KindExpirationWarning     = "expiration_warning"
)

// Channel delivers a message. Delivery is best effort: there is no receipt
// and no retry.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// LogChannel writes messages to the structured log instead of sending them.
type LogChannel struct{}

func (LogChannel) Send(_ context.Context, msg Message) error {
	logger.Info("notification (log channel)",
		"kind", msg.Kind,
		"to", msg.To,
		"subject", msg.Subject,
		"body_bytes", len(msg.HTMLBody),
	)
	return nil
}

// RecordingChannel keeps every message in memory. Used by tests and dry runs.
type RecordingChannel struct {
	mu   sync.Mutex
	msgs []Message
	// Fail, when set, is returned for messages addressed to that recipient.
	Fail map[string]error
}

func (c *RecordingChannel) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.Fail[msg.To]; ok {
		return err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

// Messages returns a copy of the delivered messages in send order.
func (c *RecordingChannel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

// To returns the delivered messages addressed to recipient.
func (c *RecordingChannel) To(recipient string) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if m.To == recipient {
			out = append(out, m)
		}
	}
	return out
}
