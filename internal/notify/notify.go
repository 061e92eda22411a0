package notify

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event is published on cards.events.<kind> after the owning DB
// transaction has committed; it informs the cardholder channel, never
// the core state machine.
type Event struct {
	Kind    string         `json:"kind"` // otp_reported|card_blocked|fraud_settled|card_reinstated
	UserID  string         `json:"user_id"`
	CardID  string         `json:"card_id"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

type Notifier interface {
	Publish(ev Event)
}

type natsNotifier struct {
	nc *nats.Conn
}

func NewNATS(nc *nats.Conn) Notifier { return &natsNotifier{nc: nc} }

func (n *natsNotifier) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("notify marshal", "err", err)
		return
	}
	if err := n.nc.Publish("cards.events."+ev.Kind, data); err != nil {
		slog.Error("notify publish", "kind", ev.Kind, "err", err)
	}
}

// Noop is used when NATS_URL is unset; the simulator works without a broker.
type Noop struct{}

func (Noop) Publish(Event) {}
