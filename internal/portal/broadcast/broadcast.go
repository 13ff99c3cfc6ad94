// Package broadcast tells peer replicas that the cache was refreshed so they
// drop their local entries too.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dataportal/internal/platform/kafka/consumer"
	"dataportal/internal/platform/kafka/producer"
)

// Event is the refresh notice published on the refresh topic.
type Event struct {
	Instance  string    `json:"instance"`
	ClearedAt time.Time `json:"clearedAt"`
}

// Publisher is satisfied by *producer.Producer.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Invalidator drops cached entries without announcing it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Notifier publishes refresh events for one replica.
type Notifier struct {
	pub      Publisher
	topic    string
	instance string
}

func NewNotifier(pub Publisher, topic, instance string) *Notifier {
	return &Notifier{pub: pub, topic: topic, instance: instance}
}

func (n *Notifier) Announce(ctx context.Context, clearedAt time.Time) error {
	body, err := json.Marshal(Event{Instance: n.instance, ClearedAt: clearedAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode refresh event: %w", err)
	}
	return n.pub.Produce(ctx, &producer.Message{
		Topic:   n.topic,
		Key:     []byte(n.instance),
		Value:   body,
		Headers: map[string]string{"type": "portal.cache.refreshed"},
	})
}

// Listener applies refresh events from other replicas.
type Listener struct {
	instance string
	target   Invalidator
	logger   *slog.Logger
}

func NewListener(instance string, target Invalidator, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{instance: instance, target: target, logger: logger}
}

// Handle skips events this replica published and malformed payloads.
func (l *Listener) Handle(ctx context.Context, msg *consumer.Message) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		l.logger.WarnContext(ctx, "dropping malformed refresh event", "offset", msg.Offset, "error", err)
		return nil
	}
	if ev.Instance == l.instance {
		return nil
	}
	if err := l.target.Invalidate(ctx); err != nil {
		return fmt.Errorf("apply refresh from %s: %w", ev.Instance, err)
	}
	l.logger.InfoContext(ctx, "cache cleared by peer refresh", "peer", ev.Instance, "cleared_at", ev.ClearedAt)
	return nil
}

var _ consumer.Handler = (*Listener)(nil)
