package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Publisher broadcasts alert events on one real-time channel. Delivery is
// best effort; implementations must be safe for concurrent use.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// NoopPublisher drops every event. Used when no channel is configured.
type NoopPublisher struct{}

func (NoopPublisher) Name() string { return "noop" }
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Fanout publishes each event to every channel, continuing past failures.
type Fanout struct {
	publishers []Publisher
	log        logrus.FieldLogger
}

// NewFanout combines publishers. Nil entries are skipped.
func NewFanout(log logrus.FieldLogger, publishers ...Publisher) *Fanout {
	f := &Fanout{log: log}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Name implements Publisher.
func (f *Fanout) Name() string { return "fanout" }

// Len reports how many channels are configured.
func (f *Fanout) Len() int { return len(f.publishers) }

// Publish implements Publisher. The returned error joins every channel
// failure; it is nil when all channels accepted the event.
func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			f.log.WithError(err).WithFields(logrus.Fields{
				"channel":  p.Name(),
				"alert_id": ev.AlertID,
				"event":    ev.Type,
			}).Warn("alert broadcast failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
