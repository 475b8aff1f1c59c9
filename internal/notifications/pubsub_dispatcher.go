package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultPublishTimeout = 10 * time.Second

// PubSubDispatcher publishes order events to a Pub/Sub topic. Publishing is
// detached from the caller's context so a cancelled request cannot drop an
// already-committed lifecycle event.
type PubSubDispatcher struct {
	topic          *pubsub.Topic
	publishTimeout time.Duration
	logger         func(ctx context.Context, event string, fields map[string]any)
	marshal        func(any) ([]byte, error)
	printer        *message.Printer
}

// PubSubDispatcherDeps collects the dispatcher dependencies.
type PubSubDispatcherDeps struct {
	Topic          *pubsub.Topic
	PublishTimeout time.Duration
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

// NewPubSubDispatcher constructs a Pub/Sub backed event dispatcher.
func NewPubSubDispatcher(deps PubSubDispatcherDeps) (*PubSubDispatcher, error) {
	if deps.Topic == nil {
		return nil, errors.New("notifications: pubsub topic is required")
	}

	timeout := deps.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &PubSubDispatcher{
		topic:          deps.Topic,
		publishTimeout: timeout,
		logger:         logger,
		marshal:        json.Marshal,
		// Indian digit grouping for amounts rendered in notification text.
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}, nil
}

// Dispatch publishes the event, logging failures instead of surfacing them.
func (d *PubSubDispatcher) Dispatch(ctx context.Context, event OrderEvent) {
	if d == nil || d.topic == nil {
		return
	}

	if event.EventID == "" {
		event.EventID = ulid.Make().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.DisplayTotal == "" && event.GrandTotal > 0 {
		event.DisplayTotal = d.FormatAmount(event.GrandTotal)
	}

	data, err := d.marshal(event)
	if err != nil {
		d.logger(ctx, "notifications.marshal_failed", map[string]any{
			"type":  string(event.Type),
			"error": err.Error(),
		})
		return
	}

	attrs := map[string]string{
		"type":    string(event.Type),
		"eventId": event.EventID,
	}
	if number := strings.TrimSpace(event.OrderNumber); number != "" {
		attrs["orderNumber"] = number
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.publishTimeout)
	result := d.topic.Publish(publishCtx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	go func() {
		defer cancel()
		if _, err := result.Get(publishCtx); err != nil {
			d.logger(publishCtx, "notifications.publish_failed", map[string]any{
				"type":  string(event.Type),
				"error": err.Error(),
			})
		}
	}()
}

// FormatAmount renders a paise amount as a rupee string with Indian grouping.
func (d *PubSubDispatcher) FormatAmount(paise int64) string {
	rupees := paise / 100
	fraction := paise % 100
	if fraction < 0 {
		fraction = -fraction
	}
	if d == nil || d.printer == nil {
		return fmt.Sprintf("₹%d.%02d", rupees, fraction)
	}
	return d.printer.Sprintf("₹%d.%02d", rupees, fraction)
}

// Ensure interface compliance.
var _ Dispatcher = (*PubSubDispatcher)(nil)
