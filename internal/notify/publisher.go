package notify

import (
	"context"
	kafkax "github.com/ariefcatur/go-retail-stores/internal/kafka"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"strconv"
	"time"
)

// Outbox is the non-blocking side of the async producer.
type Outbox interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// Publisher implements orders.Notifier on top of an async Kafka producer.
type Publisher struct {
	Out     Outbox
	Service string
	Log     *zap.Logger
}

var _ orders.Notifier = (*Publisher)(nil)

func (p *Publisher) NotifyOrderConfirmed(ctx context.Context, o orders.Order) {
	items := make([]orders.ItemInput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemInput{ProductID: it.ProductID, Quantity: it.QuantityRequested})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		TraceID:       requestID(ctx),
		CorrelationID: strconv.FormatInt(o.ID, 10),
		Payload: kafkax.MustMarshal(orders.OrderConfirmedPayload{
			OrderID: o.ID, StoreID: o.StoreID, Items: items,
		}),
	}
	ok := p.Out.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if !ok && p.Log != nil {
		p.Log.Warn("order confirmation dropped", zap.Int64("order_id", o.ID), zap.String("event_id", ev.EventID))
	}
}

type ctxKey struct{}

// WithRequestID stores the request id carried into event trace ids.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
