package notify

import (
	"context"
	kafkax "github.com/ariefcatur/go-retail-stores/internal/kafka"
	"github.com/ariefcatur/go-retail-stores/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"time"
)

// Sender delivers the confirmation for one order, e.g. by e-mail.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, p orders.OrderConfirmedPayload) error
}

// Deduper remembers processed event ids; delivery is at least once.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Handler struct {
	Dedup  Deduper
	Sender Sender
	Log    *zap.Logger
}

// Handle is installed as the consumer handler for TopicOrderConfirmed.
func (h *Handler) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.Decode[orders.Envelope](m.Value)
	if err != nil {
		// poison message, commit it
		h.Log.Error("undecodable envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderConfirmed {
		return nil
	}

	seen, err := h.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if seen {
		h.Log.Debug("duplicate event skipped", zap.String("event_id", env.EventID))
		return nil
	}

	p, err := kafkax.Decode[orders.OrderConfirmedPayload](env.Payload)
	if err != nil {
		h.Log.Error("bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	if err := h.Sender.SendOrderConfirmation(ctx, p); err != nil {
		if ferr := h.Dedup.Forget(ctx, env.EventID); ferr != nil {
			h.Log.Warn("dedup forget", zap.String("event_id", env.EventID), zap.Error(ferr))
		}
		return err
	}
	h.Log.Info("order confirmation sent", zap.Int64("order_id", p.OrderID), zap.String("event_id", env.EventID))
	return nil
}

// LogSender stands in for an SMTP client: it waits Delay and logs the send.
type LogSender struct {
	Log   *zap.Logger
	Delay time.Duration
}

func (s LogSender) SendOrderConfirmation(ctx context.Context, p orders.OrderConfirmedPayload) error {
	s.Log.Info("sending confirmation email", zap.Int64("order_id", p.OrderID), zap.Int64("store_id", p.StoreID))
	select {
	case <-time.After(s.Delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	s.Log.Info("confirmation email sent", zap.Int64("order_id", p.OrderID))
	return nil
}
