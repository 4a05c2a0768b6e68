package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const subjectPrefix = "ecommunity.rooms."

func roomSubject(room string) string { return subjectPrefix + room }

func subjectRoom(subject string) (string, bool) {
	room, ok := strings.CutPrefix(subject, subjectPrefix)
	return room, ok && room != ""
}

// NATSBridge fans room events out through NATS so that sockets held by other
// instances receive them. Every instance subscribes and hands what it hears
// to its local hub, including its own publications.
type NATSBridge struct {
	nc     *nats.Conn
	hub    *Hub
	sub    *nats.Subscription
	logger *slog.Logger
}

func NewNATSBridge(nc *nats.Conn, hub *Hub, logger *slog.Logger) (*NATSBridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &NATSBridge{nc: nc, hub: hub, logger: logger}

	sub, err := nc.Subscribe(subjectPrefix+">", b.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe room events: %w", err)
	}
	b.sub = sub
	return b, nil
}

func (b *NATSBridge) handle(msg *nats.Msg) {
	room, ok := subjectRoom(msg.Subject)
	if !ok {
		b.logger.Warn("realtime: unexpected subject", "subject", msg.Subject)
		return
	}
	b.hub.deliver(room, msg.Data)
}

func (b *NATSBridge) Publish(ctx context.Context, room, event string, data any) error {
	payload, err := encodeFrame(room, event, data)
	if err != nil {
		return err
	}

	msg := &nats.Msg{
		Subject: roomSubject(room),
		Data:    payload,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event, room, err)
	}
	return nil
}

func (b *NATSBridge) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}
