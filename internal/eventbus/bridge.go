package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/config"
	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// subject every bridged Event is published under, partitioned by session.
const subjectPrefix = "loopforge.events."

// Bridge relays Bus.Publish calls onto a NATS JetStream stream so multiple
// loopforged instances converge on one event stream for a session, and
// plays remote events back into the local Bus. It is optional: a Bus works
// standalone without one.
type Bridge struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	bus    *Bus
	logger *zap.Logger
}

// Connect dials NATS, ensures the LOOPFORGE_EVENTS stream exists, and
// starts relaying both directions. Returns nil, nil if cfg.Enabled is
// false so callers can treat an absent bridge as a no-op.
func Connect(cfg config.NATSConfig, bus *Bus, logger *zap.Logger) (*Bridge, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("eventbus bridge disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("eventbus bridge reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if cfg.EnableJetStream {
		_, err := js.StreamInfo("LOOPFORGE_EVENTS")
		if err != nil {
			_, err = js.AddStream(&nats.StreamConfig{
				Name:      "LOOPFORGE_EVENTS",
				Subjects:  []string{subjectPrefix + ">"},
				Storage:   nats.FileStorage,
				Retention: nats.LimitsPolicy,
				MaxAge:    24 * time.Hour,
			})
			if err != nil {
				nc.Close()
				return nil, fmt.Errorf("create LOOPFORGE_EVENTS stream: %w", err)
			}
		}
	}

	b := &Bridge{nc: nc, js: js, bus: bus, logger: logger}

	if _, err := js.Subscribe(subjectPrefix+">", b.onRemoteEvent, nats.Durable(cfg.ClientID+"-consumer")); err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to bridged events: %w", err)
	}

	return b, nil
}

// Publish mirrors event onto the NATS stream. Call this alongside, not
// instead of, Bus.Publish: the bridge never delivers to local handlers
// directly, it only relays onto the wire and back in via onRemoteEvent.
func (b *Bridge) Publish(event entities.Event) error {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal bridged event: %w", err)
	}
	subject := subjectPrefix + event.SessionID
	if _, err := b.js.Publish(subject, data); err != nil {
		return fmt.Errorf("publish bridged event: %w", err)
	}
	return nil
}

func (b *Bridge) onRemoteEvent(msg *nats.Msg) {
	var event entities.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		b.logger.Error("failed to unmarshal bridged event", zap.Error(err))
		return
	}
	b.bus.Publish(event)
	_ = msg.Ack()
}

// Close releases the NATS connection.
func (b *Bridge) Close() error {
	if b == nil || b.nc == nil {
		return nil
	}
	b.nc.Close()
	return nil
}
