// Package pubsub relays hub events between server instances through Postgres
// LISTEN/NOTIFY.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/websocket"
)

// maxPayload stays under the 8000-byte NOTIFY limit.
const maxPayload = 7900

type envelope struct {
	Origin string          `json:"origin"`
	Event  websocket.Event `json:"event"`
}

// Bus delivers an event to the local hub immediately and announces it on the
// notify channel so other instances re-broadcast it to their own clients.
type Bus struct {
	pool    *pgxpool.Pool
	hub     *websocket.Hub
	channel string
	origin  string
	logger  zerolog.Logger
}

func NewBus(pool *pgxpool.Pool, hub *websocket.Hub, channel string, logger zerolog.Logger) *Bus {
	return &Bus{
		pool:    pool,
		hub:     hub,
		channel: channel,
		origin:  uuid.New().String(),
		logger:  logger.With().Str("component", "pubsub").Str("channel", channel).Logger(),
	}
}

func (b *Bus) Origin() string { return b.origin }

func (b *Bus) Publish(ctx context.Context, event websocket.Event) error {
	b.hub.Broadcast(event.Topic, event)
	if b.pool == nil {
		return nil
	}

	payload, err := encode(b.origin, event)
	if err != nil {
		return err
	}
	if len(payload) > maxPayload {
		b.logger.Warn().Str("topic", event.Topic).Int("size", len(payload)).Msg("event too large for NOTIFY, delivered locally only")
		return nil
	}
	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", b.channel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

func encode(origin string, event websocket.Event) ([]byte, error) {
	return json.Marshal(envelope{Origin: origin, Event: event})
}

// Relay decodes a notification payload and broadcasts it locally unless it
// came from this instance.
func (b *Bus) Relay(payload string) error {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if env.Origin == b.origin {
		return nil
	}
	b.hub.Broadcast(env.Event.Topic, env.Event)
	return nil
}

// Listen holds a lib/pq listener on the channel until ctx ends. Reconnects
// are handled by the listener; a nil notification marks a reconnect.
func (b *Bus) Listen(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			b.logger.Info().Msg("listener connected")
		case pq.ListenerEventDisconnected:
			b.logger.Warn().Err(err).Msg("listener disconnected")
		case pq.ListenerEventReconnected:
			b.logger.Info().Msg("listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			b.logger.Warn().Err(err).Msg("listener connection attempt failed")
		}
	})
	defer listener.Close()

	if err := listener.Listen(b.channel); err != nil {
		return fmt.Errorf("listen %s: %w", b.channel, err)
	}

	health := time.NewTicker(90 * time.Second)
	defer health.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				continue
			}
			if err := b.Relay(n.Extra); err != nil {
				b.logger.Warn().Err(err).Msg("dropping malformed notification")
			}
		case <-health.C:
			go listener.Ping()
		}
	}
}
