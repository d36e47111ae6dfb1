// Package bridge is the optional cross-process fan-out layer. The reference
// deployment runs single-instance with the bridge disabled; enabling it puts
// room broadcasts on Redis pub/sub so every server process delivers them to
// its local room members.
package bridge

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const channelPrefix = "realtime:room:"

// Broadcaster is the hub-side entry point for payloads arriving from other
// nodes.
type Broadcaster interface {
	BroadcastRaw(room string, payload []byte)
}

// message is the envelope carried on the Redis channel. Origin identifies
// the publishing process so a node can skip its own publications.
type message struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

type Bridge struct {
	rdb    *redis.Client
	origin string
	log    zerolog.Logger
}

// New connects to Redis and pings it. The bridge gets a fresh origin id per
// process lifetime.
func New(redisURL string, log zerolog.Logger) (*Bridge, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("bridge: parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("bridge: ping redis: %w", err)
	}

	return &Bridge{
		rdb:    rdb,
		origin: uuid.NewString(),
		log:    log.With().Str("component", "bridge").Logger(),
	}, nil
}

func (b *Bridge) Close() error {
	return b.rdb.Close()
}

// Publish puts one room broadcast on the shared channel. Delivery is
// fire-and-forget like everything else in this layer.
func (b *Bridge) Publish(room string, payload []byte) error {
	data, err := json.Marshal(message{Origin: b.origin, Room: room, Payload: payload})
	if err != nil {
		return fmt.Errorf("bridge: marshal: %w", err)
	}
	if err := b.rdb.Publish(context.Background(), channelPrefix+room, data).Err(); err != nil {
		return fmt.Errorf("bridge: publish: %w", err)
	}
	return nil
}

// Run subscribes to all room channels and fans remote broadcasts into the
// hub. Blocks until ctx is cancelled or the subscription drops.
func (b *Bridge) Run(ctx context.Context, h Broadcaster) {
	pubsub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		b.log.Error().Err(err).Msg("subscription confirmation failed")
		return
	}
	b.log.Info().Str("pattern", channelPrefix+"*").Msg("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				b.log.Warn().Msg("pubsub channel closed")
				return
			}
			b.handle(h, []byte(msg.Payload))
		}
	}
}

func (b *Bridge) handle(h Broadcaster, raw []byte) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		b.log.Error().Err(err).Msg("unparseable bridge message")
		return
	}
	if !b.accepts(m) {
		return
	}
	h.BroadcastRaw(m.Room, m.Payload)
}

// accepts filters out this node's own publications and messages with no
// target room.
func (b *Bridge) accepts(m message) bool {
	return m.Origin != b.origin && m.Room != ""
}
