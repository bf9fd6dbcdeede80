package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	relayQueueSize  = 1024
	relayMinBackoff = 500 * time.Millisecond
	relayMaxBackoff = 30 * time.Second
)

type relayEnvelope struct {
	Origin      string    `json:"origin"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Event       Event     `json:"event"`
}

// RedisRelay shares events between API instances over Redis pub/sub.
// Local subscribers are served first; the remote copy is best effort.
type RedisRelay struct {
	hub     *Hub
	rdb     *redis.Client
	channel string
	origin  string
	out     chan []byte
	log     *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewRedisRelay(hub *Hub, rdb *redis.Client, channel string, log *zap.Logger) *RedisRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRelay{
		hub:     hub,
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		out:     make(chan []byte, relayQueueSize),
		log:     log,

		minBackoff: relayMinBackoff,
		maxBackoff: relayMaxBackoff,
	}
}

func (r *RedisRelay) Broadcast(evt Event) {
	r.hub.Broadcast(evt)

	payload, err := sonic.Marshal(relayEnvelope{Origin: r.origin, WorkspaceID: evt.WorkspaceID, Event: evt})
	if err != nil {
		r.log.Sugar().Warnw("relay encode failed", "type", evt.Type, "err", err)
		return
	}
	select {
	case r.out <- payload:
	default:
		r.log.Sugar().Warnw("relay queue full, event not relayed", "type", evt.Type, "room_id", evt.RoomID)
	}
}

// Run publishes queued events and listens for remote ones until ctx is cancelled.
// A lost or failed subscription is retried with backoff.
func (r *RedisRelay) Run(ctx context.Context) {
	go r.publishLoop(ctx)

	wait := r.minBackoff
	for {
		started := time.Now()
		err := r.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > r.maxBackoff {
			wait = r.minBackoff
		}
		r.log.Sugar().Warnw("event relay subscription failed, retrying", "channel", r.channel, "retry_in", wait, "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, r.maxBackoff)
	}
}

func (r *RedisRelay) listen(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before relaying.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	r.log.Sugar().Infow("event relay started", "channel", r.channel, "origin", r.origin)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-r.out:
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := r.rdb.Publish(pctx, r.channel, payload).Err(); err != nil {
				r.log.Sugar().Warnw("relay publish failed", "err", err)
			}
			cancel()
		}
	}
}

// deliver hands a remote event to local subscribers; own events are ignored.
func (r *RedisRelay) deliver(payload []byte) {
	var env relayEnvelope
	if err := sonic.Unmarshal(payload, &env); err != nil {
		r.log.Sugar().Warnw("relay decode failed", "err", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	evt := env.Event
	evt.WorkspaceID = env.WorkspaceID
	r.hub.Broadcast(evt)
}
