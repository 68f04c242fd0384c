package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStreamKey = "audit_events"
	emitTimeout      = 2 * time.Second
)

// RedisSink appends audit events to a Redis Stream so downstream consumers
// (SIEM forwarders, retention jobs) can read them with XREADGROUP. Each Emit
// runs on its own goroutine with a short deadline; failures are logged and
// dropped.
type RedisSink struct {
	client *redis.Client
	log    *slog.Logger
	stream string
}

func NewRedisSink(client *redis.Client, log *slog.Logger, stream string) *RedisSink {
	if stream == "" {
		stream = defaultStreamKey
	}
	return &RedisSink{
		client: client,
		log:    log.With(slog.String("component", "audit_redis")),
		stream: stream,
	}
}

func (s *RedisSink) Emit(e Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()

		payload, err := json.Marshal(e)
		if err != nil {
			s.log.Error("marshal audit event", slog.String("event", e.Name), slog.Any("error", err))
			return
		}

		err = s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]any{"payload": payload},
		}).Err()
		if err != nil {
			s.log.Error("append audit event",
				slog.String("event", e.Name),
				slog.String("stream", s.stream),
				slog.Any("error", err),
			)
		}
	}()
}
