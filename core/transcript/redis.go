package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	keyPrefix  = "interview:transcript:"
	indexKey   = "interview:transcripts"
	DefaultTTL = 7 * 24 * time.Hour
)

// RedisWriter is the subset of the redis client used by RedisSink.
type RedisWriter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// RedisSink stores the JSON document under interview:transcript:<session id>
// and indexes the session id in interview:transcripts.
type RedisSink struct {
	client RedisWriter
	ttl    time.Duration
}

type RedisSinkOption func(*RedisSink)

func WithTTL(ttl time.Duration) RedisSinkOption {
	return func(s *RedisSink) { s.ttl = ttl }
}

func NewRedisSink(client RedisWriter, opts ...RedisSinkOption) *RedisSink {
	s := &RedisSink{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient connects to addr, either host:port or a redis:// URL, and
// checks the connection with a ping. A non-empty password overrides the one
// in the URL.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	options := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		options = parsed
	}
	if password != "" {
		options.Password = password
	}
	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", options.Addr, err)
	}
	return client, nil
}

func Key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisSink) Store(ctx context.Context, doc Document) (err error) {
	ctx, span := tracer.Start(ctx, "transcript.store")
	defer span.End()
	span.SetAttributes(attribute.String("transcript.sink", "redis"), attribute.String("session.id", doc.SessionID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := s.client.Set(ctx, Key(doc.SessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}
	if err := s.client.SAdd(ctx, indexKey, doc.SessionID).Err(); err != nil {
		return fmt.Errorf("failed to index transcript: %w", err)
	}

	logger.Info("transcript stored in redis", "key", Key(doc.SessionID))
	return nil
}
