package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/core"
)

const (
	DefaultRedisStream = "fxrelay:events"
	DefaultRedisGroup  = "fxrelay"
	redisBodyField     = "body"
)

type RedisConfig struct {
	// URL is either a redis:// URL or host:port.
	URL               string        `mapstructure:"url"`
	Stream            string        `mapstructure:"stream"`
	Group             string        `mapstructure:"group"`
	Consumer          string        `mapstructure:"consumer"`
	Block             time.Duration `mapstructure:"block"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	MaxReceives       int           `mapstructure:"max_receives"`
}

// Redis is a queue on top of a redis stream and a consumer group. Pending entries whose
// visibility timeout ran out are claimed again; exhausted entries are moved to "<stream>:dead".
type Redis struct {
	client      redis.UniversalClient
	stream      string
	dead        string
	group       string
	consumer    string
	block       time.Duration
	visibility  time.Duration
	maxReceives int
}

var _ core.Queue = (*Redis)(nil)

// Connect initializes a Redis client from URL or host:port input.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

func NewRedis(ctx context.Context, client redis.UniversalClient, cfg RedisConfig) (*Redis, error) {
	if cfg.Stream == "" {
		cfg.Stream = DefaultRedisStream
	}
	if cfg.Group == "" {
		cfg.Group = DefaultRedisGroup
	}
	if cfg.Consumer == "" {
		host, _ := os.Hostname()
		cfg.Consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.Block <= 0 {
		cfg.Block = time.Second
	}
	visibility, maxReceives := withDefaults(cfg.VisibilityTimeout, cfg.MaxReceives)

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("creating consumer group '%s': %w", cfg.Group, err)
	}

	return &Redis{
		client:      client,
		stream:      cfg.Stream,
		dead:        cfg.Stream + ":dead",
		group:       cfg.Group,
		consumer:    cfg.Consumer,
		block:       cfg.Block,
		visibility:  visibility,
		maxReceives: maxReceives,
	}, nil
}

func (r *Redis) Send(ctx context.Context, body []byte) error {
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{redisBodyField: body},
	}).Err()
}

// Receive first claims entries whose visibility timeout ran out, then reads new entries.
func (r *Redis) Receive(ctx context.Context, max int) ([]core.Message, error) {
	if max <= 0 {
		max = 1
	}

	out, err := r.claim(ctx, max)
	if err != nil {
		return nil, err
	}
	if len(out) >= max {
		return out, nil
	}

	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, ">"},
		Count:    int64(max - len(out)),
		Block:    r.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, fmt.Errorf("reading stream '%s': %w", r.stream, err)
	}
	for _, s := range streams {
		for _, xm := range s.Messages {
			out = append(out, toMessage(xm, 1))
		}
	}
	return out, nil
}

func (r *Redis) claim(ctx context.Context, max int) ([]core.Message, error) {
	claimed, _, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   r.stream,
		Group:    r.group,
		MinIdle:  r.visibility,
		Start:    "0-0",
		Count:    int64(max),
		Consumer: r.consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("claiming pending entries of '%s': %w", r.stream, err)
	}

	var out []core.Message
	for _, xm := range claimed {
		receives, err := r.receiveCount(ctx, xm.ID)
		if err != nil {
			return nil, err
		}
		if exhausted(receives, r.maxReceives) {
			if err := r.deadLetter(ctx, xm); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, toMessage(xm, receives))
	}
	return out, nil
}

func (r *Redis) receiveCount(ctx context.Context, id string) (int, error) {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.stream,
		Group:  r.group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("reading delivery count of '%s': %w", id, err)
	}
	if len(pending) == 0 {
		return 1, nil
	}
	return int(pending[0].RetryCount), nil
}

func (r *Redis) deadLetter(ctx context.Context, xm redis.XMessage) error {
	log.Ctx(ctx).Warn().
		Str("stream", r.stream).
		Str("message_id", xm.ID).
		Msg("message exceeded max receives, moving to dead-letter stream")

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.dead,
		Values: map[string]any{redisBodyField: bodyOf(xm), "origin_id": xm.ID},
	}).Err(); err != nil {
		return fmt.Errorf("dead-lettering '%s': %w", xm.ID, err)
	}
	return r.Ack(ctx, core.Message{ID: xm.ID})
}

// Ack acknowledges and deletes the entries.
func (r *Redis) Ack(ctx context.Context, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := r.client.XAck(ctx, r.stream, r.group, ids...).Err(); err != nil {
		return fmt.Errorf("acknowledging entries: %w", err)
	}
	if err := r.client.XDel(ctx, r.stream, ids...).Err(); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}
	return nil
}

// Nack leaves the entry pending. It is claimed again once its visibility timeout ran out.
func (r *Redis) Nack(context.Context, core.Message) error {
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func bodyOf(xm redis.XMessage) []byte {
	switch v := xm.Values[redisBodyField].(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}

func toMessage(xm redis.XMessage, receives int) core.Message {
	return core.Message{
		ID:           xm.ID,
		Body:         bodyOf(xm),
		ReceiveCount: receives,
	}
}
