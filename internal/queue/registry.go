package queue

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/fxrelay/internal/config"
	"github.com/darmiel/fxrelay/internal/core"
)

const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeKafka  = "kafka"
	TypeSQS    = "sqs"
)

// Build creates the queue described by cfg.
func Build(ctx context.Context, cfg config.QueueConfig) (core.Queue, error) {
	switch cfg.Type {
	case TypeMemory, "":
		var conf MemoryConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewMemory(conf), nil
	case TypeRedis:
		var conf RedisConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		if conf.URL == "" {
			return nil, fmt.Errorf("redis queue requires 'url'")
		}
		client, err := Connect(conf.URL)
		if err != nil {
			return nil, err
		}
		q, err := NewRedis(ctx, client, conf)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return q, nil
	case TypeKafka:
		var conf KafkaConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewKafka(conf)
	case TypeSQS:
		var conf SQSConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewSQS(ctx, conf)
	default:
		return nil, fmt.Errorf("unknown queue type '%s'", cfg.Type)
	}
}

func decode(cfg config.QueueConfig, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for '%s' queue: %w", cfg.Type, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return fmt.Errorf("failed to decode config for '%s' queue: %w", cfg.Type, err)
	}
	return nil
}
