package secrets

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/fxrelay/internal/config"
	"github.com/darmiel/fxrelay/internal/core"
)

const (
	TypeEnv    = "env"
	TypeFile   = "file"
	TypeAWS    = "aws"
	TypeStatic = "static"
)

// Build creates the secret store described by cfg.
func Build(ctx context.Context, cfg config.SecretsConfig) (core.SecretStore, error) {
	switch cfg.Type {
	case TypeEnv, "":
		var conf EnvConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewEnv(conf.Prefix), nil
	case TypeFile:
		var conf FileConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		if conf.Dir == "" {
			return nil, fmt.Errorf("file secret store requires 'dir'")
		}
		return NewFile(conf.Dir), nil
	case TypeAWS:
		var conf AWSConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewAWS(ctx, conf)
	case TypeStatic:
		var conf StaticConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewStatic(conf.Values), nil
	default:
		return nil, fmt.Errorf("unknown secret store type '%s'", cfg.Type)
	}
}

func decode(cfg config.SecretsConfig, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for '%s' secret store: %w", cfg.Type, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return fmt.Errorf("failed to decode config for '%s' secret store: %w", cfg.Type, err)
	}
	return nil
}
