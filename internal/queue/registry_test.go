package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/config"
)

func TestBuild(t *testing.T) {
	ctx := context.Background()

	q, err := Build(ctx, config.QueueConfig{Type: TypeMemory, Config: map[string]any{
		"visibility_timeout": "45s",
		"max_receives":       "3",
	}})
	require.NoError(t, err)
	mem, ok := q.(*Memory)
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, mem.visibility)
	assert.Equal(t, 3, mem.maxReceives)

	mr := miniredis.RunT(t)
	q, err = Build(ctx, config.QueueConfig{Type: TypeRedis, Config: map[string]any{
		"url":    mr.Addr(),
		"stream": "events",
	}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	assert.IsType(t, &Redis{}, q)
	assert.True(t, mr.Exists("events"))

	_, err = Build(ctx, config.QueueConfig{Type: TypeRedis})
	require.Error(t, err)

	_, err = Build(ctx, config.QueueConfig{Type: TypeKafka})
	require.Error(t, err)

	_, err = Build(ctx, config.QueueConfig{Type: TypeSQS})
	require.Error(t, err)

	_, err = Build(ctx, config.QueueConfig{Type: "carrier-pigeon"})
	require.Error(t, err)
}
