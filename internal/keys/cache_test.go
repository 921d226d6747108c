package keys

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/testutil"
)

func TestCache_ServesWithinTTL(t *testing.T) {
	next := &countingResolver{key: &testutil.SharedKey(t).PublicKey}
	now := time.Unix(1_700_000_000, 0)

	c := NewCache(next, time.Minute, 4)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := c.ResolvePublicKey(context.Background(), "https://issuer", "kid")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, next.calls)

	// exactly at the TTL boundary the entry is stale
	now = now.Add(time.Minute)
	_, err := c.ResolvePublicKey(context.Background(), "https://issuer", "kid")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCache_KeyedByIssuerAndKid(t *testing.T) {
	next := &countingResolver{key: &testutil.SharedKey(t).PublicKey}
	c := NewCache(next, time.Minute, 4)

	_, _ = c.ResolvePublicKey(context.Background(), "https://a", "kid")
	_, _ = c.ResolvePublicKey(context.Background(), "https://b", "kid")
	_, _ = c.ResolvePublicKey(context.Background(), "https://a", "kid-2")
	_, _ = c.ResolvePublicKey(context.Background(), "https://a", "kid")
	assert.Equal(t, 3, next.calls)
}

func TestCache_DoesNotCacheErrors(t *testing.T) {
	next := &countingResolver{err: ErrKeyNotFound}
	c := NewCache(next, time.Minute, 4)

	for i := 0; i < 2; i++ {
		_, err := c.ResolvePublicKey(context.Background(), "https://issuer", "kid")
		assert.True(t, errors.Is(err, ErrKeyNotFound))
	}
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Bounded(t *testing.T) {
	next := &countingResolver{key: &testutil.SharedKey(t).PublicKey}
	now := time.Unix(1_700_000_000, 0)
	c := NewCache(next, time.Hour, 2)
	c.now = func() time.Time { return now }

	for _, kid := range []string{"a", "b", "c"} {
		now = now.Add(time.Second)
		_, err := c.ResolvePublicKey(context.Background(), "https://issuer", kid)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	// "a" was the oldest entry and got evicted
	_, _ = c.ResolvePublicKey(context.Background(), "https://issuer", "a")
	assert.Equal(t, 4, next.calls)
}

func TestWithCache(t *testing.T) {
	next := &countingResolver{}
	assert.Same(t, PublicKeyResolver(next), WithCache(next, 0, 10))
	_, ok := WithCache(next, time.Second, 10).(*Cache)
	assert.True(t, ok)
}
