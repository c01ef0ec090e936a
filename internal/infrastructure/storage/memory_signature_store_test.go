package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySignatureStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips a payload", func(t *testing.T) {
		store := NewMemorySignatureStore()

		err := store.Put(ctx, "signatures/q1/sig.png", []byte("png bytes"), "image/png")
		require.NoError(t, err)

		data, err := store.Get(ctx, "signatures/q1/sig.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("png bytes"), data)
	})

	t.Run("rejects empty key and payload", func(t *testing.T) {
		store := NewMemorySignatureStore()

		assert.Error(t, store.Put(ctx, "", []byte("data"), "image/png"))
		assert.Error(t, store.Put(ctx, "key", nil, "image/png"))
	})

	t.Run("get on unknown key fails", func(t *testing.T) {
		store := NewMemorySignatureStore()

		_, err := store.Get(ctx, "missing")
		assert.Error(t, err)
	})

	t.Run("stored bytes are isolated from caller mutations", func(t *testing.T) {
		store := NewMemorySignatureStore()

		payload := []byte("original")
		require.NoError(t, store.Put(ctx, "key", payload, "image/png"))
		payload[0] = 'X'

		data, err := store.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), data)
	})

	t.Run("concurrent writers do not race", func(t *testing.T) {
		store := NewMemorySignatureStore()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				key := string(rune('a' + n%26))
				_ = store.Put(ctx, key, []byte{byte(n)}, "image/png")
				_, _ = store.Get(ctx, key)
			}(i)
		}
		wg.Wait()

		assert.Positive(t, store.Len())
	})
}
