package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	empty, err := store.Load(ctx, "token")
	require.NoError(t, err)
	assert.Empty(t, empty)

	lines := []models.CartLine{{
		BookID:    uuid.New(),
		Title:     "La tregua",
		Author:    "Benedetti",
		UnitPrice: decimal.RequireFromString("7.25"),
		Quantity:  2,
		Subtotal:  decimal.RequireFromString("14.50"),
	}}
	require.NoError(t, store.Save(ctx, "token", lines))

	ttl, err := client.TTL(ctx, keyPrefix+"token").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	loaded, err := store.Load(ctx, "token")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, lines[0].BookID, loaded[0].BookID)
	assert.True(t, loaded[0].Subtotal.Equal(lines[0].Subtotal))

	unlock, err := store.Lock(ctx, "token")
	require.NoError(t, err)
	unlock()

	require.NoError(t, store.Save(ctx, "token", nil))
	exists, err := client.Exists(ctx, keyPrefix+"token").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
