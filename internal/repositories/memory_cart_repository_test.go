package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lamp(quantity int) models.CartLineItem {
	return models.CartLineItem{ProductID: "p1", Title: "X", Image: "/x.png", Price: 100, Quantity: quantity}
}

func TestMemoryCartRepository_AddItemAccumulates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCartRepository()

	require.NoError(t, repo.AddItem(ctx, "u1", lamp(2)))
	require.NoError(t, repo.AddItem(ctx, "u1", lamp(3)))

	items, err := repo.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.False(t, items[0].AddedAt.IsZero())
}

func TestMemoryCartRepository_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCartRepository()

	require.NoError(t, repo.AddItem(ctx, "u1", lamp(1)))

	items, err := repo.ListItems(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryCartRepository_SetQuantity(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCartRepository()
	require.NoError(t, repo.AddItem(ctx, "u1", lamp(1)))

	require.NoError(t, repo.SetQuantity(ctx, "u1", "p1", 7))

	items, _ := repo.ListItems(ctx, "u1")
	assert.Equal(t, 7, items[0].Quantity)

	err := repo.SetQuantity(ctx, "u1", "missing", 2)
	assert.ErrorIs(t, err, repository.ErrLineItemNotFound)
}

func TestMemoryCartRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryCartRepository()
	require.NoError(t, repo.AddItem(ctx, "u1", lamp(1)))

	require.NoError(t, repo.DeleteItem(ctx, "u1", "p1"))
	require.NoError(t, repo.DeleteItem(ctx, "u1", "p1"))
	require.NoError(t, repo.DeleteItem(ctx, "nobody", "p1"))

	items, _ := repo.ListItems(ctx, "u1")
	assert.Empty(t, items)
}

func TestMemoryCartRepository_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := repository.NewMemoryCartRepository()
	require.NoError(t, repo.AddItem(ctx, "u1", lamp(1)))

	var (
		mu        sync.Mutex
		snapshots [][]models.CartLineItem
	)

	err := repo.Watch(ctx, "u1", func(items []models.CartLineItem) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, items)
	}, func(error) {})
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, snapshots, 1, "initial snapshot is delivered synchronously")
	assert.Equal(t, 1, snapshots[0][0].Quantity)
	mu.Unlock()

	require.NoError(t, repo.SetQuantity(ctx, "u1", "p1", 4))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		last := snapshots[len(snapshots)-1]
		return len(last) == 1 && last[0].Quantity == 4
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, repo.WatcherCount("u1"))

	cancel()

	require.Eventually(t, func() bool { return repo.WatcherCount("u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCartRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := repository.NewMemoryCartRepository()

	assert.ErrorIs(t, repo.AddItem(ctx, "u1", lamp(1)), context.Canceled)
	assert.ErrorIs(t, repo.Watch(ctx, "u1", func([]models.CartLineItem) {}, func(error) {}), context.Canceled)
}
