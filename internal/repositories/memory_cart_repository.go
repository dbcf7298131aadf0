package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
)

// MemoryCartRepository implements CartRepository with in-memory storage.
// Watchers are notified after every mutation of the user's cart.
type MemoryCartRepository struct {
	mu       sync.RWMutex
	carts    map[string]map[string]models.CartLineItem // userID -> productID -> item
	watchers map[string]map[*memoryWatcher]struct{}
}

type memoryWatcher struct {
	signal chan struct{}
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts:    make(map[string]map[string]models.CartLineItem),
		watchers: make(map[string]map[*memoryWatcher]struct{}),
	}
}

func (s *MemoryCartRepository) ListItems(ctx context.Context, userID string) ([]models.CartLineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot(userID), nil
}

func (s *MemoryCartRepository) AddItem(ctx context.Context, userID string, item models.CartLineItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	cart, ok := s.carts[userID]
	if !ok {
		cart = make(map[string]models.CartLineItem)
		s.carts[userID] = cart
	}

	if existing, ok := cart[item.ProductID]; ok {
		existing.Quantity += item.Quantity
		existing.AddedAt = time.Now().UTC()
		cart[item.ProductID] = existing
	} else {
		item.AddedAt = time.Now().UTC()
		cart[item.ProductID] = item
	}
	s.mu.Unlock()

	s.notify(userID)

	return nil
}

func (s *MemoryCartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	existing, ok := s.carts[userID][productID]
	if !ok {
		s.mu.Unlock()
		return ErrLineItemNotFound
	}

	existing.Quantity = quantity
	existing.AddedAt = time.Now().UTC()
	s.carts[userID][productID] = existing
	s.mu.Unlock()

	s.notify(userID)

	return nil
}

func (s *MemoryCartRepository) DeleteItem(ctx context.Context, userID, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.carts[userID], productID)
	s.mu.Unlock()

	s.notify(userID)

	return nil
}

func (s *MemoryCartRepository) Watch(ctx context.Context, userID string, onSnapshot func([]models.CartLineItem), onError func(error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := &memoryWatcher{signal: make(chan struct{}, 1)}

	s.mu.Lock()
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[*memoryWatcher]struct{})
	}
	s.watchers[userID][w] = struct{}{}
	initial := s.snapshot(userID)
	s.mu.Unlock()

	onSnapshot(initial)

	go func() {
		defer s.removeWatcher(userID, w)

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.signal:
				s.mu.RLock()
				items := s.snapshot(userID)
				s.mu.RUnlock()

				onSnapshot(items)
			}
		}
	}()

	return nil
}

// WatcherCount reports the live subscriptions for a user.
func (s *MemoryCartRepository) WatcherCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.watchers[userID])
}

func (s *MemoryCartRepository) removeWatcher(userID string, w *memoryWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.watchers[userID], w)
	if len(s.watchers[userID]) == 0 {
		delete(s.watchers, userID)
	}
}

// notify coalesces: a watcher that has not yet drained its previous signal
// will re-read the latest state anyway.
func (s *MemoryCartRepository) notify(userID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for w := range s.watchers[userID] {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// snapshot must be called with s.mu held.
func (s *MemoryCartRepository) snapshot(userID string) []models.CartLineItem {
	items := make([]models.CartLineItem, 0, len(s.carts[userID]))
	for _, item := range s.carts[userID] {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	return items
}
