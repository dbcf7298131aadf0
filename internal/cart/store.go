package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	// StateIdentityReady means an identity exists but no storage is configured.
	StateIdentityReady State = "identity_ready"
	StateSubscribing   State = "subscribing"
	StateSynced        State = "synced"
	// StateError is reported while an error message is set; the mirrored
	// items are kept as they were.
	StateError State = "error"
)

var (
	ErrNotReady         = errors.New("cart: identity or storage not ready")
	ErrMissingProductID = errors.New("cart: product id is missing")
	ErrInvalidQuantity  = errors.New("cart: quantity must be at least 1")
)

const clearConcurrency = 8

// Snapshot is a consistent copy of the store. TotalItems and Subtotal are
// derived from Items when the snapshot is taken.
type Snapshot struct {
	UserID     string
	State      State
	Items      []models.CartLineItem
	TotalItems int
	Subtotal   float64
	Loading    bool
	Error      string
}

// Store mirrors one user's remote line items and mediates every write to
// them. Writes go to the repository only; the mirror changes when the
// subscription delivers the authoritative list.
type Store struct {
	repo repository.CartRepository

	mu         sync.Mutex
	userID     string
	lifecycle  State
	items      []models.CartLineItem
	inFlight   int
	errMsg     string
	errFromSub bool
	generation uint64
	cancelSub  context.CancelFunc
	watching   bool
	closed     bool

	listeners map[int]chan Snapshot
	nextID    int
}

// NewStore builds a store; a nil repo leaves the store without storage and
// every mutation is refused.
func NewStore(repo repository.CartRepository) *Store {
	return &Store{
		repo:      repo,
		lifecycle: StateUninitialized,
		listeners: make(map[int]chan Snapshot),
	}
}

// SetIdentity binds the store to userID and opens the live subscription under
// ctx. A different userID tears the previous subscription down first. An
// empty userID unbinds the store.
func (s *Store) SetIdentity(ctx context.Context, userID string) error {

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return ErrNotReady
	}

	if userID == s.userID && s.lifecycle != StateUninitialized {
		s.mu.Unlock()
		return nil
	}

	s.stopSubscriptionLocked()
	s.generation++
	s.userID = userID
	s.items = nil
	s.errMsg = ""
	s.errFromSub = false

	switch {
	case userID == "":
		s.lifecycle = StateUninitialized
		s.notifyLocked()
		s.mu.Unlock()
		return nil
	case s.repo == nil:
		s.lifecycle = StateIdentityReady
		s.notifyLocked()
		s.mu.Unlock()
		return nil
	}

	s.lifecycle = StateSubscribing
	subCtx, cancel := context.WithCancel(ctx)
	s.cancelSub = cancel
	generation := s.generation
	s.notifyLocked()
	s.mu.Unlock()

	logger := slog.Default().With(slog.String("component", "cart_store"), slog.String("userId", userID))

	err := s.repo.Watch(subCtx, userID,
		func(items []models.CartLineItem) { s.applySnapshot(generation, items) },
		func(err error) {
			logger.Error("Cart subscription failed", slog.String("error", err.Error()))
			s.subscriptionFailed(generation, fmt.Sprintf("Failed to get real-time cart updates: %v", err))
		},
	)
	if err != nil {
		cancel()
		s.mu.Lock()
		if generation == s.generation {
			s.cancelSub = nil
		}
		s.mu.Unlock()
		logger.Error("Failed to subscribe to cart", slog.String("error", err.Error()))
		s.subscriptionFailed(generation, fmt.Sprintf("Failed to load cart items: %v", err))
		return fmt.Errorf("failed to subscribe to cart: %w", err)
	}

	s.mu.Lock()
	if !s.closed && generation == s.generation {
		s.watching = true
		metrics.CartSubscriptionStarted()
	}
	s.mu.Unlock()

	logger.Debug("Cart subscription opened")

	return nil
}

func (s *Store) applySnapshot(generation uint64, items []models.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || generation != s.generation {
		return
	}

	s.items = append([]models.CartLineItem(nil), items...)
	s.lifecycle = StateSynced

	if s.errFromSub {
		s.errMsg = ""
		s.errFromSub = false
	}

	s.notifyLocked()
}

func (s *Store) subscriptionFailed(generation uint64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || generation != s.generation {
		return
	}

	s.errMsg = message
	s.errFromSub = true
	s.notifyLocked()
}

// stopSubscriptionLocked must be called with s.mu held.
func (s *Store) stopSubscriptionLocked() {
	if s.cancelSub == nil {
		return
	}

	s.cancelSub()
	s.cancelSub = nil

	if s.watching {
		s.watching = false
		metrics.CartSubscriptionStopped()
	}
}

// AddToCart inserts the product or increments the quantity of its line item.
func (s *Store) AddToCart(ctx context.Context, ref models.ProductRef, quantity int) error {

	userID, err := s.begin("Database or user not ready. Cannot add to cart.")
	if err != nil {
		return err
	}

	productID := ref.Identifier()
	if productID == "" {
		s.refuse("Product ID is missing.")
		return ErrMissingProductID
	}

	if quantity < 1 {
		s.refuse("Quantity must be at least 1.")
		return ErrInvalidQuantity
	}

	item := models.CartLineItem{
		ProductID: productID,
		Title:     ref.Title,
		Image:     ref.Image,
		Price:     ref.Price,
		Quantity:  quantity,
	}

	err = s.write(ctx, func(ctx context.Context) error {
		return s.repo.AddItem(ctx, userID, item)
	})
	if err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to add item to cart",
			slog.String("userId", userID), slog.String("productId", productID), slog.String("error", err.Error()))
		s.end("add", err, fmt.Sprintf("Failed to add/update item: %v", err))
		return fmt.Errorf("failed to add item %s: %w", productID, err)
	}

	s.end("add", nil, "")

	return nil
}

// RemoveFromCart deletes the line item. Removing an absent item succeeds.
func (s *Store) RemoveFromCart(ctx context.Context, productID string) error {

	userID, err := s.begin("Database or user not ready. Cannot remove from cart.")
	if err != nil {
		return err
	}

	return s.remove(ctx, userID, productID)
}

func (s *Store) remove(ctx context.Context, userID, productID string) error {

	if productID == "" {
		s.refuse("Product ID is missing.")
		return ErrMissingProductID
	}

	err := s.write(ctx, func(ctx context.Context) error {
		return s.repo.DeleteItem(ctx, userID, productID)
	})
	if err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to remove item from cart",
			slog.String("userId", userID), slog.String("productId", productID), slog.String("error", err.Error()))
		s.end("remove", err, fmt.Sprintf("Failed to remove item: %v", err))
		return fmt.Errorf("failed to remove item %s: %w", productID, err)
	}

	s.end("remove", nil, "")

	return nil
}

// UpdateQuantity overwrites the quantity; a quantity of zero or less removes
// the line item instead.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {

	userID, err := s.begin("Database or user not ready. Cannot update quantity.")
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return s.remove(ctx, userID, productID)
	}

	if productID == "" {
		s.refuse("Product ID is missing.")
		return ErrMissingProductID
	}

	err = s.write(ctx, func(ctx context.Context) error {
		return s.repo.SetQuantity(ctx, userID, productID, quantity)
	})
	if err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to update cart quantity",
			slog.String("userId", userID), slog.String("productId", productID), slog.String("error", err.Error()))
		s.end("update", err, fmt.Sprintf("Failed to update quantity: %v", err))
		return fmt.Errorf("failed to update quantity of %s: %w", productID, err)
	}

	s.end("update", nil, "")

	return nil
}

// ClearCart lists the remote items and deletes each with its own request.
// A partial failure leaves the remaining items in place.
func (s *Store) ClearCart(ctx context.Context) error {

	userID, err := s.begin("Database or user not ready. Cannot clear cart.")
	if err != nil {
		return err
	}

	err = s.write(ctx, func(ctx context.Context) error {

		items, err := s.repo.ListItems(ctx, userID)
		if err != nil {
			return err
		}

		var g errgroup.Group
		g.SetLimit(clearConcurrency)

		for _, item := range items {
			g.Go(func() error {
				return s.repo.DeleteItem(ctx, userID, item.ProductID)
			})
		}

		return g.Wait()
	})
	if err != nil {
		middleware.LoggerFromContext(ctx).Error("Failed to clear cart",
			slog.String("userId", userID), slog.String("error", err.Error()))
		s.end("clear", err, fmt.Sprintf("Failed to clear cart: %v", err))
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.end("clear", nil, "")

	return nil
}

// begin refuses the operation when the store is not ready; otherwise it
// clears the error message and marks one more write in flight.
func (s *Store) begin(notReadyMsg string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.repo == nil || s.userID == "" {
		s.errMsg = notReadyMsg
		s.errFromSub = false
		s.notifyLocked()
		return "", ErrNotReady
	}

	s.errMsg = ""
	s.errFromSub = false
	s.inFlight++
	s.notifyLocked()

	return s.userID, nil
}

// end settles a write started by begin and records its outcome.
func (s *Store) end(operation string, err error, message string) {

	metrics.RecordCartMutation(operation, err)

	s.finish(err != nil, message)
}

// refuse settles an operation rejected before any remote call.
func (s *Store) refuse(message string) {
	s.finish(true, message)
}

func (s *Store) finish(failed bool, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight > 0 {
		s.inFlight--
	}

	if failed {
		s.errMsg = message
		s.errFromSub = false
	}

	s.notifyLocked()
}

// write runs a remote write detached from the caller's cancellation; once
// issued it runs to completion or timeout.
func (s *Store) write(ctx context.Context, fn func(ctx context.Context) error) error {
	dbCtx, cancel := utils.WithDBTimeout(context.WithoutCancel(ctx))
	defer cancel()

	return fn(dbCtx)
}

// Snapshot returns the current state with totals derived from the mirror.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {

	items := append([]models.CartLineItem{}, s.items...)

	state := s.lifecycle
	if s.errMsg != "" {
		state = StateError
	}

	return Snapshot{
		UserID:     s.userID,
		State:      state,
		Items:      items,
		TotalItems: TotalItems(items),
		Subtotal:   Subtotal(items),
		Loading:    s.inFlight > 0,
		Error:      s.errMsg,
	}
}

func (s *Store) TotalItems() int {
	return s.Snapshot().TotalItems
}

func (s *Store) Subtotal() float64 {
	return s.Snapshot().Subtotal
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userID
}

// Subscribe returns a channel that always holds the latest snapshot; slow
// readers skip intermediate ones. The channel is closed by cancel or Close.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	ch <- s.snapshotLocked()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if listener, ok := s.listeners[id]; ok {
				delete(s.listeners, id)
				close(listener)
			}
		})
	}
}

// notifyLocked must be called with s.mu held.
func (s *Store) notifyLocked() {

	if len(s.listeners) == 0 {
		return
	}

	snapshot := s.snapshotLocked()

	for _, ch := range s.listeners {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Close tears the subscription down and closes every listener. Later
// mutations are refused.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.stopSubscriptionLocked()
	s.generation++
	s.closed = true
	s.lifecycle = StateUninitialized

	for id, ch := range s.listeners {
		delete(s.listeners, id)
		close(ch)
	}
}

// TotalItems is the sum of quantities.
func TotalItems(items []models.CartLineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of price times quantity, in the canonical currency.
func Subtotal(items []models.CartLineItem) float64 {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	return subtotal
}
