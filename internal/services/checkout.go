package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cart"
	"github.com/aaravmahajanofficial/storefront/internal/currency"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
)

type CheckoutService interface {
	Checkout(ctx context.Context, store *cart.Store, selector *currency.Selector, req *models.CheckoutRequest) (*models.Order, error)
}

type checkoutService struct {
	orders        OrderService
	notifications NotificationService
}

// NewCheckoutService builds the orchestrator; notifications may be nil.
func NewCheckoutService(orders OrderService, notifications NotificationService) CheckoutService {
	return &checkoutService{orders: orders, notifications: notifications}
}

// Checkout snapshots the cart, places the order and clears the cart. The
// confirmation email is best effort.
func (s *checkoutService) Checkout(ctx context.Context, store *cart.Store, selector *currency.Selector, req *models.CheckoutRequest) (*models.Order, error) {

	snapshot := store.Snapshot()

	if snapshot.UserID == "" || snapshot.State == cart.StateUninitialized || snapshot.State == cart.StateIdentityReady {
		return nil, appErrors.ConflictError("Cart is loading or user is not authenticated. Please wait.")
	}

	if len(snapshot.Items) == 0 {
		return nil, appErrors.BadRequestError("Empty Cart")
	}

	logger := middleware.LoggerFromContext(ctx).With(slog.String("userId", snapshot.UserID))

	items := make([]models.OrderItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	shipping := req.ShippingDetails

	orderReq := &models.CreateOrderRequest{
		UserID:          snapshot.UserID,
		Items:           items,
		TotalAmount:     snapshot.Subtotal,
		CurrencyAtOrder: selector.Currency(),
		ShippingDetails: &shipping,
		PaymentMethod:   req.PaymentMethod,
	}

	if converted, ok := selector.Price(snapshot.Subtotal); ok {
		rounded := math.Round(converted*100) / 100
		orderReq.TotalAmountConverted = &rounded
	}

	orderReq.ExchangeRateAtOrder = selector.Provider().Snapshot().Rate

	order, err := s.orders.CreateOrder(ctx, orderReq)
	if err != nil {
		return nil, err
	}

	logger = logger.With(slog.String("orderId", order.ID.Hex()))
	logger.Info("Order placed", slog.Int("items", len(items)), slog.Float64("total", order.TotalAmount))

	if err := store.ClearCart(ctx); err != nil {
		logger.Warn("Order placed but cart was not fully cleared", slog.String("error", err.Error()))
	}

	s.sendConfirmation(ctx, logger, order, selector.Provider().Canonical())

	return order, nil
}

func (s *checkoutService) sendConfirmation(ctx context.Context, logger *slog.Logger, order *models.Order, canonical string) {

	if s.notifications == nil || order.ShippingDetails == nil || order.ShippingDetails.Email == "" {
		return
	}

	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "%d x %s @ %s %.2f\n", item.Quantity, item.Title, canonical, item.Price)
	}

	text := fmt.Sprintf("Hi %s,\n\nThank you for your order %s.\n\n%s\nTotal: %s %.2f\nPayment: %s\n",
		order.ShippingDetails.FullName, order.ID.Hex(), lines.String(), canonical, order.TotalAmount, order.PaymentMethod)

	_, err := s.notifications.SendEmail(ctx, &models.EmailNotificationRequest{
		To:       order.ShippingDetails.Email,
		Subject:  "Order confirmation " + order.ID.Hex(),
		Content:  text,
		Metadata: map[string]string{"orderId": order.ID.Hex(), "userId": order.UserID},
	})
	if err != nil {
		logger.Warn("Failed to send order confirmation", slog.String("error", err.Error()))
	}
}
