package service

import (
	"context"
	"time"

	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
)

type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*models.Order, error)
}

type orderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

// CreateOrder stores the snapshot as submitted, stamped pending with the
// current date.
func (s *orderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {

	if req.UserID == "" || len(req.Items) == 0 || req.Total() == 0 || req.ShippingDetails == nil {
		return nil, appErrors.ValidationError("Missing required order data")
	}

	order := &models.Order{
		UserID:               req.UserID,
		Items:                req.Items,
		TotalAmount:          req.Total(),
		TotalAmountConverted: req.TotalAmountConverted,
		CurrencyAtOrder:      req.CurrencyAtOrder,
		ExchangeRateAtOrder:  req.ExchangeRateAtOrder,
		ShippingDetails:      req.ShippingDetails,
		PaymentMethod:        req.PaymentMethod,
		Status:               models.OrderStatusPending,
		OrderDate:            time.Now().UTC(),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, appErrors.DatabaseError("Failed to place order due to an unexpected error").WithDetail(err.Error()).WithError(err)
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID string) ([]*models.Order, error) {

	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch orders").WithDetail(err.Error()).WithError(err)
	}

	return orders, nil
}
