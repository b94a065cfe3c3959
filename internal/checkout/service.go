package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/internal/cart"
	"github.com/hoangkimbao/garage-backend/internal/checkout/reservation"
	"github.com/hoangkimbao/garage-backend/internal/orders"
	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// cartStore is the slice of the cart service checkout needs.
type cartStore interface {
	Snapshot(ctx context.Context, userID int64) ([]cart.Item, error)
	Clear(ctx context.Context, userID int64) error
}

// paymentURLBuilder hands a created order to the payment gateway.
type paymentURLBuilder interface {
	PaymentURL(ctx context.Context, order *models.Order, clientIP string) (string, error)
}

// Input describes a checkout request for the caller's cart.
type Input struct {
	UserID        int64
	PaymentMethod enums.PaymentMethod
	ClientIP      string
}

// Result is the created order plus, for gateway payments, the redirect URL.
type Result struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"payment_url,omitempty"`
}

// Service turns a cart into an order: stock is reserved and the order row is
// written in one transaction, then the cart is cleared.
type Service struct {
	carts    cartStore
	orders   orders.Repository
	tx       txRunner
	payments paymentURLBuilder
	logg     *logger.Logger
}

// NewService builds a checkout service. payments may be nil when the gateway
// is not configured; VNPay checkouts then fail with a validation error.
func NewService(carts cartStore, ordersRepo orders.Repository, tx txRunner, payments paymentURLBuilder, logg *logger.Logger) (*Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{carts: carts, orders: ordersRepo, tx: tx, payments: payments, logg: logg}, nil
}

// Checkout converts the user's cart into an order. Stock for every line is
// reserved atomically; any shortfall rolls the whole order back and reports
// the offending part. Lines are priced at the cart's add-time snapshot, so the
// total charged matches the total the cart showed.
func (s *Service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if input.PaymentMethod == enums.PaymentMethodVNPay && s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "online payment is not available")
	}

	items, err := s.carts.Snapshot(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	requests := make([]reservation.PartReservationRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, reservation.PartReservationRequest{PartID: item.PartID, Qty: item.Qty})
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := reservation.ReserveParts(ctx, tx, requests); err != nil {
			return err
		}

		orderItems, total, err := priceItems(ctx, tx, items)
		if err != nil {
			return err
		}

		created, err := s.orders.WithTx(tx).Create(ctx, &models.Order{
			UserID:        input.UserID,
			Items:         orderItems,
			TotalPrice:    total,
			PaymentMethod: input.PaymentMethod,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The order exists either way; a stale cart is the lesser failure.
	if err := s.carts.Clear(ctx, input.UserID); err != nil {
		s.logg.Error(ctx, "clear cart after checkout", err)
	}

	result := &Result{Order: order}
	if input.PaymentMethod == enums.PaymentMethodVNPay {
		paymentURL, err := s.payments.PaymentURL(ctx, order, input.ClientIP)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment url")
		}
		result.PaymentURL = paymentURL
	}
	return result, nil
}

// priceItems builds order items from the cart's snapshotted unit prices. The
// reserved part rows are still read inside the transaction to backfill lines
// stored before prices were snapshotted.
func priceItems(ctx context.Context, tx *gorm.DB, items []cart.Item) ([]models.OrderItem, decimal.Decimal, error) {
	total := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		price := item.UnitPrice
		if price.IsZero() {
			var part models.Part
			if err := tx.WithContext(ctx).First(&part, "id = ?", item.PartID).Error; err != nil {
				return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part for pricing")
			}
			price = part.Price
		}
		orderItems = append(orderItems, models.OrderItem{
			PartID:    item.PartID,
			Quantity:  item.Qty,
			UnitPrice: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return orderItems, total, nil
}
