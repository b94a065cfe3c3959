package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/internal/checkout/reservation"
	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ErrAlreadyPaid signals that an order's payment was confirmed earlier. The
// gateway callback maps this onto its "already confirmed" response code.
var ErrAlreadyPaid = errors.New("order already confirmed")

// Service defines order-level operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, orderID int64) (*models.Order, error)
	GetForUser(ctx context.Context, orderID, userID int64) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Order, error)
	MarkPaid(ctx context.Context, orderID int64) error
	DiscardUnpaid(ctx context.Context, orderID int64) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// MarkPaid flips the paid flag exactly once. The order row is locked so a
// concurrent IPN and return-URL confirmation cannot both succeed; the loser
// observes paid=true and gets ErrAlreadyPaid.
func (s *service) MarkPaid(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Paid {
			return ErrAlreadyPaid
		}
		if err := repo.MarkPaid(ctx, order.ID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		return nil
	})
}

// DiscardUnpaid removes an order whose gateway payment failed and returns its
// reserved quantities to stock, all in one transaction. Paid orders are never
// deleted.
func (s *service) DiscardUnpaid(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Paid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "paid orders cannot be discarded")
		}

		// FindByIDForUpdate does not preload items; reload for the line quantities.
		order, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		requests := make([]reservation.PartReservationRequest, 0, len(order.Items))
		for _, item := range order.Items {
			requests = append(requests, reservation.PartReservationRequest{
				PartID: item.PartID,
				Qty:    item.Quantity,
			})
		}
		if len(requests) > 0 {
			if err := reservation.ReleaseParts(ctx, tx, requests); err != nil {
				return err
			}
		}

		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}
