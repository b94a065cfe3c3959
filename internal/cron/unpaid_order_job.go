package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

// Gateway orders left unconfirmed this long are considered abandoned.
const defaultUnpaidOrderTTL = 24 * time.Hour

// UnpaidOrderJobParams configure the abandoned-order cleanup.
type UnpaidOrderJobParams struct {
	Logger *logger.Logger
	Orders unpaidOrderReader
	Purger unpaidOrderPurger
	TTL    time.Duration
}

type unpaidOrderReader interface {
	FindUnpaidBefore(ctx context.Context, method enums.PaymentMethod, cutoff time.Time) ([]models.Order, error)
}

type unpaidOrderPurger interface {
	DiscardUnpaid(ctx context.Context, orderID int64) error
}

// NewUnpaidOrderJob builds the cron job that discards abandoned gateway
// orders. Confirmed orders are never touched; a payment landing between the
// query and the discard is rejected by the purger's paid check.
func NewUnpaidOrderJob(params UnpaidOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("order purger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultUnpaidOrderTTL
	}
	return &unpaidOrderJob{
		logg:   params.Logger,
		orders: params.Orders,
		purger: params.Purger,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type unpaidOrderJob struct {
	logg   *logger.Logger
	orders unpaidOrderReader
	purger unpaidOrderPurger
	ttl    time.Duration
	now    func() time.Time
}

func (j *unpaidOrderJob) Name() string { return "unpaid-order-cleanup" }

func (j *unpaidOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindUnpaidBefore(ctx, enums.PaymentMethodVNPay, cutoff)
	if err != nil {
		return fmt.Errorf("query unpaid orders: %w", err)
	}

	var errs []error
	discarded := 0
	for _, order := range stale {
		if err := j.purger.DiscardUnpaid(ctx, order.ID); err != nil {
			errs = append(errs, fmt.Errorf("discard order %d: %w", order.ID, err))
			continue
		}
		discarded++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"discarded":  discarded,
	})
	j.logg.Info(logCtx, "unpaid order cleanup complete")
	return multierr.Combine(errs...)
}
