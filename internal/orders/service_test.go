package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Part{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedOrder(t *testing.T, db *gorm.DB, userID int64, paid bool) models.Order {
	t.Helper()
	order := models.Order{
		UserID:        userID,
		TotalPrice:    decimal.NewFromInt(500000),
		PaymentMethod: enums.PaymentMethodVNPay,
		Paid:          paid,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestMarkPaidFlipsExactlyOnce(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, db, 1, false)

	if err := svc.MarkPaid(ctx, order.ID); err != nil {
		t.Fatalf("first mark paid: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if !reloaded.Paid || reloaded.PaidAt == nil {
		t.Fatalf("expected paid order with timestamp, got %+v", reloaded)
	}

	// A second confirmation must be rejected, not re-applied.
	err := svc.MarkPaid(ctx, order.ID)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestMarkPaidUnknownOrder(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	err := svc.MarkPaid(context.Background(), 404)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetForUserEnforcesOwnership(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	order := seedOrder(t, db, 7, false)

	if _, err := svc.GetForUser(ctx, order.ID, 7); err != nil {
		t.Fatalf("owner load: %v", err)
	}
	_, err := svc.GetForUser(ctx, order.ID, 8)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for other user, got %v", err)
	}
}

func TestDiscardUnpaid(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	unpaid := seedOrder(t, db, 1, false)
	if err := svc.DiscardUnpaid(ctx, unpaid.ID); err != nil {
		t.Fatalf("discard unpaid: %v", err)
	}
	var count int64
	db.Model(&models.Order{}).Where("id = ?", unpaid.ID).Count(&count)
	if count != 0 {
		t.Fatal("unpaid order should be deleted")
	}

	paid := seedOrder(t, db, 1, true)
	err := svc.DiscardUnpaid(ctx, paid.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("paid orders must not be discarded, got %v", err)
	}
}

func TestDiscardUnpaidRestoresReservedStock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	// Stock is at 2 after a 3-unit reservation was taken at checkout.
	part := models.Part{Name: "Oil filter", PartNumber: "OF-110", Price: decimal.NewFromInt(150000), Quantity: 2}
	if err := db.Create(&part).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
	order := models.Order{
		UserID:        9,
		TotalPrice:    decimal.NewFromInt(450000),
		PaymentMethod: enums.PaymentMethodVNPay,
		Items: []models.OrderItem{
			{PartID: part.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(150000)},
		},
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if err := svc.DiscardUnpaid(ctx, order.ID); err != nil {
		t.Fatalf("discard unpaid: %v", err)
	}

	var reloaded models.Part
	if err := db.First(&reloaded, "id = ?", part.ID).Error; err != nil {
		t.Fatalf("reload part: %v", err)
	}
	if reloaded.Quantity != 5 {
		t.Fatalf("discarded order must restore stock: want 5, got %d", reloaded.Quantity)
	}

	var items int64
	db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	if items != 0 {
		t.Fatalf("order items should be deleted, %d remain", items)
	}
}

func TestListForUserOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	seedOrder(t, db, 3, false)
	seedOrder(t, db, 3, true)
	seedOrder(t, db, 4, false)

	orders, err := svc.ListForUser(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders for user 3, got %d", len(orders))
	}
}
