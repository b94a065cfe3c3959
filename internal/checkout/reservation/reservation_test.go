package reservation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
)

func TestReservePartsAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	brakePad := seedPart(t, db, "Brake Pad", 5)
	oilFilter := seedPart(t, db, "Oil Filter", 1)

	// Second request overshoots, so nothing may be committed.
	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveParts(ctx, tx, []PartReservationRequest{
			{PartID: brakePad.ID, Qty: 3},
			{PartID: oilFilter.ID, Qty: 2},
		})
	})
	if err == nil {
		t.Fatal("expected reservation to fail")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details naming the part, got %v", typed.Details())
	}
	if details["part_name"] != "Oil Filter" {
		t.Fatalf("expected offending part in details, got %v", details)
	}

	assertQuantity(t, db, brakePad.ID, 5)
	assertQuantity(t, db, oilFilter.ID, 1)
}

func TestReservePartsDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	part := seedPart(t, db, "Air Filter", 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveParts(ctx, tx, []PartReservationRequest{
			{PartID: part.ID, Qty: 4},
			{PartID: part.ID, Qty: 2},
		})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	assertQuantity(t, db, part.ID, 4)
}

func TestReservePartsExactStockDrainsToZero(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	part := seedPart(t, db, "Spark Plug", 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveParts(ctx, tx, []PartReservationRequest{{PartID: part.ID, Qty: 3}})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertQuantity(t, db, part.ID, 0)

	err = db.Transaction(func(tx *gorm.DB) error {
		return ReserveParts(ctx, tx, []PartReservationRequest{{PartID: part.ID, Qty: 1}})
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected conflict on drained stock, got %v", err)
	}
}

func TestReservePartsMissingPart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveParts(ctx, tx, []PartReservationRequest{{PartID: 9999, Qty: 1}})
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("deleted part should read as a reservation conflict, got %v", err)
	}
}

func TestReservePartsInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	part := seedPart(t, db, "Wiper Blade", 5)

	err := ReserveParts(ctx, db, []PartReservationRequest{{PartID: part.ID, Qty: 0}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleasePartsRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	part := seedPart(t, db, "Timing Belt", 8)

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveParts(ctx, tx, []PartReservationRequest{{PartID: part.ID, Qty: 5}})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertQuantity(t, db, part.ID, 3)

	err = db.Transaction(func(tx *gorm.DB) error {
		return ReleaseParts(ctx, tx, []PartReservationRequest{{PartID: part.ID, Qty: 5}})
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	assertQuantity(t, db, part.ID, 8)
}

func seedPart(t *testing.T, db *gorm.DB, name string, qty int) models.Part {
	t.Helper()
	part := models.Part{
		CategoryID: 1,
		Name:       name,
		PartNumber: "PN-" + uuid.NewString(),
		Brand:      "Bosch",
		Price:      decimal.NewFromInt(100000),
		Quantity:   qty,
	}
	if err := db.Create(&part).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
	return part
}

func assertQuantity(t *testing.T, db *gorm.DB, partID int64, want int) {
	t.Helper()
	var part models.Part
	if err := db.First(&part, "id = ?", partID).Error; err != nil {
		t.Fatalf("load part: %v", err)
	}
	if part.Quantity != want {
		t.Fatalf("expected quantity %d, got %d", want, part.Quantity)
	}
}

// The sqlite driver drops the FOR UPDATE clause, so these tests cover the
// arithmetic and error paths only. The row lock itself is exercised against
// postgres by the db-tagged concurrency test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Part{}); err != nil {
		t.Fatalf("migrate parts: %v", err)
	}
	return db
}
