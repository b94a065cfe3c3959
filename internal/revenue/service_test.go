package revenue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
)

var testNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:revenue_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{}, &models.OrderItem{},
		&models.GarageService{}, &models.Appointment{}, &models.Car{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.now = func() time.Time { return testNow }
	return svc, db
}

func seedPaidOrder(t *testing.T, db *gorm.DB, total int64, paidAt time.Time) {
	t.Helper()
	order := models.Order{
		UserID:        1,
		TotalPrice:    decimal.NewFromInt(total),
		PaymentMethod: enums.PaymentMethodCOD,
		Paid:          true,
		PaidAt:        &paidAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func seedCompletedAppointment(t *testing.T, db *gorm.DB, price int64, date time.Time, status enums.AppointmentStatus) {
	t.Helper()
	service := models.GarageService{
		Name:  "Service",
		Slug:  "service-" + uuid.NewString(),
		Price: decimal.NewFromInt(price),
	}
	if err := db.Create(&service).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	appointment := models.Appointment{
		CustomerID:      1,
		CarID:           1,
		Services:        []models.GarageService{service},
		AppointmentDate: date,
		Status:          status,
	}
	if err := db.Create(&appointment).Error; err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
}

func TestSummaryWindows(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	seedPaidOrder(t, db, 100000, testNow.Add(-time.Hour))                 // today
	seedPaidOrder(t, db, 200000, testNow.AddDate(0, 0, -10))              // this month
	seedPaidOrder(t, db, 400000, testNow.AddDate(0, -3, 0))               // older
	seedCompletedAppointment(t, db, 50000, testNow.Add(-2*time.Hour), enums.AppointmentStatusCompleted)
	seedCompletedAppointment(t, db, 70000, testNow.AddDate(0, -3, 0), enums.AppointmentStatusCompleted)
	// Pending work is not revenue yet.
	seedCompletedAppointment(t, db, 999999, testNow.Add(-time.Hour), enums.AppointmentStatusPending)

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if !summary.Today.Parts.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("today parts: got %s", summary.Today.Parts)
	}
	if !summary.Today.Services.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("today services: got %s", summary.Today.Services)
	}
	if !summary.ThisMonth.Total.Equal(decimal.NewFromInt(350000)) {
		t.Fatalf("month total: got %s", summary.ThisMonth.Total)
	}
	if !summary.AllTime.Total.Equal(decimal.NewFromInt(820000)) {
		t.Fatalf("all-time total: got %s", summary.AllTime.Total)
	}
}

func TestSummaryIgnoresUnpaidOrders(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)

	unpaid := models.Order{
		UserID:        1,
		TotalPrice:    decimal.NewFromInt(500000),
		PaymentMethod: enums.PaymentMethodVNPay,
		Paid:          false,
	}
	if err := db.Create(&unpaid).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !summary.AllTime.Total.IsZero() {
		t.Fatalf("unpaid orders must not count, got %s", summary.AllTime.Total)
	}
}

func TestMonthlySeriesFillsGaps(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	seedPaidOrder(t, db, 300000, testNow.AddDate(0, -1, 0))
	seedCompletedAppointment(t, db, 150000, testNow.AddDate(0, -1, 0), enums.AppointmentStatusCompleted)
	seedPaidOrder(t, db, 120000, testNow)

	series, err := svc.MonthlySeries(ctx, 6)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series) != 6 {
		t.Fatalf("expected 6 points, got %d", len(series))
	}

	last := series[5]
	if last.Year != 2025 || last.Month != time.September {
		t.Fatalf("expected series to end at 2025-09, got %d-%s", last.Year, last.Month)
	}
	if !last.Parts.Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("september parts: got %s", last.Parts)
	}

	august := series[4]
	if !august.Total.Equal(decimal.NewFromInt(450000)) {
		t.Fatalf("august total: got %s", august.Total)
	}

	// Months with no trade are present and zero.
	if !series[0].Total.IsZero() {
		t.Fatalf("expected empty month, got %s", series[0].Total)
	}
}

func TestMonthlySeriesValidatesRange(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	if _, err := svc.MonthlySeries(context.Background(), 0); err == nil {
		t.Fatal("zero months must fail")
	}
	if _, err := svc.MonthlySeries(context.Background(), 37); err == nil {
		t.Fatal("oversized range must fail")
	}
}
