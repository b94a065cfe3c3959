package appointments

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/internal/notifications"
	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

type dbUserGetter struct {
	db *gorm.DB
}

func (g dbUserGetter) FindByID(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	if err := g.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type fixture struct {
	svc    Service
	mailer *recordingMailer
	db     *gorm.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dsn := "file:appointments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Car{}, &models.GarageService{},
		&models.Appointment{}, &models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	notifier, err := notifications.NewService(notifications.NewRepository(db))
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}

	mailer := &recordingMailer{}
	logg := logger.New(logger.Options{ServiceName: "appointments-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), notifier, mailer, dbUserGetter{db: db}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return fixture{svc: svc, mailer: mailer, db: db}
}

func (f fixture) seedUser(t *testing.T, email string) models.User {
	t.Helper()
	user := models.User{
		Email:        email,
		PasswordHash: "x",
		FullName:     "Test User",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f fixture) seedService(t *testing.T, name string) models.GarageService {
	t.Helper()
	svc := models.GarageService{
		Name:  name,
		Slug:  name + "-" + uuid.NewString(),
		Price: decimal.NewFromInt(300000),
	}
	if err := f.db.Create(&svc).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return svc
}

func (f fixture) addCar(t *testing.T, ownerID int64, plate string) *models.Car {
	t.Helper()
	car, err := f.svc.AddCar(context.Background(), ownerID, CarInput{
		LicensePlate: plate,
		Make:         "Toyota",
		Model:        "Vios",
		Year:         2020,
	})
	if err != nil {
		t.Fatalf("add car: %v", err)
	}
	return car
}

func TestAddCarNormalizesAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")

	car, err := f.svc.AddCar(ctx, owner.ID, CarInput{
		LicensePlate: "  51f-123.45 ",
		Make:         "Honda",
		Model:        "City",
		Year:         2021,
	})
	if err != nil {
		t.Fatalf("add car: %v", err)
	}
	if car.LicensePlate != "51F-123.45" {
		t.Fatalf("expected uppercased plate, got %q", car.LicensePlate)
	}

	_, err = f.svc.AddCar(ctx, owner.ID, CarInput{
		LicensePlate: "51F-123.45",
		Make:         "Honda",
		Model:        "City",
		Year:         2021,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected conflict on duplicate plate, got %v", err)
	}
}

func TestDeleteCarOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")
	stranger := f.seedUser(t, "stranger@example.com")
	car := f.addCar(t, owner.ID, "30A-000.01")

	if err := f.svc.DeleteCar(ctx, stranger.ID, car.ID); err == nil {
		t.Fatal("foreign car must not be deletable")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := f.svc.DeleteCar(ctx, owner.ID, car.ID); err != nil {
		t.Fatalf("delete car: %v", err)
	}
	cars, err := f.svc.MyCars(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list cars: %v", err)
	}
	if len(cars) != 0 {
		t.Fatalf("expected no cars, got %d", len(cars))
	}
}

func TestBookAppointment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")
	car := f.addCar(t, owner.ID, "29B-555.55")
	oil := f.seedService(t, "Oil Change")
	brake := f.seedService(t, "Brake Service")

	appointment, err := f.svc.Book(ctx, BookingInput{
		CustomerID:      owner.ID,
		CarID:           car.ID,
		ServiceIDs:      []int64{oil.ID, brake.ID},
		AppointmentDate: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appointment.Status != enums.AppointmentStatusPending {
		t.Fatalf("expected pending, got %s", appointment.Status)
	}

	mine, err := f.svc.MyAppointments(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || len(mine[0].Services) != 2 {
		t.Fatalf("expected 1 appointment with 2 services, got %+v", mine)
	}
	if mine[0].Car == nil || mine[0].Car.LicensePlate != "29B-555.55" {
		t.Fatalf("expected car preloaded, got %+v", mine[0].Car)
	}
}

func TestBookValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")
	stranger := f.seedUser(t, "stranger@example.com")
	car := f.addCar(t, owner.ID, "43C-777.77")
	oil := f.seedService(t, "Oil Change")

	_, err := f.svc.Book(ctx, BookingInput{
		CustomerID:      owner.ID,
		CarID:           car.ID,
		ServiceIDs:      []int64{oil.ID},
		AppointmentDate: time.Now().Add(-time.Hour),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for past date, got %v", err)
	}

	_, err = f.svc.Book(ctx, BookingInput{
		CustomerID:      stranger.ID,
		CarID:           car.ID,
		ServiceIDs:      []int64{oil.ID},
		AppointmentDate: time.Now().Add(time.Hour),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign car, got %v", err)
	}

	_, err = f.svc.Book(ctx, BookingInput{
		CustomerID:      owner.ID,
		CarID:           car.ID,
		ServiceIDs:      []int64{oil.ID, 9999},
		AppointmentDate: time.Now().Add(time.Hour),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown service, got %v", err)
	}
}

func TestUpdateStatusNotifiesCustomer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")
	car := f.addCar(t, owner.ID, "92D-111.22")
	oil := f.seedService(t, "Oil Change")

	appointment, err := f.svc.Book(ctx, BookingInput{
		CustomerID:      owner.ID,
		CarID:           car.ID,
		ServiceIDs:      []int64{oil.ID},
		AppointmentDate: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	updated, err := f.svc.UpdateStatus(ctx, appointment.ID, enums.AppointmentStatusConfirmed)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.AppointmentStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}

	var count int64
	f.db.Model(&models.Notification{}).Where("user_id = ?", owner.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 notification, got %d", count)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %v", f.mailer.sent)
	}

	_, err = f.svc.UpdateStatus(ctx, appointment.ID, "shipped")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bogus status, got %v", err)
	}
}

func TestUpdateStatusSurvivesMailFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")
	car := f.addCar(t, owner.ID, "88E-333.44")
	oil := f.seedService(t, "Oil Change")

	appointment, err := f.svc.Book(ctx, BookingInput{
		CustomerID:      owner.ID,
		CarID:           car.ID,
		ServiceIDs:      []int64{oil.ID},
		AppointmentDate: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	f.mailer.err = context.DeadlineExceeded
	updated, err := f.svc.UpdateStatus(ctx, appointment.ID, enums.AppointmentStatusCompleted)
	if err != nil {
		t.Fatalf("status update must not fail on mail error: %v", err)
	}
	if updated.Status != enums.AppointmentStatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
}

func TestListAllFiltersByStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "owner@example.com")
	car := f.addCar(t, owner.ID, "17F-999.00")
	oil := f.seedService(t, "Oil Change")

	for range [2]struct{}{} {
		if _, err := f.svc.Book(ctx, BookingInput{
			CustomerID:      owner.ID,
			CarID:           car.ID,
			ServiceIDs:      []int64{oil.ID},
			AppointmentDate: time.Now().Add(24 * time.Hour),
		}); err != nil {
			t.Fatalf("book: %v", err)
		}
	}
	all, err := f.svc.ListAll(ctx, AppointmentFilter{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(all))
	}

	if _, err := f.svc.UpdateStatus(ctx, all[0].ID, enums.AppointmentStatusCancelled); err != nil {
		t.Fatalf("update: %v", err)
	}

	cancelled, err := f.svc.ListAll(ctx, AppointmentFilter{Status: enums.AppointmentStatusCancelled})
	if err != nil {
		t.Fatalf("list cancelled: %v", err)
	}
	if len(cancelled) != 1 {
		t.Fatalf("expected 1 cancelled appointment, got %d", len(cancelled))
	}

	if _, err := f.svc.ListAll(ctx, AppointmentFilter{Status: "bogus"}); err == nil {
		t.Fatal("bogus status filter must fail")
	}
}
