package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/internal/notifications"
	pkgdb "github.com/hoangkimbao/garage-backend/pkg/db"
	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
	pkgerrors "github.com/hoangkimbao/garage-backend/pkg/errors"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
)

// userGetter resolves users for email delivery. The users repository
// satisfies it.
type userGetter interface {
	FindByID(ctx context.Context, userID int64) (*models.User, error)
}

// CarInput carries the writable car fields.
type CarInput struct {
	LicensePlate string
	Make         string
	Model        string
	Year         int
}

// BookingInput describes a new appointment request.
type BookingInput struct {
	CustomerID      int64
	CarID           int64
	ServiceIDs      []int64
	AppointmentDate time.Time
	Notes           *string
}

// Service exposes car management and appointment booking.
type Service interface {
	AddCar(ctx context.Context, ownerID int64, input CarInput) (*models.Car, error)
	MyCars(ctx context.Context, ownerID int64) ([]models.Car, error)
	DeleteCar(ctx context.Context, ownerID, carID int64) error

	Book(ctx context.Context, input BookingInput) (*models.Appointment, error)
	MyAppointments(ctx context.Context, customerID int64) ([]models.Appointment, error)
	Get(ctx context.Context, appointmentID int64) (*models.Appointment, error)

	ListAll(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID int64, status enums.AppointmentStatus) (*models.Appointment, error)
}

type service struct {
	repo     Repository
	notifier notifications.Service
	mailer   notifications.Mailer
	users    userGetter
	logg     *logger.Logger
}

// NewService wires appointment dependencies.
func NewService(repo Repository, notifier notifications.Service, mailer notifications.Mailer, users userGetter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("appointments repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if users == nil {
		return nil, fmt.Errorf("user getter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, notifier: notifier, mailer: mailer, users: users, logg: logg}, nil
}

func (s *service) AddCar(ctx context.Context, ownerID int64, input CarInput) (*models.Car, error) {
	if ownerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	plate := strings.ToUpper(strings.TrimSpace(input.LicensePlate))
	if plate == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license plate required")
	}
	if strings.TrimSpace(input.Make) == "" || strings.TrimSpace(input.Model) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "make and model required")
	}
	if input.Year < 1950 || input.Year > time.Now().Year()+1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "implausible model year")
	}

	car, err := s.repo.CreateCar(ctx, &models.Car{
		OwnerID:      ownerID,
		LicensePlate: plate,
		Make:         input.Make,
		Model:        input.Model,
		Year:         input.Year,
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "license_plate") {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "license plate already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create car")
	}
	return car, nil
}

func (s *service) MyCars(ctx context.Context, ownerID int64) ([]models.Car, error) {
	if ownerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	cars, err := s.repo.ListCarsByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cars")
	}
	return cars, nil
}

func (s *service) DeleteCar(ctx context.Context, ownerID, carID int64) error {
	car, err := s.loadCar(ctx, carID)
	if err != nil {
		return err
	}
	if car.OwnerID != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "car belongs to another user")
	}
	if err := s.repo.DeleteCar(ctx, carID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete car")
	}
	return nil
}

func (s *service) Book(ctx context.Context, input BookingInput) (*models.Appointment, error) {
	if input.CustomerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.ServiceIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one service required")
	}
	if input.AppointmentDate.Before(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "appointment date must be in the future")
	}

	car, err := s.loadCar(ctx, input.CarID)
	if err != nil {
		return nil, err
	}
	if car.OwnerID != input.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "car belongs to another user")
	}

	services, err := s.repo.FindServicesByIDs(ctx, input.ServiceIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load services")
	}
	if len(services) != len(dedupe(input.ServiceIDs)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown service selected")
	}

	appointment, err := s.repo.CreateAppointment(ctx, &models.Appointment{
		CustomerID:      input.CustomerID,
		CarID:           input.CarID,
		Services:        services,
		AppointmentDate: input.AppointmentDate,
		Status:          enums.AppointmentStatusPending,
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create appointment")
	}
	return appointment, nil
}

func (s *service) MyAppointments(ctx context.Context, customerID int64) ([]models.Appointment, error) {
	if customerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	appointments, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appointments")
	}
	return appointments, nil
}

func (s *service) Get(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	if appointmentID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "appointment id required")
	}
	appointment, err := s.repo.FindAppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
	}
	return appointment, nil
}

func (s *service) ListAll(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown appointment status")
	}
	appointments, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appointments")
	}
	return appointments, nil
}

// UpdateStatus moves a booking through its lifecycle and tells the customer,
// in-app always and by email when an address is on file. Messaging failures
// never fail the update.
func (s *service) UpdateStatus(ctx context.Context, appointmentID int64, status enums.AppointmentStatus) (*models.Appointment, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown appointment status")
	}
	appointment, err := s.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.Status == status {
		return appointment, nil
	}

	if err := s.repo.UpdateStatus(ctx, appointmentID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update appointment status")
	}
	appointment.Status = status

	title, body := statusMessage(appointment, status)
	if _, err := s.notifier.Notify(ctx, appointment.CustomerID, title, body); err != nil {
		s.logg.Error(ctx, "notify appointment status", err)
	}
	s.emailCustomer(ctx, appointment.CustomerID, title, body)

	return appointment, nil
}

func (s *service) emailCustomer(ctx context.Context, customerID int64, subject, body string) {
	user, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		s.logg.Error(ctx, "load customer for email", err)
		return
	}
	if user.Email == "" {
		return
	}
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		s.logg.Error(ctx, "send appointment email", err)
	}
}

func (s *service) loadCar(ctx context.Context, carID int64) (*models.Car, error) {
	if carID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "car id required")
	}
	car, err := s.repo.FindCarByID(ctx, carID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "car not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load car")
	}
	return car, nil
}

func statusMessage(appointment *models.Appointment, status enums.AppointmentStatus) (string, string) {
	when := appointment.AppointmentDate.Format("Mon, 02 Jan 2006 15:04")
	switch status {
	case enums.AppointmentStatusConfirmed:
		return "Appointment confirmed", fmt.Sprintf("Your appointment on %s has been confirmed.", when)
	case enums.AppointmentStatusInProgress:
		return "Work in progress", fmt.Sprintf("Work on your appointment from %s has started.", when)
	case enums.AppointmentStatusCompleted:
		return "Appointment completed", fmt.Sprintf("Your appointment on %s is complete. Your car is ready for pickup.", when)
	case enums.AppointmentStatusCancelled:
		return "Appointment cancelled", fmt.Sprintf("Your appointment on %s has been cancelled.", when)
	default:
		return "Appointment updated", fmt.Sprintf("Your appointment on %s is now %s.", when, status)
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
