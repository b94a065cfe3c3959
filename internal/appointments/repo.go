package appointments

import (
	"context"

	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
)

// Repository defines persistence operations for cars and service bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCar(ctx context.Context, car *models.Car) (*models.Car, error)
	FindCarByID(ctx context.Context, carID int64) (*models.Car, error)
	ListCarsByOwner(ctx context.Context, ownerID int64) ([]models.Car, error)
	DeleteCar(ctx context.Context, carID int64) error

	CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	FindAppointmentByID(ctx context.Context, appointmentID int64) (*models.Appointment, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Appointment, error)
	ListAll(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID int64, status enums.AppointmentStatus) error

	FindServicesByIDs(ctx context.Context, serviceIDs []int64) ([]models.GarageService, error)
}

// AppointmentFilter narrows the admin listing.
type AppointmentFilter struct {
	Status enums.AppointmentStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an appointments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCar(ctx context.Context, car *models.Car) (*models.Car, error) {
	if err := r.db.WithContext(ctx).Create(car).Error; err != nil {
		return nil, err
	}
	return car, nil
}

func (r *repository) FindCarByID(ctx context.Context, carID int64) (*models.Car, error) {
	var car models.Car
	err := r.db.WithContext(ctx).
		Where("id = ?", carID).
		First(&car).Error
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *repository) ListCarsByOwner(ctx context.Context, ownerID int64) ([]models.Car, error) {
	var cars []models.Car
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&cars).Error
	if err != nil {
		return nil, err
	}
	return cars, nil
}

func (r *repository) DeleteCar(ctx context.Context, carID int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", carID).
		Delete(&models.Car{}).Error
}

func (r *repository) CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	if err := r.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return nil, err
	}
	return appointment, nil
}

func (r *repository) FindAppointmentByID(ctx context.Context, appointmentID int64) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Services").
		Where("id = ?", appointmentID).
		First(&appointment).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID int64) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Services").
		Where("customer_id = ?", customerID).
		Order("appointment_date DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *repository) ListAll(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Services")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var appointments []models.Appointment
	if err := query.Order("appointment_date DESC").Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *repository) UpdateStatus(ctx context.Context, appointmentID int64, status enums.AppointmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", appointmentID).
		Update("status", status).Error
}

func (r *repository) FindServicesByIDs(ctx context.Context, serviceIDs []int64) ([]models.GarageService, error) {
	var services []models.GarageService
	err := r.db.WithContext(ctx).
		Where("id IN ?", serviceIDs).
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}
