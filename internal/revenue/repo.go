package revenue

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hoangkimbao/garage-backend/pkg/db/models"
	"github.com/hoangkimbao/garage-backend/pkg/enums"
)

// Repository reads the raw rows revenue reporting aggregates over.
type Repository interface {
	PaidOrders(ctx context.Context, from, to time.Time) ([]models.Order, error)
	CompletedAppointments(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a revenue repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) PaidOrders(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("paid = ?", true)
	if !from.IsZero() {
		query = query.Where("paid_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("paid_at < ?", to)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) CompletedAppointments(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).
		Preload("Services").
		Where("status = ?", enums.AppointmentStatusCompleted)
	if !from.IsZero() {
		query = query.Where("appointment_date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("appointment_date < ?", to)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}
