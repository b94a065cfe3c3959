package models

import (
	"time"

	"github.com/hoangkimbao/garage-backend/pkg/enums"
)

// Appointment is a customer booking for one or more garage services.
type Appointment struct {
	ID              int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID      int64                   `gorm:"column:customer_id;not null;index"`
	Customer        *User                   `gorm:"foreignKey:CustomerID"`
	CarID           int64                   `gorm:"column:car_id;not null;index"`
	Car             *Car                    `gorm:"foreignKey:CarID"`
	Services        []GarageService         `gorm:"many2many:appointment_services"`
	AppointmentDate time.Time               `gorm:"column:appointment_date;not null;index"`
	Status          enums.AppointmentStatus `gorm:"column:status;type:text;not null;default:pending"`
	Notes           *string                 `gorm:"column:notes"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
