package models

import "time"

// Car is a vehicle registered by a customer for service bookings.
type Car struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID      int64     `gorm:"column:owner_id;not null;index"`
	Owner        *User     `gorm:"foreignKey:OwnerID"`
	LicensePlate string    `gorm:"column:license_plate;not null;uniqueIndex"`
	Make         string    `gorm:"column:make;not null"`
	Model        string    `gorm:"column:model;not null"`
	Year         int       `gorm:"column:year;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
