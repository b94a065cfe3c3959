package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// PartGroup is the top level of the parts taxonomy.
type PartGroup struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string         `gorm:"column:name;not null;uniqueIndex"`
	Categories []PartCategory `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PartCategory groups parts under a PartGroup.
type PartCategory struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	GroupID   int64     `gorm:"column:group_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Part represents a sellable auto part with tracked stock.
type Part struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	CategoryID  int64           `gorm:"column:category_id;not null;index"`
	Category    *PartCategory   `gorm:"foreignKey:CategoryID"`
	Name        string          `gorm:"column:name;not null"`
	PartNumber  string          `gorm:"column:part_number;not null;uniqueIndex"`
	Brand       string          `gorm:"column:brand;not null"`
	Description *string         `gorm:"column:description"`
	Tags        pq.StringArray  `gorm:"column:tags;type:text[]"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null;default:0"`
	ImageURL    *string         `gorm:"column:image_url"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
