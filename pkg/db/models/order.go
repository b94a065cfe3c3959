package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hoangkimbao/garage-backend/pkg/enums"
)

// Order is a placed parts order. Paid flips exactly once when the payment
// gateway confirms, or immediately for cash on delivery.
type Order struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        int64               `gorm:"column:user_id;not null;index"`
	User          *User               `gorm:"foreignKey:UserID"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalPrice    decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Paid          bool                `gorm:"column:paid;not null;default:false"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a single order line with the unit price captured at checkout.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	PartID    int64           `gorm:"column:part_id;not null;index"`
	Part      *Part           `gorm:"foreignKey:PartID"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
