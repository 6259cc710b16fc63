package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order a placed order. Orders are written by the checkout service;
// this service only reads them for analytics.
type Order struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID      int64           `gorm:"index" json:"user_id,string"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem a product line of an order
type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"index" json:"order_id,string"`
	ProductID int64           `gorm:"index" json:"product_id,string"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_item"
}
