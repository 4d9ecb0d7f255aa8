package model

import "time"

type LineStatus string

const (
	// カート内（未注文）
	LineStatusInCart      LineStatus = "IN_CART"
	LineStatusUnconfirmed LineStatus = "UNCONFIRMED"
	LineStatusConfirmed   LineStatus = "CONFIRMED"
	LineStatusShipped     LineStatus = "SHIPPED"
)

// Next は農家が進められる次のステータス。進められなければ false。
func (s LineStatus) Next() (LineStatus, bool) {
	switch s {
	case LineStatusUnconfirmed:
		return LineStatusConfirmed, true
	case LineStatusConfirmed:
		return LineStatusShipped, true
	}
	return s, false
}

// 注文明細。Price は UnitPrice * Quantity（最小通貨単位）。
type OrderItem struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64      `gorm:"not null;index" json:"order_id"`
	ProductID    int64      `gorm:"not null;index" json:"product_id"`
	ProductName  string     `gorm:"type:varchar(32);not null" json:"product_name"`
	Quantity     int64      `gorm:"not null" json:"quantity"`
	QuantityType string     `gorm:"type:varchar(10);not null" json:"quantity_type"`
	UnitPrice    int64      `gorm:"not null" json:"unit_price"`
	Price        int64      `gorm:"not null" json:"price"`
	Status       LineStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
