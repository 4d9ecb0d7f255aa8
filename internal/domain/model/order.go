package model

import "time"

type OrderStatus string

const (
	// カートとして使われている注文
	OrderStatusUnordered OrderStatus = "UNORDERED"
	// 購入者が確定した注文（以後は変更不可）
	OrderStatusOrdered OrderStatus = "ORDERED"
)

// UNORDERED の行は1ユーザーにつき1つ
type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice  int64       `gorm:"not null;default:0" json:"total_price"`
	Description string      `gorm:"type:varchar(100)" json:"description"`
	Address     string      `gorm:"type:varchar(100)" json:"address"`
	OrderedAt   *time.Time  `gorm:"index" json:"ordered_at"`
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
