package model

import "time"

type StockReason string

const (
	StockReasonCartAdd    StockReason = "CART_ADD"
	StockReasonCartUpdate StockReason = "CART_UPDATE"
	StockReasonCartRemove StockReason = "CART_REMOVE"
	// カート破棄・重複カート整理での戻し
	StockReasonCartRelease StockReason = "CART_RELEASE"
	// 農家による在庫値の直接更新
	StockReasonFarmerSet StockReason = "FARMER_SET"
)

// 在庫（QUANTITY属性値）の増減履歴
type StockMovement struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64       `gorm:"not null;index" json:"product_id"`
	ActorUserID int64       `gorm:"not null;index" json:"actor_user_id"`
	OrderID     *int64      `gorm:"index" json:"order_id"`
	Delta       int64       `gorm:"not null" json:"delta"`
	Reason      StockReason `gorm:"type:varchar(30);not null" json:"reason"`
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
}
