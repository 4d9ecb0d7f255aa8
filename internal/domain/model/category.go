package model

import "time"

// モデレーション状態
type CategoryStatus string

const (
	// 承認待ち
	CategoryStatusProcess  CategoryStatus = "PROCESS"
	CategoryStatusApproved CategoryStatus = "APPROVED"
	CategoryStatusRejected CategoryStatus = "REJECTED"
)

// 商品カテゴリ。ParentIDがnilならルート。
// IsFinalのカテゴリにだけ商品を登録できる。
type Category struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	ParentID    *int64         `gorm:"index" json:"parent_id"`
	Status      CategoryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IsFinal     bool           `gorm:"not null;default:false" json:"is_final"`
	CreatedByID int64          `gorm:"not null;index" json:"created_by_id"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// カテゴリが商品に要求する属性（スキーマ）
type CategoryAttribute struct {
	CategoryID  int64     `gorm:"primaryKey" json:"category_id"`
	AttributeID int64     `gorm:"primaryKey" json:"attribute_id"`
	IsRequired  bool      `gorm:"not null;default:false" json:"is_required"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
