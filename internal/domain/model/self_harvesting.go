package model

import "time"

// 収穫体験イベント
type SelfHarvesting struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(50);not null" json:"name"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	DateTime    time.Time `gorm:"not null;index" json:"date_time"`
	Location    string    `gorm:"type:varchar(100);not null" json:"location"`
	FarmerID    int64     `gorm:"not null;index" json:"farmer_id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 参加予約（ユーザー × イベント）
type SelfHarvestingVisit struct {
	UserID           int64     `gorm:"primaryKey" json:"user_id"`
	SelfHarvestingID int64     `gorm:"primaryKey" json:"self_harvesting_id"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
