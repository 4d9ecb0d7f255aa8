package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(32);not null" json:"name"`
	Description string         `gorm:"type:varchar(255);not null" json:"description"`
	FarmerID    int64          `gorm:"not null;index" json:"farmer_id"`
	CategoryID  int64          `gorm:"not null;index" json:"category_id"`
	ImageRoot   string         `gorm:"type:varchar(255)" json:"image_root"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
