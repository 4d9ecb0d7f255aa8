package model

import "time"

type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_review_product_user" json:"product_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_review_product_user" json:"user_id"`
	Username  string    `gorm:"type:varchar(20);not null" json:"username"`
	Rating    int       `gorm:"not null" json:"rating"`
	Content   string    `gorm:"type:varchar(255);not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
