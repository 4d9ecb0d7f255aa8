package model

import "time"

type Role string

const (
	// 購入者
	RoleUser Role = "USER"
	// 出品者（農家）
	RoleFarmer    Role = "FARMER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// IsValid は定義済みのロールかを返す。
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleFarmer, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Username     string  `gorm:"type:varchar(20);uniqueIndex;not null"`
	FirstName    string  `gorm:"type:varchar(50);not null"`
	LastName     string  `gorm:"type:varchar(50);not null"`
	Email        *string `gorm:"type:varchar(50);uniqueIndex"`
	Phone        string  `gorm:"type:varchar(50)"`
	Address      string  `gorm:"type:varchar(100)"`
	PasswordHash string  `gorm:"column:password_hash;not null"`
	Role         Role    `gorm:"type:varchar(20);not null;default:'USER'"`
	TokenVersion int     `gorm:"not null;default:0"`
	IsActive     bool    `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
