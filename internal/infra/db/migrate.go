package db

import (
	"farmmarket/internal/domain/model"

	"gorm.io/gorm"
)

// Migrate は全テーブルを作成・更新する。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(model.All()...)
}
