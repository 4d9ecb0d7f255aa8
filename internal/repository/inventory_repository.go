package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

// 在庫は商品の QUANTITY 属性値として持つ。
type InventoryRepository interface {
	// 在庫の属性値を行ロックして取得（Tx内で使う）
	FindStockForUpdate(ctx context.Context, productID int64) (model.AttributeValue, error)

	// 属性値1件を行ロックして取得
	FindValueForUpdate(ctx context.Context, attributeValueID int64) (model.AttributeValue, error)

	// 在庫の現在値を設定
	SetStock(ctx context.Context, attributeValueID int64, newStock int64) error

	// 増減履歴作成
	CreateMovement(ctx context.Context, m model.StockMovement) error

	ListMovements(ctx context.Context, productID int64, limit int) ([]model.StockMovement, error)
}
