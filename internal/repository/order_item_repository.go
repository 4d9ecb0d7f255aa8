package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

type OrderItemRepository interface {
	Create(ctx context.Context, item *model.OrderItem) error
	FindByID(ctx context.Context, itemID int64) (model.OrderItem, error)
	FindByOrderAndProduct(ctx context.Context, orderID int64, productID int64) (model.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	UpdateQuantity(ctx context.Context, itemID int64, qty int64, unitPrice int64, price int64) error
	UpdateStatus(ctx context.Context, itemID int64, status model.LineStatus) error
	// 注文の明細をまとめて更新
	UpdateStatusByOrderID(ctx context.Context, orderID int64, status model.LineStatus) error
	Delete(ctx context.Context, itemID int64) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
	//農家の商品を含む確定済み明細（status未指定ならIN_CART以外すべて）
	ListForFarmer(ctx context.Context, farmerID int64, status *model.LineStatus) ([]model.OrderItem, error)
}
