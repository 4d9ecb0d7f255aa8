package repository

import (
	"context"
	"time"

	"farmmarket/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//UNORDERED を新しい順に行ロックして取得
	ListUnorderedByUserForUpdate(ctx context.Context, userID int64) ([]model.Order, error)
	Create(ctx context.Context, order *model.Order) error
	//status / total_price / description / address / ordered_at を更新
	Update(ctx context.Context, order model.Order) error
	UpdateTotal(ctx context.Context, orderID int64, total int64) error
	Delete(ctx context.Context, orderID int64) error
	ListByUserID(ctx context.Context, userID int64, status model.OrderStatus, page int, limit int) ([]model.Order, int64, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
