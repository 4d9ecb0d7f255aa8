package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

type AttributeFilterOp string

const (
	FilterMin AttributeFilterOp = "min"
	FilterMax AttributeFilterOp = "max"
	FilterEq  AttributeFilterOp = "eq"
)

// 属性値での絞り込み（例: 12:max:3.50）
type AttributeFilter struct {
	AttributeID int64
	Op          AttributeFilterOp
	Value       string
}

// 一覧検索
type ProductListQuery struct {
	Page        int
	Limit       int
	CategoryIDs []int64
	NameLike    string
	FarmerID    *int64
	Filters     []AttributeFilter
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	//削除済みも含めて取得（注文履歴用）
	FindByIDUnscoped(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
	CountByCategoryID(ctx context.Context, categoryID int64) (int64, error)
}
