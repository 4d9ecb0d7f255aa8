package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

// カテゴリ一覧の条件
type CategoryListQuery struct {
	//nilかつRootOnlyならルートのみ
	ParentID *int64
	RootOnly bool
	NameLike string
	//すべての属性を持つカテゴリ
	AttributeIDs []int64
	Status       *model.CategoryStatus
}

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	FindByID(ctx context.Context, id int64) (model.Category, error)
	List(ctx context.Context, q CategoryListQuery) ([]model.Category, error)
	//name / parent_id / is_final を更新
	Update(ctx context.Context, c model.Category) error
	UpdateStatus(ctx context.Context, id int64, status model.CategoryStatus) error
	Delete(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int64, error)

	//自分を含む子孫のID
	DescendantIDs(ctx context.Context, id int64) ([]int64, error)
	//自分から親をたどったID（近い順）
	AncestorIDs(ctx context.Context, id int64) ([]int64, error)
}

// カテゴリの属性スキーマ
type CategoryAttributeRepository interface {
	ListByCategoryIDs(ctx context.Context, categoryIDs []int64) ([]model.CategoryAttribute, error)
	//カテゴリ自身のリンクを丸ごと置き換える
	ReplaceForCategory(ctx context.Context, categoryID int64, links []model.CategoryAttribute) error
}
