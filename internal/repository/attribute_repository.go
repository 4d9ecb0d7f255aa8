package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

type AttributeListQuery struct {
	//スキーマに含まれるカテゴリ（祖先を含めて渡す）
	CategoryIDs []int64
	//値を持っている商品
	ProductID *int64
}

type AttributeRepository interface {
	Create(ctx context.Context, a *model.Attribute) error
	FindByID(ctx context.Context, id int64) (model.Attribute, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Attribute, error)
	List(ctx context.Context, q AttributeListQuery) ([]model.Attribute, error)
	Update(ctx context.Context, a model.Attribute) error
	Delete(ctx context.Context, id int64) error
	//値またはスキーマで使われているか
	InUse(ctx context.Context, id int64) (bool, error)
}

// 商品の属性値（EAV）
type AttributeValueRepository interface {
	CreateBulk(ctx context.Context, values []model.AttributeValue) error
	//Attribute をpreloadして返す
	ListByProductID(ctx context.Context, productID int64) ([]model.AttributeValue, error)
	FindByID(ctx context.Context, id int64) (model.AttributeValue, error)
	//(product, attribute) があれば更新、無ければ作成
	Upsert(ctx context.Context, productID int64, attributeID int64, value string) error
	UpdateValue(ctx context.Context, id int64, value string) error
	//単価属性（PRICE/KG, PRICE/PIECE）の値
	FindPrice(ctx context.Context, productID int64) (model.AttributeValue, error)
}
