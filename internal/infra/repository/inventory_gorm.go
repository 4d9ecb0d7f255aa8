package repository

import (
	"context"

	"farmmarket/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// QUANTITY属性の値をFOR UPDATEで取る
func (r *InventoryGormRepository) FindStockForUpdate(ctx context.Context, productID int64) (model.AttributeValue, error) {
	var v model.AttributeValue
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		Where("attribute_id IN (SELECT id FROM attributes WHERE value_type = ?)", model.ValueTypeQuantity).
		Order("id asc").
		First(&v).Error
	if err != nil {
		return model.AttributeValue{}, notFound(err)
	}
	return v, nil
}

func (r *InventoryGormRepository) FindValueForUpdate(ctx context.Context, attributeValueID int64) (model.AttributeValue, error) {
	var v model.AttributeValue
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", attributeValueID).
		First(&v).Error
	if err != nil {
		return model.AttributeValue{}, notFound(err)
	}
	return v, nil
}

func (r *InventoryGormRepository) SetStock(ctx context.Context, attributeValueID int64, newStock int64) error {
	res := r.db.WithContext(ctx).Model(&model.AttributeValue{}).
		Where("id = ?", attributeValueID).
		Update("value", model.FormatStock(newStock))
	return affected(res)
}

func (r *InventoryGormRepository) CreateMovement(ctx context.Context, m model.StockMovement) error {
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *InventoryGormRepository) ListMovements(ctx context.Context, productID int64, limit int) ([]model.StockMovement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var items []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.StockMovement{}, err
	}
	return items, nil
}
