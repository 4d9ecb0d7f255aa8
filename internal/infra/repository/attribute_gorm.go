package repository

import (
	"context"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttributeGormRepository struct {
	db *gorm.DB
}

func NewAttributeGormRepository(db *gorm.DB) *AttributeGormRepository {
	return &AttributeGormRepository{db: db}
}

func (r *AttributeGormRepository) Create(ctx context.Context, a *model.Attribute) error {
	return mapWriteErr(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AttributeGormRepository) FindByID(ctx context.Context, id int64) (model.Attribute, error) {
	var a model.Attribute
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return model.Attribute{}, notFound(err)
	}
	return a, nil
}

func (r *AttributeGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Attribute, error) {
	if len(ids) == 0 {
		return []model.Attribute{}, nil
	}
	var items []model.Attribute
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&items).Error; err != nil {
		return []model.Attribute{}, err
	}
	return items, nil
}

func (r *AttributeGormRepository) List(ctx context.Context, q repo.AttributeListQuery) ([]model.Attribute, error) {
	tx := r.db.WithContext(ctx).Model(&model.Attribute{})
	if len(q.CategoryIDs) > 0 {
		tx = tx.Where("id IN (SELECT attribute_id FROM category_attributes WHERE category_id IN ?)", q.CategoryIDs)
	}
	if q.ProductID != nil {
		tx = tx.Where("id IN (SELECT attribute_id FROM attribute_values WHERE product_id = ?)", *q.ProductID)
	}
	var items []model.Attribute
	if err := tx.Order("id asc").Find(&items).Error; err != nil {
		return []model.Attribute{}, err
	}
	return items, nil
}

func (r *AttributeGormRepository) Update(ctx context.Context, a model.Attribute) error {
	res := r.db.WithContext(ctx).Model(&model.Attribute{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{"name": a.Name, "value_type": a.ValueType})
	return affected(res)
}

func (r *AttributeGormRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Attribute{}))
}

func (r *AttributeGormRepository) InUse(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.AttributeValue{}).Where("attribute_id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Model(&model.CategoryAttribute{}).Where("attribute_id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

type AttributeValueGormRepository struct {
	db *gorm.DB
}

func NewAttributeValueGormRepository(db *gorm.DB) *AttributeValueGormRepository {
	return &AttributeValueGormRepository{db: db}
}

func (r *AttributeValueGormRepository) CreateBulk(ctx context.Context, values []model.AttributeValue) error {
	if len(values) == 0 {
		return nil
	}
	//Attributeは保存しない
	return mapWriteErr(r.db.WithContext(ctx).Omit(clause.Associations).Create(&values).Error)
}

func (r *AttributeValueGormRepository) ListByProductID(ctx context.Context, productID int64) ([]model.AttributeValue, error) {
	var items []model.AttributeValue
	err := r.db.WithContext(ctx).
		Preload("Attribute").
		Where("product_id = ?", productID).
		Order("attribute_id asc").
		Find(&items).Error
	if err != nil {
		return []model.AttributeValue{}, err
	}
	return items, nil
}

func (r *AttributeValueGormRepository) FindByID(ctx context.Context, id int64) (model.AttributeValue, error) {
	var v model.AttributeValue
	if err := r.db.WithContext(ctx).Preload("Attribute").First(&v, id).Error; err != nil {
		return model.AttributeValue{}, notFound(err)
	}
	return v, nil
}

func (r *AttributeValueGormRepository) Upsert(ctx context.Context, productID int64, attributeID int64, value string) error {
	v := model.AttributeValue{ProductID: productID, AttributeID: attributeID, Value: value}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "attribute_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&v).Error
}

func (r *AttributeValueGormRepository) UpdateValue(ctx context.Context, id int64, value string) error {
	res := r.db.WithContext(ctx).Model(&model.AttributeValue{}).
		Where("id = ?", id).
		Update("value", value)
	return affected(res)
}

// 単価属性は1商品に1つの前提。複数あればIDの小さい方
func (r *AttributeValueGormRepository) FindPrice(ctx context.Context, productID int64) (model.AttributeValue, error) {
	var v model.AttributeValue
	err := r.db.WithContext(ctx).
		Preload("Attribute").
		Joins("JOIN attributes ON attributes.id = attribute_values.attribute_id").
		Where("attribute_values.product_id = ?", productID).
		Where("attributes.value_type IN ?", []model.AttributeValueType{model.ValueTypePricePerKg, model.ValueTypePricePerPiece}).
		Order("attribute_values.id asc").
		First(&v).Error
	if err != nil {
		return model.AttributeValue{}, notFound(err)
	}
	return v, nil
}
