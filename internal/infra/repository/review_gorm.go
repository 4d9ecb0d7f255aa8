package repository

import (
	"context"

	"farmmarket/internal/domain/model"

	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

// 同じ商品への2件目はErrConflict
func (r *ReviewGormRepository) Create(ctx context.Context, rv *model.Review) error {
	return mapWriteErr(r.db.WithContext(ctx).Create(rv).Error)
}

func (r *ReviewGormRepository) FindByID(ctx context.Context, id int64) (model.Review, error) {
	var rv model.Review
	if err := r.db.WithContext(ctx).First(&rv, id).Error; err != nil {
		return model.Review{}, notFound(err)
	}
	return rv, nil
}

func (r *ReviewGormRepository) ListByProductID(ctx context.Context, productID int64) ([]model.Review, error) {
	var items []model.Review
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id desc").Find(&items).Error
	if err != nil {
		return []model.Review{}, err
	}
	return items, nil
}

func (r *ReviewGormRepository) Update(ctx context.Context, rv model.Review) error {
	res := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("id = ?", rv.ID).
		Updates(map[string]any{"rating": rv.Rating, "content": rv.Content})
	return affected(res)
}

func (r *ReviewGormRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Review{}))
}

func (r *ReviewGormRepository) AverageRating(ctx context.Context, productID int64) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("product_id = ?", productID).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}
