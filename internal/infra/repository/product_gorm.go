package repository

import (
	"context"
	"strconv"
	"strings"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 削除されていない商品を、カテゴリ/名前/農家/属性値で絞ってページングして返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	if len(q.CategoryIDs) > 0 {
		tx = tx.Where("category_id IN ?", q.CategoryIDs)
	}
	if s := strings.TrimSpace(q.NameLike); s != "" {
		tx = tx.Where("LOWER(name) LIKE LOWER(?)", "%"+s+"%")
	}
	if q.FarmerID != nil {
		tx = tx.Where("farmer_id = ?", *q.FarmerID)
	}

	//属性値の条件（min/maxは数値として比較。空の値は比較しない）
	for _, f := range q.Filters {
		switch f.Op {
		case repo.FilterMin, repo.FilterMax:
			n, err := strconv.ParseFloat(f.Value, 64)
			if err != nil {
				return []model.Product{}, 0, err
			}
			cmp := ">="
			if f.Op == repo.FilterMax {
				cmp = "<="
			}
			tx = tx.Where(
				"EXISTS (SELECT 1 FROM attribute_values av WHERE av.product_id = products.id AND av.attribute_id = ? AND CAST(NULLIF(av.value, '') AS DECIMAL) "+cmp+" ?)",
				f.AttributeID, n,
			)
		default:
			tx = tx.Where(
				"EXISTS (SELECT 1 FROM attribute_values av WHERE av.product_id = products.id AND av.attribute_id = ? AND av.value = ?)",
				f.AttributeID, f.Value,
			)
		}
	}

	//total（件数）
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	var products []model.Product
	offset := (q.Page - 1) * q.Limit
	if err := tx.Order("created_at desc").Order("id desc").Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}
	return products, total, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, notFound(err)
	}
	return p, nil
}

func (r *ProductGormRepository) FindByIDUnscoped(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Unscoped().First(&p, id).Error; err != nil {
		return model.Product{}, notFound(err)
	}
	return p, nil
}

func (r *ProductGormRepository) Create(ctx context.Context, p *model.Product) error {
	return mapWriteErr(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"image_root":  p.ImageRoot,
		})
	return affected(res)
}

// deleted_at を入れる（注文明細からは引き続き参照できる）
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	return affected(r.db.WithContext(ctx).Delete(&model.Product{}, id))
}

func (r *ProductGormRepository) CountByCategoryID(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}
