package repository

import (
	"context"
	"strings"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

func (r *CategoryGormRepository) Create(ctx context.Context, c *model.Category) error {
	return mapWriteErr(r.db.WithContext(ctx).Create(c).Error)
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Category{}, notFound(err)
	}
	return c, nil
}

func (r *CategoryGormRepository) List(ctx context.Context, q repo.CategoryListQuery) ([]model.Category, error) {
	tx := r.db.WithContext(ctx).Model(&model.Category{})

	if q.ParentID != nil {
		tx = tx.Where("parent_id = ?", *q.ParentID)
	} else if q.RootOnly {
		tx = tx.Where("parent_id IS NULL")
	}
	if s := strings.TrimSpace(q.NameLike); s != "" {
		tx = tx.Where("LOWER(name) LIKE LOWER(?)", "%"+s+"%")
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	//指定した属性をすべてスキーマに持つ
	if len(q.AttributeIDs) > 0 {
		tx = tx.Where(
			"id IN (SELECT category_id FROM category_attributes WHERE attribute_id IN ? GROUP BY category_id HAVING COUNT(DISTINCT attribute_id) = ?)",
			q.AttributeIDs, len(q.AttributeIDs),
		)
	}

	var items []model.Category
	if err := tx.Order("id asc").Find(&items).Error; err != nil {
		return []model.Category{}, err
	}
	return items, nil
}

func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":      c.Name,
			"parent_id": c.ParentID,
			"is_final":  c.IsFinal,
		})
	return affected(res)
}

func (r *CategoryGormRepository) UpdateStatus(ctx context.Context, id int64, status model.CategoryStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ?", id).
		Update("status", status)
	return affected(res)
}

// スキーマのリンクも一緒に消す
func (r *CategoryGormRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("category_id = ?", id).Delete(&model.CategoryAttribute{}).Error; err != nil {
		return err
	}
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Category{}))
}

func (r *CategoryGormRepository) CountChildren(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

// 幅優先で子孫をたどる
func (r *CategoryGormRepository) DescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	seen := map[int64]bool{id: true}
	out := []int64{id}
	frontier := []int64{id}
	for len(frontier) > 0 {
		var children []int64
		err := r.db.WithContext(ctx).Model(&model.Category{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, c := range children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			frontier = append(frontier, c)
		}
	}
	return out, nil
}

func (r *CategoryGormRepository) AncestorIDs(ctx context.Context, id int64) ([]int64, error) {
	var out []int64
	seen := map[int64]bool{}
	cur := &id
	for cur != nil && !seen[*cur] {
		c, err := r.FindByID(ctx, *cur)
		if err != nil {
			return nil, err
		}
		seen[c.ID] = true
		out = append(out, c.ID)
		cur = c.ParentID
	}
	return out, nil
}

type CategoryAttributeGormRepository struct {
	db *gorm.DB
}

func NewCategoryAttributeGormRepository(db *gorm.DB) *CategoryAttributeGormRepository {
	return &CategoryAttributeGormRepository{db: db}
}

func (r *CategoryAttributeGormRepository) ListByCategoryIDs(ctx context.Context, categoryIDs []int64) ([]model.CategoryAttribute, error) {
	if len(categoryIDs) == 0 {
		return []model.CategoryAttribute{}, nil
	}
	var links []model.CategoryAttribute
	err := r.db.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Order("attribute_id asc").
		Find(&links).Error
	if err != nil {
		return []model.CategoryAttribute{}, err
	}
	return links, nil
}

func (r *CategoryAttributeGormRepository) ReplaceForCategory(ctx context.Context, categoryID int64, links []model.CategoryAttribute) error {
	if err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&model.CategoryAttribute{}).Error; err != nil {
		return err
	}
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].CategoryID = categoryID
	}
	return mapWriteErr(r.db.WithContext(ctx).Create(&links).Error)
}
