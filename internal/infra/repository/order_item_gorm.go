package repository

import (
	"context"

	"farmmarket/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) Create(ctx context.Context, item *model.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *OrderItemGormRepository) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	var it model.OrderItem
	if err := r.db.WithContext(ctx).First(&it, itemID).Error; err != nil {
		return model.OrderItem{}, notFound(err)
	}
	return it, nil
}

func (r *OrderItemGormRepository) FindByOrderAndProduct(ctx context.Context, orderID int64, productID int64) (model.OrderItem, error) {
	var it model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		First(&it).Error
	if err != nil {
		return model.OrderItem{}, notFound(err)
	}
	return it, nil
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&items).Error
	if err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

func (r *OrderItemGormRepository) UpdateQuantity(ctx context.Context, itemID int64, qty int64, unitPrice int64, price int64) error {
	res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": qty, "unit_price": unitPrice, "price": price})
	return affected(res)
}

func (r *OrderItemGormRepository) UpdateStatus(ctx context.Context, itemID int64, status model.LineStatus) error {
	res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Update("status", status)
	return affected(res)
}

func (r *OrderItemGormRepository) UpdateStatusByOrderID(ctx context.Context, orderID int64, status model.LineStatus) error {
	return r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

func (r *OrderItemGormRepository) Delete(ctx context.Context, itemID int64) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&model.OrderItem{}))
}

func (r *OrderItemGormRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error
}

// 削除済み商品の明細も含める
func (r *OrderItemGormRepository) ListForFarmer(ctx context.Context, farmerID int64, status *model.LineStatus) ([]model.OrderItem, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("products.farmer_id = ?", farmerID)
	if status != nil {
		q = q.Where("order_items.status = ?", *status)
	} else {
		q = q.Where("order_items.status <> ?", model.LineStatusInCart)
	}

	var items []model.OrderItem
	if err := q.Order("order_items.id desc").Find(&items).Error; err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}
