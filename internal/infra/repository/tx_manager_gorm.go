package repository

import (
	"context"

	repo "farmmarket/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users              repo.UserRepository
	categories         repo.CategoryRepository
	categoryAttributes repo.CategoryAttributeRepository
	attributes         repo.AttributeRepository
	attributeValues    repo.AttributeValueRepository
	products           repo.ProductRepository
	orders             repo.OrderRepository
	orderItems         repo.OrderItemRepository
	inventory          repo.InventoryRepository
	auditLogs          repo.AuditLogRepository
}

func (r *txReposGorm) Users() repo.UserRepository           { return r.users }
func (r *txReposGorm) Categories() repo.CategoryRepository { return r.categories }
func (r *txReposGorm) CategoryAttributes() repo.CategoryAttributeRepository {
	return r.categoryAttributes
}
func (r *txReposGorm) Attributes() repo.AttributeRepository           { return r.attributes }
func (r *txReposGorm) AttributeValues() repo.AttributeValueRepository { return r.attributeValues }
func (r *txReposGorm) Products() repo.ProductRepository               { return r.products }
func (r *txReposGorm) Orders() repo.OrderRepository                   { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository           { return r.orderItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository            { return r.inventory }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository             { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			users:              NewUserGormRepository(tx),
			categories:         NewCategoryGormRepository(tx),
			categoryAttributes: NewCategoryAttributeGormRepository(tx),
			attributes:         NewAttributeGormRepository(tx),
			attributeValues:    NewAttributeValueGormRepository(tx),
			products:           NewProductGormRepository(tx),
			orders:             NewOrderGormRepository(tx),
			orderItems:         NewOrderItemGormRepository(tx),
			inventory:          NewInventoryGormRepository(tx),
			auditLogs:          NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
