package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Users() UserRepository
	Categories() CategoryRepository
	CategoryAttributes() CategoryAttributeRepository
	Attributes() AttributeRepository
	AttributeValues() AttributeValueRepository
	Products() ProductRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Inventory() InventoryRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
