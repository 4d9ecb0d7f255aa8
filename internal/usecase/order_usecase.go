package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

type OrderItemDTO struct {
	ID           int64            `json:"id"`
	OrderID      int64            `json:"order_id"`
	ProductID    int64            `json:"product_id"`
	ProductName  string           `json:"product_name"`
	Quantity     int64            `json:"quantity"`
	QuantityType string           `json:"quantity_type"`
	UnitPrice    string           `json:"unit_price"`
	Price        string           `json:"price"`
	Status       model.LineStatus `json:"status"`
}

type OrderDTO struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	Status      model.OrderStatus `json:"status"`
	TotalPrice  string            `json:"total_price"`
	Description string            `json:"description"`
	Address     string            `json:"address"`
	OrderedAt   *time.Time        `json:"ordered_at"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderItemDTO    `json:"items"`
}

type OrderListOutput struct {
	Items []OrderDTO `json:"items"`
	PageOutput
}

// OrderUsecase は購入者の注文履歴。
type OrderUsecase struct {
	orders repo.OrderRepository
	items  repo.OrderItemRepository
}

func NewOrderUsecase(orders repo.OrderRepository, items repo.OrderItemRepository) *OrderUsecase {
	return &OrderUsecase{orders: orders, items: items}
}

// 確定済み注文（新しい順）
func (u *OrderUsecase) ListMine(ctx context.Context, actor Actor, page, limit int) (OrderListOutput, error) {
	if err := requireActor(actor); err != nil {
		return OrderListOutput{}, err
	}
	if err := checkPaging(page, limit); err != nil {
		return OrderListOutput{}, err
	}
	orders, total, err := u.orders.ListByUserID(ctx, actor.ID, model.OrderStatusOrdered, page, limit)
	if err != nil {
		return OrderListOutput{}, dbError(err)
	}
	out := OrderListOutput{
		Items:      make([]OrderDTO, 0, len(orders)),
		PageOutput: PageOutput{Page: page, Limit: limit, Total: total},
	}
	for _, o := range orders {
		dto, err := buildOrderDTO(ctx, u.items, o)
		if err != nil {
			return OrderListOutput{}, dbError(err)
		}
		out.Items = append(out.Items, dto)
	}
	return out, nil
}

// 本人か管理者のみ。他人の注文は存在を隠して404。
func (u *OrderUsecase) Get(ctx context.Context, actor Actor, orderID int64) (OrderDTO, error) {
	if err := requireActor(actor); err != nil {
		return OrderDTO{}, err
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderDTO{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderDTO{}, dbError(err)
	}
	if o.UserID != actor.ID && !actor.IsAdmin() {
		return OrderDTO{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	out, err := buildOrderDTO(ctx, u.items, o)
	if err != nil {
		return OrderDTO{}, dbError(err)
	}
	return out, nil
}

// FulfilmentUsecase は農家側の明細処理。
type FulfilmentUsecase struct {
	items repo.OrderItemRepository
	tx    repo.TransactionManager
}

func NewFulfilmentUsecase(items repo.OrderItemRepository, tx repo.TransactionManager) *FulfilmentUsecase {
	return &FulfilmentUsecase{items: items, tx: tx}
}

// 自分の商品を含む確定済み明細
func (u *FulfilmentUsecase) ListItems(ctx context.Context, actor Actor, status string) ([]OrderItemDTO, error) {
	if err := requireRole(actor, model.RoleFarmer); err != nil {
		return nil, err
	}
	var st *model.LineStatus
	if status != "" {
		s := model.LineStatus(status)
		switch s {
		case model.LineStatusUnconfirmed, model.LineStatusConfirmed, model.LineStatusShipped:
		default:
			return nil, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		st = &s
	}
	items, err := u.items.ListForFarmer(ctx, actor.ID, st)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]OrderItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toOrderItemDTO(it))
	}
	return out, nil
}

// UNCONFIRMED -> CONFIRMED -> SHIPPED を1段ずつ
func (u *FulfilmentUsecase) Advance(ctx context.Context, actor Actor, itemID int64) (OrderItemDTO, error) {
	if err := requireRole(actor, model.RoleFarmer); err != nil {
		return OrderItemDTO{}, err
	}

	var out OrderItemDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := r.OrderItems().FindByID(ctx, itemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}

		//削除済みの商品でも履歴の明細は進められる
		p, err := r.Products().FindByIDUnscoped(ctx, item.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}
		if p.FarmerID != actor.ID {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}

		next, ok := item.Status.Next()
		if !ok {
			return NewHTTPError(http.StatusBadRequest, "cannot advance status")
		}
		if err := r.OrderItems().UpdateStatus(ctx, item.ID, next); err != nil {
			return err
		}

		before := item
		item.Status = next
		if err := writeAudit(ctx, r, actor.ID, model.AuditActionAdvanceLineStatus, model.AuditResourceOrderItem, item.ID,
			map[string]any{"status": before.Status}, map[string]any{"status": item.Status}); err != nil {
			return err
		}
		out = toOrderItemDTO(item)
		return nil
	})
	if err != nil {
		return OrderItemDTO{}, txError(err)
	}
	return out, nil
}

type orderItemLister interface {
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}

func buildOrderDTO(ctx context.Context, items orderItemLister, o model.Order) (OrderDTO, error) {
	lines, err := items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDTO{}, err
	}
	return toOrderDTO(o, lines), nil
}

func toOrderDTO(o model.Order, lines []model.OrderItem) OrderDTO {
	out := OrderDTO{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalPrice:  model.FormatAmount(o.TotalPrice),
		Description: o.Description,
		Address:     o.Address,
		OrderedAt:   o.OrderedAt,
		CreatedAt:   o.CreatedAt,
		Items:       make([]OrderItemDTO, 0, len(lines)),
	}
	for _, it := range lines {
		out.Items = append(out.Items, toOrderItemDTO(it))
	}
	return out
}

func toOrderItemDTO(it model.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:           it.ID,
		OrderID:      it.OrderID,
		ProductID:    it.ProductID,
		ProductName:  it.ProductName,
		Quantity:     it.Quantity,
		QuantityType: it.QuantityType,
		UnitPrice:    model.FormatAmount(it.UnitPrice),
		Price:        model.FormatAmount(it.Price),
		Status:       it.Status,
	}
}
