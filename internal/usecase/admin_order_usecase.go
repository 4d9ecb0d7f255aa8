package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

// 管理者用の注文一覧
type AdminOrderUsecase struct {
	orders repo.OrderRepository
	items  repo.OrderItemRepository
}

func NewAdminOrderUsecase(orders repo.OrderRepository, items repo.OrderItemRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{orders: orders, items: items}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	// RFC3339
	From string
	To   string
}

func (u *AdminOrderUsecase) List(ctx context.Context, actor Actor, in AdminOrderListInput) (OrderListOutput, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return OrderListOutput{}, err
	}
	if err := checkPaging(in.Page, in.Limit); err != nil {
		return OrderListOutput{}, err
	}

	f := repo.AdminOrderListFilter{Page: in.Page, Limit: in.Limit, UserID: in.UserID}
	if s := strings.TrimSpace(in.Status); s != "" {
		switch model.OrderStatus(s) {
		case model.OrderStatusUnordered, model.OrderStatusOrdered:
		default:
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = s
	}

	var ok bool
	if f.From, ok = parseDateTimeRFC3339(in.From); !ok {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid from")
	}
	if f.To, ok = parseDateTimeRFC3339(in.To); !ok {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, dbError(err)
	}

	out := OrderListOutput{
		Items:      make([]OrderDTO, 0, len(orders)),
		PageOutput: PageOutput{Page: in.Page, Limit: in.Limit, Total: total},
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

// 空ならnil。形式が不正ならfalse。
func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
