package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// カートは status=UNORDERED の注文で、明細の追加・変更・削除で在庫（QUANTITY属性値）を増減する。
type CartUsecase struct {
	tx  repo.TransactionManager
	now func() time.Time
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx, now: time.Now}
}

type AddCartInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type UpdateCartItemInput struct {
	Quantity int64 `json:"quantity"`
}

// nilは変更しない。statusはここでは変えられない。
type UpdateCartInput struct {
	Description *string `json:"description"`
	Address     *string `json:"address"`
}

type CheckoutInput struct {
	Address     string `json:"address"`
	Description string `json:"description"`
}

// カート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, actor Actor) (OrderDTO, error) {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return OrderDTO{}, err
	}
	var out OrderDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := currentCart(ctx, r, actor.ID)
		if err != nil {
			return err
		}
		out, err = buildOrderDTO(ctx, r.OrderItems(), cart)
		return err
	})
	if err != nil {
		return OrderDTO{}, txError(err)
	}
	return out, nil
}

// カートに追加（同一商品は数量加算）。在庫はロックして減らす。
func (u *CartUsecase) AddItem(ctx context.Context, actor Actor, in AddCartInput) (OrderDTO, error) {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return OrderDTO{}, err
	}
	if in.ProductID <= 0 {
		return OrderDTO{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return OrderDTO{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out OrderDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := currentCart(ctx, r, actor.ID)
		if err != nil {
			return err
		}

		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return err
		}

		priceAttr, unit, err := unitPrice(ctx, r, p.ID)
		if err != nil {
			return err
		}

		if err := adjustStock(ctx, r, actor.ID, p.ID, &cart.ID, -in.Quantity, model.StockReasonCartAdd); err != nil {
			return err
		}

		existing, err := r.OrderItems().FindByOrderAndProduct(ctx, cart.ID, p.ID)
		switch {
		case err == nil:
			qty, err := model.AddAmount(existing.Quantity, in.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusBadRequest, "quantity too large")
			}
			price, err := linePrice(unit, qty)
			if err != nil {
				return err
			}
			if err := r.OrderItems().UpdateQuantity(ctx, existing.ID, qty, unit, price); err != nil {
				return err
			}
		case errors.Is(err, repo.ErrNotFound):
			price, err := linePrice(unit, in.Quantity)
			if err != nil {
				return err
			}
			item := &model.OrderItem{
				OrderID:      cart.ID,
				ProductID:    p.ID,
				ProductName:  p.Name,
				Quantity:     in.Quantity,
				QuantityType: priceAttr.Attribute.ValueType.QuantityType(),
				UnitPrice:    unit,
				Price:        price,
				Status:       model.LineStatusInCart,
			}
			if err := r.OrderItems().Create(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}

		if cart, err = recomputeTotal(ctx, r, cart); err != nil {
			return err
		}
		out, err = buildOrderDTO(ctx, r.OrderItems(), cart)
		return err
	})
	if err != nil {
		return OrderDTO{}, txError(err)
	}
	return out, nil
}

// 数量変更（自分のカートの明細のみ）。差分だけ在庫を動かす。
func (u *CartUsecase) UpdateItem(ctx context.Context, actor Actor, itemID int64, in UpdateCartItemInput) (OrderDTO, error) {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return OrderDTO{}, err
	}
	if in.Quantity < 1 {
		return OrderDTO{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out OrderDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, item, err := cartItem(ctx, r, actor.ID, itemID)
		if err != nil {
			return err
		}

		delta := in.Quantity - item.Quantity
		if err := adjustStock(ctx, r, actor.ID, item.ProductID, &cart.ID, -delta, model.StockReasonCartUpdate); err != nil {
			return err
		}

		//単価は今の価格で付け直す（価格属性が消えていれば元の単価）
		unit := item.UnitPrice
		if _, p, err := unitPrice(ctx, r, item.ProductID); err == nil {
			unit = p
		}
		price, err := linePrice(unit, in.Quantity)
		if err != nil {
			return err
		}
		if err := r.OrderItems().UpdateQuantity(ctx, item.ID, in.Quantity, unit, price); err != nil {
			return err
		}

		if cart, err = recomputeTotal(ctx, r, cart); err != nil {
			return err
		}
		out, err = buildOrderDTO(ctx, r.OrderItems(), cart)
		return err
	})
	if err != nil {
		return OrderDTO{}, txError(err)
	}
	return out, nil
}

// 明細削除。数量分の在庫を戻す。
func (u *CartUsecase) RemoveItem(ctx context.Context, actor Actor, itemID int64) (OrderDTO, error) {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return OrderDTO{}, err
	}

	var out OrderDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, item, err := cartItem(ctx, r, actor.ID, itemID)
		if err != nil {
			return err
		}
		if err := adjustStock(ctx, r, actor.ID, item.ProductID, &cart.ID, item.Quantity, model.StockReasonCartRemove); err != nil {
			return err
		}
		if err := r.OrderItems().Delete(ctx, item.ID); err != nil {
			return err
		}

		if cart, err = recomputeTotal(ctx, r, cart); err != nil {
			return err
		}
		out, err = buildOrderDTO(ctx, r.OrderItems(), cart)
		return err
	})
	if err != nil {
		return OrderDTO{}, txError(err)
	}
	return out, nil
}

// 説明と住所だけ変更できる
func (u *CartUsecase) UpdateCart(ctx context.Context, actor Actor, in UpdateCartInput) (OrderDTO, error) {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return OrderDTO{}, err
	}
	if err := checkOrderText(in.Description, in.Address); err != nil {
		return OrderDTO{}, err
	}

	var out OrderDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := currentCart(ctx, r, actor.ID)
		if err != nil {
			return err
		}
		if in.Description != nil {
			cart.Description = strings.TrimSpace(*in.Description)
		}
		if in.Address != nil {
			cart.Address = strings.TrimSpace(*in.Address)
		}
		if err := r.Orders().Update(ctx, cart); err != nil {
			return err
		}
		out, err = buildOrderDTO(ctx, r.OrderItems(), cart)
		return err
	})
	if err != nil {
		return OrderDTO{}, txError(err)
	}
	return out, nil
}

// 注文確定。明細はUNCONFIRMEDになり、以後カートからは変更できない。
func (u *CartUsecase) Checkout(ctx context.Context, actor Actor, in CheckoutInput) (OrderDTO, error) {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return OrderDTO{}, err
	}
	if err := checkOrderText(&in.Description, &in.Address); err != nil {
		return OrderDTO{}, err
	}

	var out OrderDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := currentCart(ctx, r, actor.ID)
		if err != nil {
			return err
		}
		items, err := r.OrderItems().ListByOrderID(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		if a := strings.TrimSpace(in.Address); a != "" {
			cart.Address = a
		}
		if cart.Address == "" {
			return NewHTTPError(http.StatusBadRequest, "address is required")
		}
		if d := strings.TrimSpace(in.Description); d != "" {
			cart.Description = d
		}

		total, err := sumPrices(items)
		if err != nil {
			return err
		}
		now := u.now()
		cart.Status = model.OrderStatusOrdered
		cart.TotalPrice = total
		cart.OrderedAt = &now
		if err := r.Orders().Update(ctx, cart); err != nil {
			return err
		}
		if err := r.OrderItems().UpdateStatusByOrderID(ctx, cart.ID, model.LineStatusUnconfirmed); err != nil {
			return err
		}

		out, err = buildOrderDTO(ctx, r.OrderItems(), cart)
		return err
	})
	if err != nil {
		return OrderDTO{}, txError(err)
	}
	return out, nil
}

// カート破棄。在庫を戻してカートを削除する（無ければ何もしない）。
func (u *CartUsecase) Abandon(ctx context.Context, actor Actor) error {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return err
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		carts, err := r.Orders().ListUnorderedByUserForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		for _, c := range carts {
			if err := releaseCart(ctx, r, actor.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
	return txError(err)
}

// 1ユーザー1カート。無ければ作る。複数あれば最新を残し、古い方は在庫を戻して消す。
func currentCart(ctx context.Context, r repo.TxRepos, userID int64) (model.Order, error) {
	carts, err := r.Orders().ListUnorderedByUserForUpdate(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}
	if len(carts) == 0 {
		cart := model.Order{UserID: userID, Status: model.OrderStatusUnordered}
		if err := r.Orders().Create(ctx, &cart); err != nil {
			return model.Order{}, err
		}
		return cart, nil
	}
	for _, old := range carts[1:] {
		if err := releaseCart(ctx, r, userID, old); err != nil {
			return model.Order{}, err
		}
	}
	return carts[0], nil
}

func releaseCart(ctx context.Context, r repo.TxRepos, actorID int64, cart model.Order) error {
	items, err := r.OrderItems().ListByOrderID(ctx, cart.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		err := adjustStock(ctx, r, actorID, it.ProductID, &cart.ID, it.Quantity, model.StockReasonCartRelease)
		//在庫属性が無くなった商品は戻せないので飛ばす
		if he, ok := AsHTTPError(err); ok && he.Status == http.StatusBadRequest {
			continue
		}
		if err != nil {
			return err
		}
	}
	if err := r.OrderItems().DeleteByOrderID(ctx, cart.ID); err != nil {
		return err
	}
	return r.Orders().Delete(ctx, cart.ID)
}

// 自分のカートの明細か（他人のものは404）
func cartItem(ctx context.Context, r repo.TxRepos, userID, itemID int64) (model.Order, model.OrderItem, error) {
	cart, err := currentCart(ctx, r, userID)
	if err != nil {
		return model.Order{}, model.OrderItem{}, err
	}
	item, err := r.OrderItems().FindByID(ctx, itemID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && item.OrderID != cart.ID) {
		return model.Order{}, model.OrderItem{}, NewHTTPError(http.StatusNotFound, "cart item not found")
	}
	if err != nil {
		return model.Order{}, model.OrderItem{}, err
	}
	return cart, item, nil
}

// 単価属性と最小単位の単価
func unitPrice(ctx context.Context, r repo.TxRepos, productID int64) (model.AttributeValue, int64, error) {
	v, err := r.AttributeValues().FindPrice(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.AttributeValue{}, 0, NewHTTPError(http.StatusBadRequest, "product has no price attribute")
	}
	if err != nil {
		return model.AttributeValue{}, 0, err
	}
	unit, err := model.ParseAmount(v.Value)
	if err != nil {
		return model.AttributeValue{}, 0, NewHTTPError(http.StatusBadRequest, "invalid price value")
	}
	return v, unit, nil
}

// 明細価格 = 単価 × 数量
func linePrice(unit, qty int64) (int64, error) {
	price, err := model.MulAmount(unit, qty)
	if err != nil {
		return 0, NewHTTPError(http.StatusBadRequest, "amount too large")
	}
	return price, nil
}

func sumPrices(items []model.OrderItem) (int64, error) {
	var total int64
	for _, it := range items {
		var err error
		if total, err = model.AddAmount(total, it.Price); err != nil {
			return 0, NewHTTPError(http.StatusBadRequest, "amount too large")
		}
	}
	return total, nil
}

func recomputeTotal(ctx context.Context, r repo.TxRepos, cart model.Order) (model.Order, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, cart.ID)
	if err != nil {
		return model.Order{}, err
	}
	total, err := sumPrices(items)
	if err != nil {
		return model.Order{}, err
	}
	if err := r.Orders().UpdateTotal(ctx, cart.ID, total); err != nil {
		return model.Order{}, err
	}
	cart.TotalPrice = total
	return cart, nil
}

func checkOrderText(description, address *string) error {
	if description != nil && utf8.RuneCountInString(strings.TrimSpace(*description)) > 100 {
		return NewHTTPError(http.StatusBadRequest, "description too long")
	}
	if address != nil && utf8.RuneCountInString(strings.TrimSpace(*address)) > 100 {
		return NewHTTPError(http.StatusBadRequest, "address too long")
	}
	return nil
}
