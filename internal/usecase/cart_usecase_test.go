package usecase_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"farmmarket/internal/domain/model"
	infrarepo "farmmarket/internal/infra/repository"
	"farmmarket/internal/usecase"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCart_AddItemReservesStock(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	cart, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "7", m.stock(t, m.product))

	want := usecase.OrderDTO{
		UserID:     m.buyer.ID,
		Status:     model.OrderStatusUnordered,
		TotalPrice: "7.50",
		Items: []usecase.OrderItemDTO{{
			OrderID:      cart.ID,
			ProductID:    m.product,
			ProductName:  "Cherry tomato",
			Quantity:     3,
			QuantityType: "KG",
			UnitPrice:    "2.50",
			Price:        "7.50",
			Status:       model.LineStatusInCart,
		}},
	}
	opts := cmp.Options{
		cmpopts.IgnoreFields(usecase.OrderDTO{}, "ID", "CreatedAt"),
		cmpopts.IgnoreFields(usecase.OrderItemDTO{}, "ID"),
	}
	if diff := cmp.Diff(want, cart, opts); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}

	//同じ商品は数量を足す
	cart, err = uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(5), cart.Items[0].Quantity)
	assert.Equal(t, "12.50", cart.TotalPrice)
	assert.Equal(t, "5", m.stock(t, m.product))
}

func TestCart_AddItemStockExceeded(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	_, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 11})
	requireHTTPError(t, err, http.StatusBadRequest, "stock exceeded")
	assert.Equal(t, "10", m.stock(t, m.product))

	//ちょうど在庫分は通る
	_, err = uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, "0", m.stock(t, m.product))

	_, err = uc.AddItem(ctx, m.buyer2, usecase.AddCartInput{ProductID: m.product, Quantity: 1})
	requireHTTPError(t, err, http.StatusBadRequest, "stock exceeded")
}

func TestCart_AddItemRejects(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	tests := []struct {
		name   string
		actor  usecase.Actor
		in     usecase.AddCartInput
		status int
		msg    string
	}{
		{"anonymous", usecase.Actor{}, usecase.AddCartInput{ProductID: m.product, Quantity: 1}, http.StatusUnauthorized, "unauthorized"},
		{"farmer", m.farmer, usecase.AddCartInput{ProductID: m.product, Quantity: 1}, http.StatusForbidden, "forbidden"},
		{"zero quantity", m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 0}, http.StatusBadRequest, "invalid quantity"},
		{"bad product id", m.buyer, usecase.AddCartInput{ProductID: 0, Quantity: 1}, http.StatusBadRequest, "invalid product_id"},
		{"unknown product", m.buyer, usecase.AddCartInput{ProductID: 999, Quantity: 1}, http.StatusNotFound, "product not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.AddItem(ctx, tt.actor, tt.in)
			requireHTTPError(t, err, tt.status, tt.msg)
		})
	}
	assert.Equal(t, "10", m.stock(t, m.product))
}

func TestCart_UpdateAndRemoveItem(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	cart, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 4})
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = uc.UpdateItem(ctx, m.buyer, itemID, usecase.UpdateCartItemInput{Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "2.50", cart.TotalPrice)
	assert.Equal(t, "9", m.stock(t, m.product))

	_, err = uc.UpdateItem(ctx, m.buyer, itemID, usecase.UpdateCartItemInput{Quantity: 20})
	requireHTTPError(t, err, http.StatusBadRequest, "stock exceeded")
	assert.Equal(t, "9", m.stock(t, m.product))

	//他人の明細は見えない
	_, err = uc.UpdateItem(ctx, m.buyer2, itemID, usecase.UpdateCartItemInput{Quantity: 2})
	requireHTTPError(t, err, http.StatusNotFound, "cart item not found")
	_, err = uc.RemoveItem(ctx, m.buyer2, itemID)
	requireHTTPError(t, err, http.StatusNotFound, "cart item not found")

	cart, err = uc.RemoveItem(ctx, m.buyer, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.TotalPrice)
	assert.Equal(t, "10", m.stock(t, m.product))
}

func TestCart_UpdateCartText(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	addr := "  1 Farm Road "
	cart, err := uc.UpdateCart(ctx, m.buyer, usecase.UpdateCartInput{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "1 Farm Road", cart.Address)
	assert.Equal(t, model.OrderStatusUnordered, cart.Status)

	long := strings.Repeat("a", 101)
	_, err = uc.UpdateCart(ctx, m.buyer, usecase.UpdateCartInput{Description: &long})
	requireHTTPError(t, err, http.StatusBadRequest, "description too long")
}

func TestCart_Checkout(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	_, err := uc.Checkout(ctx, m.buyer, usecase.CheckoutInput{Address: "1 Farm Road"})
	requireHTTPError(t, err, http.StatusBadRequest, "cart is empty")

	_, err = uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 2})
	require.NoError(t, err)

	_, err = uc.Checkout(ctx, m.buyer, usecase.CheckoutInput{})
	requireHTTPError(t, err, http.StatusBadRequest, "address is required")

	order, err := uc.Checkout(ctx, m.buyer, usecase.CheckoutInput{Address: "1 Farm Road", Description: "leave at door"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOrdered, order.Status)
	assert.NotNil(t, order.OrderedAt)
	assert.Equal(t, "5.00", order.TotalPrice)
	require.Len(t, order.Items, 1)
	assert.Equal(t, model.LineStatusUnconfirmed, order.Items[0].Status)

	//確定後は新しい空のカート
	cart, err := uc.GetCart(ctx, m.buyer)
	require.NoError(t, err)
	assert.NotEqual(t, order.ID, cart.ID)
	assert.Empty(t, cart.Items)

	//在庫は確定で戻らない
	assert.Equal(t, "8", m.stock(t, m.product))

	orders := usecase.NewOrderUsecase(infrarepo.NewOrderGormRepository(m.db), infrarepo.NewOrderItemGormRepository(m.db))
	list, err := orders.ListMine(ctx, m.buyer, 1, 20)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, order.ID, list.Items[0].ID)

	_, err = orders.Get(ctx, m.buyer2, order.ID)
	requireHTTPError(t, err, http.StatusNotFound, "order not found")
	got, err := orders.Get(ctx, m.admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestCart_AbandonRestoresStock(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()
	other := m.addProduct(t, m.farmer2, "Cabbage", "1.20", "4")

	_, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 6})
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: other, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, "4", m.stock(t, m.product))
	assert.Equal(t, "0", m.stock(t, other))

	require.NoError(t, uc.Abandon(ctx, m.buyer))
	assert.Equal(t, "10", m.stock(t, m.product))
	assert.Equal(t, "4", m.stock(t, other))

	var movements []model.StockMovement
	require.NoError(t, m.db.Where("reason = ?", model.StockReasonCartRelease).Find(&movements).Error)
	assert.Len(t, movements, 2)

	//カートが無くてもエラーにしない
	require.NoError(t, uc.Abandon(ctx, m.buyer))
}

func TestCart_DuplicateCartsAreMerged(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()

	_, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 2})
	require.NoError(t, err)

	//直接2つ目のカートを作る
	require.NoError(t, m.db.Create(&model.Order{UserID: m.buyer.ID, Status: model.OrderStatusUnordered}).Error)

	cart, err := uc.GetCart(ctx, m.buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "10", m.stock(t, m.product))

	var n int64
	require.NoError(t, m.db.Model(&model.Order{}).
		Where("user_id = ? AND status = ?", m.buyer.ID, model.OrderStatusUnordered).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCart_LinePriceTooLarge(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()
	bulk := m.addProduct(t, m.farmer, "Bulk tomato", "100000.00", "1000000000000000")

	//単価 10,000,000 × 数量 1e14 は int64 を超える
	_, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: bulk, Quantity: 100_000_000_000_000})
	requireHTTPError(t, err, http.StatusBadRequest, "amount too large")
	assert.Equal(t, "1000000000000000", m.stock(t, bulk))

	cart, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: bulk, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "300000.00", cart.TotalPrice)

	_, err = uc.UpdateItem(ctx, m.buyer, cart.Items[0].ID, usecase.UpdateCartItemInput{Quantity: 100_000_000_000_000})
	requireHTTPError(t, err, http.StatusBadRequest, "amount too large")
	assert.Equal(t, "999999999999997", m.stock(t, bulk))
}

func TestCart_TotalTooLarge(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()
	a := m.addProduct(t, m.farmer, "Gold melon", "30000000000000000", "5")
	b := m.addProduct(t, m.farmer, "Platinum melon", "40000000000000000", "5")

	cart, err := uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: a, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "60000000000000000.00", cart.TotalPrice)

	//明細単体は収まるが合計が溢れる
	_, err = uc.AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: b, Quantity: 1})
	requireHTTPError(t, err, http.StatusBadRequest, "amount too large")
	assert.Equal(t, "5", m.stock(t, b))

	cart, err = uc.GetCart(ctx, m.buyer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "60000000000000000.00", cart.TotalPrice)
}

func TestCart_ConcurrentAddsNeverOversell(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	uc := m.cartUC()
	const stock, buyers = 3, 8
	scarce := m.addProduct(t, m.farmer, "Last tomatoes", "1.00", fmt.Sprint(stock))

	actors := make([]usecase.Actor, 0, buyers)
	for i := 0; i < buyers; i++ {
		u := model.User{Username: fmt.Sprintf("rush%d", i), FirstName: "r", LastName: "r", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
		require.NoError(t, m.db.Create(&u).Error)
		actors = append(actors, usecase.Actor{ID: u.ID, Role: model.RoleUser})
	}

	var ok, exceeded atomic.Int64
	var g errgroup.Group
	for _, a := range actors {
		g.Go(func() error {
			_, err := uc.AddItem(ctx, a, usecase.AddCartInput{ProductID: scarce, Quantity: 1})
			if err == nil {
				ok.Add(1)
				return nil
			}
			if he, isHTTP := usecase.AsHTTPError(err); isHTTP && he.Message == "stock exceeded" {
				exceeded.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(stock), ok.Load())
	assert.Equal(t, int64(buyers-stock), exceeded.Load())
	assert.Equal(t, "0", m.stock(t, scarce))

	var reserved int64
	require.NoError(t, m.db.Model(&model.OrderItem{}).
		Where("product_id = ?", scarce).
		Select("COALESCE(SUM(quantity), 0)").Scan(&reserved).Error)
	assert.Equal(t, int64(stock), reserved)
}
