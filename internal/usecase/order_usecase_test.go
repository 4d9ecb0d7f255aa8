package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"farmmarket/internal/domain/model"
	infrarepo "farmmarket/internal/infra/repository"
	"farmmarket/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buyerが1件注文した状態を作って明細IDを返す
func placeOrder(t *testing.T, m *market, buyer usecase.Actor, productID int64, qty int64) usecase.OrderDTO {
	t.Helper()
	ctx := context.Background()
	uc := m.cartUC()
	_, err := uc.AddItem(ctx, buyer, usecase.AddCartInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	order, err := uc.Checkout(ctx, buyer, usecase.CheckoutInput{Address: "1 Farm Road"})
	require.NoError(t, err)
	return order
}

func TestFulfilment_AdvanceWalksStatuses(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	order := placeOrder(t, m, m.buyer, m.product, 2)
	itemID := order.Items[0].ID

	uc := usecase.NewFulfilmentUsecase(infrarepo.NewOrderItemGormRepository(m.db), m.tx)

	items, err := uc.ListItems(ctx, m.farmer, "UNCONFIRMED")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, itemID, items[0].ID)

	got, err := uc.Advance(ctx, m.farmer, itemID)
	require.NoError(t, err)
	assert.Equal(t, model.LineStatusConfirmed, got.Status)

	got, err = uc.Advance(ctx, m.farmer, itemID)
	require.NoError(t, err)
	assert.Equal(t, model.LineStatusShipped, got.Status)

	_, err = uc.Advance(ctx, m.farmer, itemID)
	requireHTTPError(t, err, http.StatusBadRequest, "cannot advance status")

	items, err = uc.ListItems(ctx, m.farmer, "SHIPPED")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	//監査ログが2件
	audit := usecase.NewAuditLogUsecase(infrarepo.NewAuditLogGormRepository(m.db))
	logs, err := audit.List(ctx, m.admin, usecase.AuditLogListInput{
		Action: string(model.AuditActionAdvanceLineStatus),
		Page:   1,
		Limit:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), logs.Total)
	for _, l := range logs.Items {
		assert.Equal(t, m.farmer.ID, l.ActorUserID)
		assert.Equal(t, itemID, l.ResourceID)
		assert.Equal(t, model.AuditResourceOrderItem, l.ResourceType)
	}
}

func TestFulfilment_AdvanceRejects(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	order := placeOrder(t, m, m.buyer, m.product, 1)
	itemID := order.Items[0].ID

	uc := usecase.NewFulfilmentUsecase(infrarepo.NewOrderItemGormRepository(m.db), m.tx)

	//他の農家の明細は存在しない扱い
	_, err := uc.Advance(ctx, m.farmer2, itemID)
	requireHTTPError(t, err, http.StatusNotFound, "order item not found")

	_, err = uc.Advance(ctx, m.buyer, itemID)
	requireStatus(t, err, http.StatusForbidden)

	_, err = uc.Advance(ctx, m.farmer, 9999)
	requireHTTPError(t, err, http.StatusNotFound, "order item not found")

	_, err = uc.ListItems(ctx, m.farmer, "IN_CART")
	requireHTTPError(t, err, http.StatusBadRequest, "invalid status")
}

func TestFulfilment_CartLinesCannotAdvance(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	cart, err := m.cartUC().AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 1})
	require.NoError(t, err)

	uc := usecase.NewFulfilmentUsecase(infrarepo.NewOrderItemGormRepository(m.db), m.tx)
	_, err = uc.Advance(ctx, m.farmer, cart.Items[0].ID)
	requireHTTPError(t, err, http.StatusBadRequest, "cannot advance status")
}

// 商品を消しても履歴の明細は進められる
func TestFulfilment_AdvanceAfterProductDeleted(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	order := placeOrder(t, m, m.buyer, m.product, 1)

	require.NoError(t, m.productUC().Delete(ctx, m.farmer, m.product))

	uc := usecase.NewFulfilmentUsecase(infrarepo.NewOrderItemGormRepository(m.db), m.tx)
	got, err := uc.Advance(ctx, m.farmer, order.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.LineStatusConfirmed, got.Status)
}

func TestAdminOrders_List(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	placeOrder(t, m, m.buyer, m.product, 1)
	placeOrder(t, m, m.buyer2, m.product, 2)

	uc := usecase.NewAdminOrderUsecase(infrarepo.NewOrderGormRepository(m.db), infrarepo.NewOrderItemGormRepository(m.db))

	out, err := uc.List(ctx, m.admin, usecase.AdminOrderListInput{Page: 1, Limit: 20, Status: "ORDERED"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)

	out, err = uc.List(ctx, m.admin, usecase.AdminOrderListInput{Page: 1, Limit: 20, UserID: &m.buyer2.ID})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "5.00", out.Items[0].TotalPrice)

	tests := []struct {
		name  string
		actor usecase.Actor
		in    usecase.AdminOrderListInput
		code  int
		msg   string
	}{
		{"not admin", m.buyer, usecase.AdminOrderListInput{Page: 1, Limit: 20}, http.StatusForbidden, "forbidden"},
		{"bad limit", m.admin, usecase.AdminOrderListInput{Page: 1, Limit: 101}, http.StatusBadRequest, "invalid limit"},
		{"bad status", m.admin, usecase.AdminOrderListInput{Page: 1, Limit: 20, Status: "SHIPPED"}, http.StatusBadRequest, "invalid status"},
		{"bad from", m.admin, usecase.AdminOrderListInput{Page: 1, Limit: 20, From: "yesterday"}, http.StatusBadRequest, "invalid from"},
		{
			"from after to", m.admin,
			usecase.AdminOrderListInput{Page: 1, Limit: 20, From: "2026-02-01T00:00:00Z", To: "2026-01-01T00:00:00Z"},
			http.StatusBadRequest, "from must be before to",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.List(ctx, tt.actor, tt.in)
			requireHTTPError(t, err, tt.code, tt.msg)
		})
	}
}
