package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"farmmarket/internal/domain/model"
	"farmmarket/internal/infra/cache"
	infrarepo "farmmarket/internal/infra/repository"
	"farmmarket/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *market) attributeUC() *usecase.AttributeUsecase {
	return usecase.NewAttributeUsecase(
		infrarepo.NewAttributeGormRepository(m.db),
		infrarepo.NewAttributeValueGormRepository(m.db),
		infrarepo.NewCategoryGormRepository(m.db),
		infrarepo.NewProductGormRepository(m.db),
		m.tx,
		cache.Noop{},
	)
}

func (m *market) valueID(t *testing.T, productID, attributeID int64) int64 {
	t.Helper()
	var v model.AttributeValue
	require.NoError(t, m.db.Where("product_id = ? AND attribute_id = ?", productID, attributeID).First(&v).Error)
	return v.ID
}

func TestAttribute_ListRejectsBothFilters(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)

	_, err := m.attributeUC().List(ctx, &m.category, &m.product)
	requireHTTPError(t, err, http.StatusBadRequest, "specify either category_id or product_id")

	items, err := m.attributeUC().List(ctx, &m.category, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAttribute_UpdateValueSetsStock(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	id := m.valueID(t, m.product, m.stockAttr)

	v, err := m.attributeUC().UpdateValue(ctx, m.farmer, id, " 25 ")
	require.NoError(t, err)
	assert.Equal(t, "25", v.Value)
	assert.Equal(t, "25", m.stock(t, m.product))

	var mv []model.StockMovement
	require.NoError(t, m.db.Where("product_id = ?", m.product).Find(&mv).Error)
	require.Len(t, mv, 1)
	assert.Equal(t, int64(15), mv[0].Delta)
	assert.Equal(t, model.StockReasonFarmerSet, mv[0].Reason)
	assert.Equal(t, m.farmer.ID, mv[0].ActorUserID)

	tests := []struct {
		name  string
		actor usecase.Actor
		id    int64
		value string
		code  int
		msg   string
	}{
		{"other farmer", m.farmer2, id, "1", http.StatusForbidden, "not your product"},
		{"buyer", m.buyer, id, "1", http.StatusForbidden, "not your product"},
		{"anonymous", usecase.Actor{}, id, "1", http.StatusUnauthorized, "unauthorized"},
		{"not a number", m.farmer, id, "many", http.StatusBadRequest, "invalid value for attribute: Quantity"},
		{"required empty", m.farmer, id, "", http.StatusBadRequest, "required attribute is empty: Quantity"},
		{"unknown value", m.farmer, 999, "1", http.StatusNotFound, "attribute value not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.attributeUC().UpdateValue(ctx, tt.actor, tt.id, tt.value)
			requireHTTPError(t, err, tt.code, tt.msg)
		})
	}
	assert.Equal(t, "25", m.stock(t, m.product))
}

func TestAttribute_UpdateValueLocksEditedQuantity(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)

	//2つ目のQUANTITY属性
	reserve := model.Attribute{Name: "Reserve", ValueType: model.ValueTypeQuantity}
	require.NoError(t, m.db.Create(&reserve).Error)
	require.NoError(t, m.db.Create(&model.CategoryAttribute{CategoryID: m.category, AttributeID: reserve.ID}).Error)
	require.NoError(t, m.db.Create(&model.AttributeValue{ProductID: m.product, AttributeID: reserve.ID, Value: "4"}).Error)
	id := m.valueID(t, m.product, reserve.ID)

	v, err := m.attributeUC().UpdateValue(ctx, m.farmer, id, "9")
	require.NoError(t, err)
	assert.Equal(t, reserve.ID, v.AttributeID)

	assert.Equal(t, "10", m.stock(t, m.product))
	var got model.AttributeValue
	require.NoError(t, m.db.First(&got, id).Error)
	assert.Equal(t, "9", got.Value)

	var mv model.StockMovement
	require.NoError(t, m.db.Where("product_id = ?", m.product).Order("id desc").First(&mv).Error)
	assert.Equal(t, int64(5), mv.Delta)
}

func TestAttribute_UpdateValuePlainAttribute(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	id := m.valueID(t, m.product, m.priceAttr)

	v, err := m.attributeUC().UpdateValue(ctx, m.farmer, id, "3.05")
	require.NoError(t, err)
	assert.Equal(t, "3.05", v.Value)

	var n int64
	require.NoError(t, m.db.Model(&model.StockMovement{}).Count(&n).Error)
	assert.Zero(t, n)

	//カートの単価にも反映される
	cart, err := m.cartUC().AddItem(ctx, m.buyer, usecase.AddCartInput{ProductID: m.product, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "6.10", cart.TotalPrice)
}
