package usecase_test

import (
	"testing"

	"farmmarket/internal/domain/model"
	infrarepo "farmmarket/internal/infra/repository"
	"farmmarket/internal/testutil"
	"farmmarket/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// market はsqlite上に最小の売り場を作る
type market struct {
	db *gorm.DB

	admin   usecase.Actor
	farmer  usecase.Actor
	farmer2 usecase.Actor
	buyer   usecase.Actor
	buyer2  usecase.Actor

	priceAttr int64
	stockAttr int64
	category  int64
	product   int64

	tx *infrarepo.TxManagerGorm
}

func newMarket(t *testing.T) *market {
	t.Helper()
	gdb := testutil.NewDB(t)
	m := &market{db: gdb, tx: infrarepo.NewTxManagerGorm(gdb)}

	mkUser := func(name string, role model.Role) usecase.Actor {
		u := model.User{Username: name, FirstName: name, LastName: name, PasswordHash: "x", Role: role, IsActive: true}
		require.NoError(t, gdb.Create(&u).Error)
		return usecase.Actor{ID: u.ID, Role: role}
	}
	m.admin = mkUser("admin", model.RoleAdmin)
	m.farmer = mkUser("farmer", model.RoleFarmer)
	m.farmer2 = mkUser("farmer2", model.RoleFarmer)
	m.buyer = mkUser("buyer", model.RoleUser)
	m.buyer2 = mkUser("buyer2", model.RoleUser)

	price := model.Attribute{Name: "Price", ValueType: model.ValueTypePricePerKg}
	stock := model.Attribute{Name: "Quantity", ValueType: model.ValueTypeQuantity}
	require.NoError(t, gdb.Create(&price).Error)
	require.NoError(t, gdb.Create(&stock).Error)
	m.priceAttr, m.stockAttr = price.ID, stock.ID

	cat := model.Category{Name: "Tomatoes", Status: model.CategoryStatusApproved, IsFinal: true, CreatedByID: m.admin.ID}
	require.NoError(t, gdb.Create(&cat).Error)
	m.category = cat.ID
	require.NoError(t, gdb.Create(&[]model.CategoryAttribute{
		{CategoryID: cat.ID, AttributeID: price.ID, IsRequired: true},
		{CategoryID: cat.ID, AttributeID: stock.ID, IsRequired: true},
	}).Error)

	m.product = m.addProduct(t, m.farmer, "Cherry tomato", "2.50", "10")
	return m
}

func (m *market) addProduct(t *testing.T, farmer usecase.Actor, name, price, stock string) int64 {
	t.Helper()
	p := model.Product{Name: name, Description: "fresh", FarmerID: farmer.ID, CategoryID: m.category}
	require.NoError(t, m.db.Create(&p).Error)
	require.NoError(t, m.db.Create(&[]model.AttributeValue{
		{ProductID: p.ID, AttributeID: m.priceAttr, Value: price},
		{ProductID: p.ID, AttributeID: m.stockAttr, Value: stock},
	}).Error)
	return p.ID
}

func (m *market) stock(t *testing.T, productID int64) string {
	t.Helper()
	var v model.AttributeValue
	require.NoError(t, m.db.Where("product_id = ? AND attribute_id = ?", productID, m.stockAttr).First(&v).Error)
	return v.Value
}

func (m *market) cartUC() *usecase.CartUsecase { return usecase.NewCartUsecase(m.tx) }

func (m *market) productUC() *usecase.ProductUsecase {
	return usecase.NewProductUsecase(
		infrarepo.NewProductGormRepository(m.db),
		infrarepo.NewAttributeValueGormRepository(m.db),
		infrarepo.NewCategoryGormRepository(m.db),
		infrarepo.NewAttributeGormRepository(m.db),
		infrarepo.NewInventoryGormRepository(m.db),
		m.tx,
	)
}

func requireHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	if msg != "" {
		assert.Equal(t, msg, he.Message)
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	requireHTTPError(t, err, status, "")
}
