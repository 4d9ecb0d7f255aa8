package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"farmmarket/internal/domain/model"
	"farmmarket/internal/infra/cache"
	infrarepo "farmmarket/internal/infra/repository"
	"farmmarket/internal/usecase"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func (m *market) categoryUC() *usecase.CategoryUsecase {
	return usecase.NewCategoryUsecase(
		infrarepo.NewCategoryGormRepository(m.db),
		infrarepo.NewCategoryAttributeGormRepository(m.db),
		infrarepo.NewAttributeGormRepository(m.db),
		infrarepo.NewProductGormRepository(m.db),
		m.tx,
		cache.Noop{},
	)
}

// 親: Price(任意) Quantity(必須) Place(任意) / 子: Price(必須)
type schemaTree struct {
	parent, child int64
	place         int64
}

func (m *market) addSchemaTree(t *testing.T) schemaTree {
	t.Helper()
	place := model.Attribute{Name: "Place", ValueType: model.ValueTypePlace}
	require.NoError(t, m.db.Create(&place).Error)

	parent := model.Category{Name: "Vegetables", Status: model.CategoryStatusApproved, CreatedByID: m.admin.ID}
	require.NoError(t, m.db.Create(&parent).Error)
	child := model.Category{Name: "Leafy", ParentID: &parent.ID, Status: model.CategoryStatusApproved, IsFinal: true, CreatedByID: m.admin.ID}
	require.NoError(t, m.db.Create(&child).Error)

	require.NoError(t, m.db.Create(&[]model.CategoryAttribute{
		{CategoryID: parent.ID, AttributeID: m.priceAttr, IsRequired: false},
		{CategoryID: parent.ID, AttributeID: m.stockAttr, IsRequired: true},
		{CategoryID: parent.ID, AttributeID: place.ID, IsRequired: false},
		{CategoryID: child.ID, AttributeID: m.priceAttr, IsRequired: true},
	}).Error)
	return schemaTree{parent: parent.ID, child: child.ID, place: place.ID}
}

func TestCategory_SchemaNearestLinkWins(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	tree := m.addSchemaTree(t)

	got, err := m.categoryUC().Schema(ctx, tree.child)
	require.NoError(t, err)
	want := []usecase.SchemaAttribute{
		{AttributeID: m.priceAttr, Name: "Price", ValueType: model.ValueTypePricePerKg, IsRequired: true, CategoryID: tree.child},
		{AttributeID: m.stockAttr, Name: "Quantity", ValueType: model.ValueTypeQuantity, IsRequired: true, CategoryID: tree.parent},
		{AttributeID: tree.place, Name: "Place", ValueType: model.ValueTypePlace, IsRequired: false, CategoryID: tree.parent},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}

	//親から見るとPriceは任意のまま
	got, err = m.categoryUC().Schema(ctx, tree.parent)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.False(t, got[0].IsRequired)
}

func TestCategory_ReplaceSchema(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	tree := m.addSchemaTree(t)
	mod := usecase.Actor{ID: m.admin.ID, Role: model.RoleModerator}

	//子のリンクを Place(必須) だけにすると Price は親の設定に戻る
	got, err := m.categoryUC().ReplaceSchema(ctx, mod, tree.child, []usecase.SchemaLinkInput{
		{AttributeID: tree.place, IsRequired: true},
	})
	require.NoError(t, err)
	want := []usecase.SchemaAttribute{
		{AttributeID: m.priceAttr, Name: "Price", ValueType: model.ValueTypePricePerKg, IsRequired: false, CategoryID: tree.parent},
		{AttributeID: m.stockAttr, Name: "Quantity", ValueType: model.ValueTypeQuantity, IsRequired: true, CategoryID: tree.parent},
		{AttributeID: tree.place, Name: "Place", ValueType: model.ValueTypePlace, IsRequired: true, CategoryID: tree.child},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("schema mismatch (-want +got):\n%s", diff)
	}

	var links []model.CategoryAttribute
	require.NoError(t, m.db.Where("category_id = ?", tree.child).Find(&links).Error)
	require.Len(t, links, 1)

	tests := []struct {
		name  string
		actor usecase.Actor
		id    int64
		in    []usecase.SchemaLinkInput
		code  int
		msg   string
	}{
		{"farmer", m.farmer, tree.child, nil, http.StatusForbidden, "forbidden"},
		{"unknown category", mod, 999, nil, http.StatusNotFound, "category not found"},
		{"unknown attribute", mod, tree.child, []usecase.SchemaLinkInput{{AttributeID: 999}}, http.StatusBadRequest, "attribute not found: 999"},
		{
			"duplicate", mod, tree.child,
			[]usecase.SchemaLinkInput{{AttributeID: tree.place}, {AttributeID: tree.place, IsRequired: true}},
			http.StatusBadRequest, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.categoryUC().ReplaceSchema(ctx, tt.actor, tt.id, tt.in)
			requireHTTPError(t, err, tt.code, tt.msg)
		})
	}

	//失敗したものは反映されない
	require.NoError(t, m.db.Where("category_id = ?", tree.child).Find(&links).Error)
	require.Len(t, links, 1)
	require.True(t, links[0].IsRequired)
}
