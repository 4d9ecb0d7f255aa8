package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

// カテゴリの実効スキーマの1項目
type SchemaAttribute struct {
	AttributeID int64                    `json:"attribute_id"`
	Name        string                   `json:"name"`
	ValueType   model.AttributeValueType `json:"value_type"`
	IsRequired  bool                     `json:"is_required"`
	// どのカテゴリ（自分か祖先）で定義されたか
	CategoryID int64 `json:"category_id"`
}

type AttributeValueInput struct {
	AttributeID int64  `json:"attribute_id"`
	Value       string `json:"value"`
}

// 祖先のリンクも含める。同じ属性は近いカテゴリの設定を使う。
func resolveSchema(
	ctx context.Context,
	categories repo.CategoryRepository,
	links repo.CategoryAttributeRepository,
	attributes repo.AttributeRepository,
	categoryID int64,
) ([]SchemaAttribute, error) {
	ancestors, err := categories.AncestorIDs(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	rank := make(map[int64]int, len(ancestors))
	for i, id := range ancestors {
		rank[id] = i
	}

	all, err := links.ListByCategoryIDs(ctx, ancestors)
	if err != nil {
		return nil, err
	}
	nearest := map[int64]model.CategoryAttribute{}
	for _, l := range all {
		cur, ok := nearest[l.AttributeID]
		if !ok || rank[l.CategoryID] < rank[cur.CategoryID] {
			nearest[l.AttributeID] = l
		}
	}

	ids := make([]int64, 0, len(nearest))
	for id := range nearest {
		ids = append(ids, id)
	}
	attrs, err := attributes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]SchemaAttribute, 0, len(attrs))
	for _, a := range attrs {
		l := nearest[a.ID]
		out = append(out, SchemaAttribute{
			AttributeID: a.ID,
			Name:        a.Name,
			ValueType:   a.ValueType,
			IsRequired:  l.IsRequired,
			CategoryID:  l.CategoryID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttributeID < out[j].AttributeID })
	return out, nil
}

// スキーマの属性はすべて送る。必須は空不可。スキーマ外は不可。
func validateAgainstSchema(schema []SchemaAttribute, in []AttributeValueInput) error {
	byID := make(map[int64]SchemaAttribute, len(schema))
	for _, s := range schema {
		byID[s.AttributeID] = s
	}

	seen := map[int64]bool{}
	for _, v := range in {
		if seen[v.AttributeID] {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("duplicate attribute_id: %d", v.AttributeID))
		}
		seen[v.AttributeID] = true

		s, ok := byID[v.AttributeID]
		if !ok {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("attribute not in category schema: %d", v.AttributeID))
		}
		if err := checkValue(s, v.Value); err != nil {
			return err
		}
	}

	for _, s := range schema {
		if !seen[s.AttributeID] {
			return NewHTTPError(http.StatusBadRequest, "missing attribute: "+s.Name)
		}
	}
	return nil
}

// 1つの値の検証
func checkValue(s SchemaAttribute, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if s.IsRequired {
			return NewHTTPError(http.StatusBadRequest, "required attribute is empty: "+s.Name)
		}
		return nil
	}
	if err := s.ValueType.Validate(value); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid value for attribute: "+s.Name)
	}
	return nil
}

func findSchemaAttribute(schema []SchemaAttribute, attributeID int64) (SchemaAttribute, bool) {
	for _, s := range schema {
		if s.AttributeID == attributeID {
			return s, true
		}
	}
	return SchemaAttribute{}, false
}
