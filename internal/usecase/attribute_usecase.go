package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"

	"go.uber.org/zap"
)

type AttributeUsecase struct {
	attributes repo.AttributeRepository
	values     repo.AttributeValueRepository
	categories repo.CategoryRepository
	products   repo.ProductRepository
	tx         repo.TransactionManager
	cache      Cache
}

func NewAttributeUsecase(
	attributes repo.AttributeRepository,
	values repo.AttributeValueRepository,
	categories repo.CategoryRepository,
	products repo.ProductRepository,
	tx repo.TransactionManager,
	cache Cache,
) *AttributeUsecase {
	return &AttributeUsecase{
		attributes: attributes,
		values:     values,
		categories: categories,
		products:   products,
		tx:         tx,
		cache:      cache,
	}
}

type AttributeDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ValueType string `json:"value_type"`
}

type AttributeInput struct {
	Name      string `json:"name"`
	ValueType string `json:"value_type"`
}

type AttributeValueDTO struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	AttributeID int64  `json:"attribute_id"`
	Name        string `json:"name"`
	ValueType   string `json:"value_type"`
	Value       string `json:"value"`
}

func toAttributeDTO(a model.Attribute) AttributeDTO {
	return AttributeDTO{ID: a.ID, Name: a.Name, ValueType: string(a.ValueType)}
}

func toAttributeValueDTO(v model.AttributeValue) AttributeValueDTO {
	return AttributeValueDTO{
		ID:          v.ID,
		ProductID:   v.ProductID,
		AttributeID: v.AttributeID,
		Name:        v.Attribute.Name,
		ValueType:   string(v.Attribute.ValueType),
		Value:       v.Value,
	}
}

// category_id と product_id はどちらか一方だけ
func (u *AttributeUsecase) List(ctx context.Context, categoryID, productID *int64) ([]AttributeDTO, error) {
	if categoryID != nil && productID != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "specify either category_id or product_id")
	}

	q := repo.AttributeListQuery{ProductID: productID}
	if categoryID != nil {
		ids, err := u.categories.AncestorIDs(ctx, *categoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewHTTPError(http.StatusNotFound, "category not found")
		}
		if err != nil {
			return nil, dbError(err)
		}
		q.CategoryIDs = ids
	}

	items, err := u.attributes.List(ctx, q)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]AttributeDTO, 0, len(items))
	for _, a := range items {
		out = append(out, toAttributeDTO(a))
	}
	return out, nil
}

func (u *AttributeUsecase) Get(ctx context.Context, id int64) (AttributeDTO, error) {
	a, err := u.attributes.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return AttributeDTO{}, NewHTTPError(http.StatusNotFound, "attribute not found")
	}
	if err != nil {
		return AttributeDTO{}, dbError(err)
	}
	return toAttributeDTO(a), nil
}

func (u *AttributeUsecase) Create(ctx context.Context, actor Actor, in AttributeInput) (AttributeDTO, error) {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return AttributeDTO{}, err
	}
	a, err := validateAttributeInput(in)
	if err != nil {
		return AttributeDTO{}, err
	}
	if err := u.attributes.Create(ctx, &a); err != nil {
		return AttributeDTO{}, dbError(err)
	}
	return toAttributeDTO(a), nil
}

// 値が入っている属性の型は変えられない
func (u *AttributeUsecase) Update(ctx context.Context, actor Actor, id int64, in AttributeInput) (AttributeDTO, error) {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return AttributeDTO{}, err
	}
	next, err := validateAttributeInput(in)
	if err != nil {
		return AttributeDTO{}, err
	}
	cur, err := u.attributes.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return AttributeDTO{}, NewHTTPError(http.StatusNotFound, "attribute not found")
	}
	if err != nil {
		return AttributeDTO{}, dbError(err)
	}
	if next.ValueType != cur.ValueType {
		used, err := u.attributes.InUse(ctx, id)
		if err != nil {
			return AttributeDTO{}, dbError(err)
		}
		if used {
			return AttributeDTO{}, NewHTTPError(http.StatusConflict, "attribute is in use")
		}
	}
	next.ID = id
	if err := u.attributes.Update(ctx, next); err != nil {
		return AttributeDTO{}, dbError(err)
	}
	if err := u.cache.Invalidate(ctx, cacheNSSchema); err != nil {
		zap.L().Warn("cache invalidate failed", zap.String("ns", cacheNSSchema), zap.Error(err))
	}
	return toAttributeDTO(next), nil
}

func (u *AttributeUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return err
	}
	if _, err := u.attributes.FindByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "attribute not found")
		}
		return dbError(err)
	}
	used, err := u.attributes.InUse(ctx, id)
	if err != nil {
		return dbError(err)
	}
	if used {
		return NewHTTPError(http.StatusConflict, "attribute is in use")
	}
	if err := u.attributes.Delete(ctx, id); err != nil {
		return dbError(err)
	}
	return nil
}

func (u *AttributeUsecase) ProductValues(ctx context.Context, productID int64) ([]AttributeValueDTO, error) {
	if _, err := u.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewHTTPError(http.StatusNotFound, "product not found")
		}
		return nil, dbError(err)
	}
	values, err := u.values.ListByProductID(ctx, productID)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]AttributeValueDTO, 0, len(values))
	for _, v := range values {
		out = append(out, toAttributeValueDTO(v))
	}
	return out, nil
}

// 商品の持ち主（農家）だけが変更できる。QUANTITYの変更は在庫の設定として履歴を残す。
func (u *AttributeUsecase) UpdateValue(ctx context.Context, actor Actor, valueID int64, value string) (AttributeValueDTO, error) {
	if err := requireActor(actor); err != nil {
		return AttributeValueDTO{}, err
	}

	var out AttributeValueDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		v, err := r.AttributeValues().FindByID(ctx, valueID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "attribute value not found")
		}
		if err != nil {
			return err
		}
		p, err := r.Products().FindByID(ctx, v.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return err
		}
		if p.FarmerID != actor.ID {
			return NewHTTPError(http.StatusForbidden, "not your product")
		}

		schema, err := resolveSchema(ctx, r.Categories(), r.CategoryAttributes(), r.Attributes(), p.CategoryID)
		if err != nil {
			return err
		}
		s, ok := findSchemaAttribute(schema, v.AttributeID)
		if !ok {
			//スキーマから外れた属性も型チェックだけはする
			s = SchemaAttribute{AttributeID: v.AttributeID, Name: v.Attribute.Name, ValueType: v.Attribute.ValueType}
		}
		value = strings.TrimSpace(value)
		if err := checkValue(s, value); err != nil {
			return err
		}

		if v.Attribute.ValueType == model.ValueTypeQuantity && value != "" {
			newStock, _ := model.ParseStock(value)
			if err := setStock(ctx, r, actor.ID, p.ID, v.ID, newStock); err != nil {
				return err
			}
		} else if err := r.AttributeValues().UpdateValue(ctx, v.ID, value); err != nil {
			return err
		}

		v.Value = value
		out = toAttributeValueDTO(v)
		return nil
	})
	if err != nil {
		return AttributeValueDTO{}, txError(err)
	}
	return out, nil
}

func validateAttributeInput(in AttributeInput) (model.Attribute, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Attribute{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if utf8.RuneCountInString(name) > 50 {
		return model.Attribute{}, NewHTTPError(http.StatusBadRequest, "name too long")
	}
	vt := model.AttributeValueType(strings.ToUpper(strings.TrimSpace(in.ValueType)))
	if !vt.IsValid() {
		return model.Attribute{}, NewHTTPError(http.StatusBadRequest, "invalid value_type")
	}
	return model.Attribute{Name: name, ValueType: vt}, nil
}
