package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

type ProductUsecase struct {
	products   repo.ProductRepository
	values     repo.AttributeValueRepository
	categories repo.CategoryRepository
	attributes repo.AttributeRepository
	inventory  repo.InventoryRepository
	tx         repo.TransactionManager
}

func NewProductUsecase(
	products repo.ProductRepository,
	values repo.AttributeValueRepository,
	categories repo.CategoryRepository,
	attributes repo.AttributeRepository,
	inventory repo.InventoryRepository,
	tx repo.TransactionManager,
) *ProductUsecase {
	return &ProductUsecase{
		products:   products,
		values:     values,
		categories: categories,
		attributes: attributes,
		inventory:  inventory,
		tx:         tx,
	}
}

type ProductDTO struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	FarmerID        int64               `json:"farmer_id"`
	CategoryID      int64               `json:"category_id"`
	ImageRoot       string              `json:"image_root"`
	CreatedAt       time.Time           `json:"created_at"`
	AttributeValues []AttributeValueDTO `json:"attribute_values"`
}

type StockMovementListOutput struct {
	Items []model.StockMovement `json:"items"`
}

type ProductListOutput struct {
	Items []ProductDTO `json:"items"`
	PageOutput
}

type ListProductsInput struct {
	Page       int
	Limit      int
	CategoryID *int64
	NameLike   string
	FarmerID   *int64
	// "<attribute_id>:<min|max|eq>:<value>"
	Filters []string
}

type CreateProductInput struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	CategoryID      int64                 `json:"category_id"`
	ImageRoot       string                `json:"image_root"`
	AttributeValues []AttributeValueInput `json:"attribute_values"`
}

// AttributeValuesがnilなら属性値は変更しない
type UpdateProductInput struct {
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	ImageRoot       string                 `json:"image_root"`
	AttributeValues *[]AttributeValueInput `json:"attribute_values"`
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if err := checkPaging(in.Page, in.Limit); err != nil {
		return ProductListOutput{}, err
	}

	q := repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		NameLike: strings.TrimSpace(in.NameLike),
		FarmerID: in.FarmerID,
	}
	//カテゴリは子孫も含める
	if in.CategoryID != nil {
		ids, err := u.categories.DescendantIDs(ctx, *in.CategoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return ProductListOutput{}, NewHTTPError(http.StatusNotFound, "category not found")
		}
		if err != nil {
			return ProductListOutput{}, dbError(err)
		}
		q.CategoryIDs = ids
	}
	for _, raw := range in.Filters {
		f, err := u.parseFilter(ctx, raw)
		if err != nil {
			return ProductListOutput{}, err
		}
		q.Filters = append(q.Filters, f)
	}

	items, total, err := u.products.List(ctx, q)
	if err != nil {
		return ProductListOutput{}, dbError(err)
	}

	out := ProductListOutput{
		Items:      make([]ProductDTO, 0, len(items)),
		PageOutput: PageOutput{Page: in.Page, Limit: in.Limit, Total: total},
	}
	for _, p := range items {
		dto, err := u.withValues(ctx, u.values, p)
		if err != nil {
			return ProductListOutput{}, dbError(err)
		}
		out.Items = append(out.Items, dto)
	}
	return out, nil
}

func (u *ProductUsecase) ListByFarmer(ctx context.Context, farmerID int64, page, limit int) (ProductListOutput, error) {
	return u.List(ctx, ListProductsInput{Page: page, Limit: limit, FarmerID: &farmerID})
}

func (u *ProductUsecase) Get(ctx context.Context, id int64) (ProductDTO, error) {
	p, err := u.products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductDTO{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return ProductDTO{}, dbError(err)
	}
	dto, err := u.withValues(ctx, u.values, p)
	if err != nil {
		return ProductDTO{}, dbError(err)
	}
	return dto, nil
}

// 農家のみ。カテゴリは承認済みかつ最下層。属性値はカテゴリのスキーマで検証する。
func (u *ProductUsecase) Create(ctx context.Context, actor Actor, in CreateProductInput) (ProductDTO, error) {
	if err := requireRole(actor, model.RoleFarmer); err != nil {
		return ProductDTO{}, err
	}
	p, err := validateProductFields(in.Name, in.Description, in.ImageRoot)
	if err != nil {
		return ProductDTO{}, err
	}
	p.FarmerID = actor.ID
	p.CategoryID = in.CategoryID

	var out ProductDTO
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().FindByID(ctx, in.CategoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "category not found")
		}
		if err != nil {
			return err
		}
		if c.Status != model.CategoryStatusApproved {
			return NewHTTPError(http.StatusBadRequest, "category is not approved")
		}
		if !c.IsFinal {
			return NewHTTPError(http.StatusBadRequest, "category is not final")
		}

		schema, err := resolveSchema(ctx, r.Categories(), r.CategoryAttributes(), r.Attributes(), c.ID)
		if err != nil {
			return err
		}
		if err := validateAgainstSchema(schema, in.AttributeValues); err != nil {
			return err
		}

		if err := r.Products().Create(ctx, &p); err != nil {
			return err
		}

		values := make([]model.AttributeValue, 0, len(in.AttributeValues))
		for _, v := range in.AttributeValues {
			values = append(values, model.AttributeValue{
				ProductID:   p.ID,
				AttributeID: v.AttributeID,
				Value:       strings.TrimSpace(v.Value),
			})
		}
		if err := r.AttributeValues().CreateBulk(ctx, values); err != nil {
			return err
		}

		//初期在庫も履歴に残す
		for _, v := range values {
			s, _ := findSchemaAttribute(schema, v.AttributeID)
			if s.ValueType != model.ValueTypeQuantity || v.Value == "" {
				continue
			}
			stock, _ := model.ParseStock(v.Value)
			if stock == 0 {
				continue
			}
			if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
				ProductID:   p.ID,
				ActorUserID: actor.ID,
				Delta:       stock,
				Reason:      model.StockReasonFarmerSet,
			}); err != nil {
				return err
			}
		}

		out, err = u.withValues(ctx, r.AttributeValues(), p)
		return err
	})
	if err != nil {
		return ProductDTO{}, txError(err)
	}
	return out, nil
}

// 持ち主のみ。属性値を送るときはスキーマの属性をすべて送る。
func (u *ProductUsecase) Update(ctx context.Context, actor Actor, id int64, in UpdateProductInput) (ProductDTO, error) {
	if err := requireActor(actor); err != nil {
		return ProductDTO{}, err
	}
	fields, err := validateProductFields(in.Name, in.Description, in.ImageRoot)
	if err != nil {
		return ProductDTO{}, err
	}

	var out ProductDTO
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return err
		}
		if p.FarmerID != actor.ID {
			return NewHTTPError(http.StatusForbidden, "not your product")
		}

		p.Name = fields.Name
		p.Description = fields.Description
		p.ImageRoot = fields.ImageRoot
		if err := r.Products().Update(ctx, p); err != nil {
			return err
		}

		if in.AttributeValues != nil {
			if err := u.replaceValues(ctx, r, actor, p, *in.AttributeValues); err != nil {
				return err
			}
		}

		out, err = u.withValues(ctx, r.AttributeValues(), p)
		return err
	})
	if err != nil {
		return ProductDTO{}, txError(err)
	}
	return out, nil
}

func (u *ProductUsecase) replaceValues(ctx context.Context, r repo.TxRepos, actor Actor, p model.Product, in []AttributeValueInput) error {
	schema, err := resolveSchema(ctx, r.Categories(), r.CategoryAttributes(), r.Attributes(), p.CategoryID)
	if err != nil {
		return err
	}
	if err := validateAgainstSchema(schema, in); err != nil {
		return err
	}

	existing, err := r.AttributeValues().ListByProductID(ctx, p.ID)
	if err != nil {
		return err
	}
	valueIDs := map[int64]int64{}
	for _, v := range existing {
		valueIDs[v.AttributeID] = v.ID
	}

	for _, v := range in {
		value := strings.TrimSpace(v.Value)
		s, _ := findSchemaAttribute(schema, v.AttributeID)
		//既存の在庫は設定として履歴を残す
		valueID, ok := valueIDs[v.AttributeID]
		if s.ValueType == model.ValueTypeQuantity && ok && value != "" {
			stock, _ := model.ParseStock(value)
			if err := setStock(ctx, r, actor.ID, p.ID, valueID, stock); err != nil {
				return err
			}
			continue
		}
		if err := r.AttributeValues().Upsert(ctx, p.ID, v.AttributeID, value); err != nil {
			return err
		}
	}
	return nil
}

// 持ち主か管理者。論理削除なので注文明細からは参照できる。
func (u *ProductUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	p, err := u.products.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return dbError(err)
	}
	if p.FarmerID != actor.ID && !actor.IsAdmin() {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if err := u.products.SoftDelete(ctx, id); err != nil {
		return dbError(err)
	}
	return nil
}

func (u *ProductUsecase) parseFilter(ctx context.Context, raw string) (repo.AttributeFilter, error) {
	bad := NewHTTPError(http.StatusBadRequest, "invalid filter: "+raw)

	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return repo.AttributeFilter{}, bad
	}
	attrID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || attrID <= 0 {
		return repo.AttributeFilter{}, bad
	}
	op := repo.AttributeFilterOp(strings.ToLower(parts[1]))
	value := strings.TrimSpace(parts[2])
	if value == "" {
		return repo.AttributeFilter{}, bad
	}

	a, err := u.attributes.FindByID(ctx, attrID)
	if errors.Is(err, repo.ErrNotFound) {
		return repo.AttributeFilter{}, NewHTTPError(http.StatusBadRequest, "unknown filter attribute")
	}
	if err != nil {
		return repo.AttributeFilter{}, dbError(err)
	}

	switch op {
	case repo.FilterMin, repo.FilterMax:
		if !a.ValueType.IsNumeric() {
			return repo.AttributeFilter{}, NewHTTPError(http.StatusBadRequest, "min/max needs a numeric attribute")
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return repo.AttributeFilter{}, bad
		}
	case repo.FilterEq:
	default:
		return repo.AttributeFilter{}, bad
	}
	return repo.AttributeFilter{AttributeID: attrID, Op: op, Value: value}, nil
}

func (u *ProductUsecase) withValues(ctx context.Context, values repo.AttributeValueRepository, p model.Product) (ProductDTO, error) {
	vs, err := values.ListByProductID(ctx, p.ID)
	if err != nil {
		return ProductDTO{}, err
	}
	dto := ProductDTO{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		FarmerID:        p.FarmerID,
		CategoryID:      p.CategoryID,
		ImageRoot:       p.ImageRoot,
		CreatedAt:       p.CreatedAt,
		AttributeValues: make([]AttributeValueDTO, 0, len(vs)),
	}
	for _, v := range vs {
		dto.AttributeValues = append(dto.AttributeValues, toAttributeValueDTO(v))
	}
	return dto, nil
}

func validateProductFields(name, description, imageRoot string) (model.Product, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	imageRoot = strings.TrimSpace(imageRoot)
	if name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if utf8.RuneCountInString(name) > 32 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name too long")
	}
	if description == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "description is required")
	}
	if utf8.RuneCountInString(description) > 255 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "description too long")
	}
	if utf8.RuneCountInString(imageRoot) > 255 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "image_root too long")
	}
	return model.Product{Name: name, Description: description, ImageRoot: imageRoot}, nil
}

// 在庫の増減履歴（新しい順）。持ち主の農家か管理者だけ。
func (u *ProductUsecase) StockMovements(ctx context.Context, actor Actor, productID int64, limit int) (StockMovementListOutput, error) {
	if err := requireActor(actor); err != nil {
		return StockMovementListOutput{}, err
	}
	if limit < 1 || limit > 200 {
		return StockMovementListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return StockMovementListOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return StockMovementListOutput{}, dbError(err)
	}
	if p.FarmerID != actor.ID && !actor.IsAdmin() {
		return StockMovementListOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	items, err := u.inventory.ListMovements(ctx, p.ID, limit)
	if err != nil {
		return StockMovementListOutput{}, dbError(err)
	}
	return StockMovementListOutput{Items: items}, nil
}
