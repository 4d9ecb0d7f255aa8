package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"

	"go.uber.org/zap"
)

type CategoryUsecase struct {
	categories repo.CategoryRepository
	links      repo.CategoryAttributeRepository
	attributes repo.AttributeRepository
	products   repo.ProductRepository
	tx         repo.TransactionManager
	cache      Cache
}

func NewCategoryUsecase(
	categories repo.CategoryRepository,
	links repo.CategoryAttributeRepository,
	attributes repo.AttributeRepository,
	products repo.ProductRepository,
	tx repo.TransactionManager,
	cache Cache,
) *CategoryUsecase {
	return &CategoryUsecase{
		categories: categories,
		links:      links,
		attributes: attributes,
		products:   products,
		tx:         tx,
		cache:      cache,
	}
}

type CategoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ParentID    *int64 `json:"parent_id"`
	Status      string `json:"status"`
	IsFinal     bool   `json:"is_final"`
	CreatedByID int64  `json:"created_by_id"`
}

type ListCategoriesInput struct {
	ParentID     *int64
	NameLike     string
	AttributeIDs []int64
}

type CategoryInput struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
	IsFinal  bool   `json:"is_final"`
}

type SchemaLinkInput struct {
	AttributeID int64 `json:"attribute_id"`
	IsRequired  bool  `json:"is_required"`
}

func toCategoryDTO(c model.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		ParentID:    c.ParentID,
		Status:      string(c.Status),
		IsFinal:     c.IsFinal,
		CreatedByID: c.CreatedByID,
	}
}

func toCategoryDTOs(items []model.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(items))
	for _, c := range items {
		out = append(out, toCategoryDTO(c))
	}
	return out
}

// 承認済みのみ。条件なしならルート（parent_id指定ならその子）。
func (u *CategoryUsecase) List(ctx context.Context, in ListCategoriesInput) ([]CategoryDTO, error) {
	approved := model.CategoryStatusApproved
	q := repo.CategoryListQuery{
		ParentID:     in.ParentID,
		NameLike:     strings.TrimSpace(in.NameLike),
		AttributeIDs: in.AttributeIDs,
		Status:       &approved,
	}
	plain := q.NameLike == "" && len(q.AttributeIDs) == 0
	if plain && q.ParentID == nil {
		q.RootOnly = true
	}

	// 検索条件なしの一覧だけキャッシュする
	var key string
	if plain {
		key = "roots"
		if q.ParentID != nil {
			key = fmt.Sprintf("children:%d", *q.ParentID)
		}
		var cached []CategoryDTO
		if hit, err := u.cache.Get(ctx, cacheNSCategories, key, &cached); err != nil {
			zap.L().Warn("category cache get failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	items, err := u.categories.List(ctx, q)
	if err != nil {
		return nil, dbError(err)
	}
	out := toCategoryDTOs(items)
	if plain {
		if err := u.cache.Set(ctx, cacheNSCategories, key, out); err != nil {
			zap.L().Warn("category cache set failed", zap.Error(err))
		}
	}
	return out, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, id int64) (CategoryDTO, error) {
	c, err := u.findApproved(ctx, id)
	if err != nil {
		return CategoryDTO{}, err
	}
	return toCategoryDTO(c), nil
}

// 自分を除く承認済みの子孫
func (u *CategoryUsecase) Descendants(ctx context.Context, id int64) ([]CategoryDTO, error) {
	if _, err := u.findApproved(ctx, id); err != nil {
		return nil, err
	}
	ids, err := u.categories.DescendantIDs(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	out := []CategoryDTO{}
	for _, d := range ids[1:] {
		c, err := u.categories.FindByID(ctx, d)
		if err != nil {
			return nil, dbError(err)
		}
		if c.Status == model.CategoryStatusApproved {
			out = append(out, toCategoryDTO(c))
		}
	}
	return out, nil
}

// 農家の提案はPROCESS、モデレーター/管理者はそのままAPPROVED。
func (u *CategoryUsecase) Create(ctx context.Context, actor Actor, in CategoryInput) (CategoryDTO, error) {
	if err := requireActor(actor); err != nil {
		return CategoryDTO{}, err
	}
	name, err := validateCategoryName(in.Name)
	if err != nil {
		return CategoryDTO{}, err
	}
	if in.ParentID != nil {
		if err := u.checkParent(ctx, *in.ParentID); err != nil {
			return CategoryDTO{}, err
		}
	}

	status := model.CategoryStatusProcess
	if actor.CanModerate() {
		status = model.CategoryStatusApproved
	}
	c := &model.Category{
		Name:        name,
		ParentID:    in.ParentID,
		Status:      status,
		IsFinal:     in.IsFinal,
		CreatedByID: actor.ID,
	}
	if err := u.categories.Create(ctx, c); err != nil {
		return CategoryDTO{}, dbError(err)
	}
	if status == model.CategoryStatusApproved {
		u.invalidate(ctx, cacheNSCategories)
	}
	return toCategoryDTO(*c), nil
}

func (u *CategoryUsecase) Update(ctx context.Context, actor Actor, id int64, in CategoryInput) (CategoryDTO, error) {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return CategoryDTO{}, err
	}
	name, err := validateCategoryName(in.Name)
	if err != nil {
		return CategoryDTO{}, err
	}
	c, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return CategoryDTO{}, NewHTTPError(http.StatusNotFound, "category not found")
	}
	if err != nil {
		return CategoryDTO{}, dbError(err)
	}

	if in.ParentID != nil {
		//自分や子孫を親にはできない
		desc, err := u.categories.DescendantIDs(ctx, id)
		if err != nil {
			return CategoryDTO{}, dbError(err)
		}
		for _, d := range desc {
			if d == *in.ParentID {
				return CategoryDTO{}, NewHTTPError(http.StatusBadRequest, "parent would create a cycle")
			}
		}
		if err := u.checkParent(ctx, *in.ParentID); err != nil {
			return CategoryDTO{}, err
		}
	}
	//子がいるカテゴリは最下層にできない
	if in.IsFinal && !c.IsFinal {
		n, err := u.categories.CountChildren(ctx, id)
		if err != nil {
			return CategoryDTO{}, dbError(err)
		}
		if n > 0 {
			return CategoryDTO{}, NewHTTPError(http.StatusBadRequest, "category has children")
		}
	}

	c.Name = name
	c.ParentID = in.ParentID
	c.IsFinal = in.IsFinal
	if err := u.categories.Update(ctx, c); err != nil {
		return CategoryDTO{}, dbError(err)
	}
	u.invalidate(ctx, cacheNSCategories)
	u.invalidate(ctx, cacheNSSchema)
	return toCategoryDTO(c), nil
}

// 子カテゴリや商品があれば削除しない
func (u *CategoryUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return err
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "category not found")
			}
			return err
		}
		n, err := r.Categories().CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return NewHTTPError(http.StatusConflict, "category has children")
		}
		n, err = r.Products().CountByCategoryID(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return NewHTTPError(http.StatusConflict, "category has products")
		}
		return r.Categories().Delete(ctx, id)
	})
	if err != nil {
		return txError(err)
	}
	u.invalidate(ctx, cacheNSCategories)
	u.invalidate(ctx, cacheNSSchema)
	return nil
}

// 承認待ち一覧
func (u *CategoryUsecase) Pending(ctx context.Context, actor Actor) ([]CategoryDTO, error) {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return nil, err
	}
	st := model.CategoryStatusProcess
	items, err := u.categories.List(ctx, repo.CategoryListQuery{Status: &st})
	if err != nil {
		return nil, dbError(err)
	}
	return toCategoryDTOs(items), nil
}

func (u *CategoryUsecase) Approve(ctx context.Context, actor Actor, id int64) (CategoryDTO, error) {
	return u.moderate(ctx, actor, id, model.CategoryStatusApproved, model.AuditActionApproveCategory)
}

func (u *CategoryUsecase) Reject(ctx context.Context, actor Actor, id int64) (CategoryDTO, error) {
	return u.moderate(ctx, actor, id, model.CategoryStatusRejected, model.AuditActionRejectCategory)
}

// PROCESSからのみ変更できる
func (u *CategoryUsecase) moderate(ctx context.Context, actor Actor, id int64, to model.CategoryStatus, action model.AuditAction) (CategoryDTO, error) {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return CategoryDTO{}, err
	}
	var out CategoryDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "category not found")
		}
		if err != nil {
			return err
		}
		if c.Status != model.CategoryStatusProcess {
			return NewHTTPError(http.StatusBadRequest, "category is not pending")
		}
		before := toCategoryDTO(c)
		if err := r.Categories().UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		c.Status = to
		out = toCategoryDTO(c)
		return writeAudit(ctx, r, actor.ID, action, model.AuditResourceCategory, id, before, out)
	})
	if err != nil {
		return CategoryDTO{}, txError(err)
	}
	u.invalidate(ctx, cacheNSCategories)
	return out, nil
}

// 祖先を含めた実効スキーマ
func (u *CategoryUsecase) Schema(ctx context.Context, id int64) ([]SchemaAttribute, error) {
	if _, err := u.findApproved(ctx, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d", id)
	var cached []SchemaAttribute
	if hit, err := u.cache.Get(ctx, cacheNSSchema, key, &cached); err != nil {
		zap.L().Warn("schema cache get failed", zap.Error(err))
	} else if hit {
		return cached, nil
	}

	schema, err := resolveSchema(ctx, u.categories, u.links, u.attributes, id)
	if err != nil {
		return nil, dbError(err)
	}
	if err := u.cache.Set(ctx, cacheNSSchema, key, schema); err != nil {
		zap.L().Warn("schema cache set failed", zap.Error(err))
	}
	return schema, nil
}

// カテゴリ自身のリンクを置き換える（祖先のリンクはそのまま）
func (u *CategoryUsecase) ReplaceSchema(ctx context.Context, actor Actor, id int64, in []SchemaLinkInput) ([]SchemaAttribute, error) {
	if err := requireRole(actor, model.RoleModerator, model.RoleAdmin); err != nil {
		return nil, err
	}

	var out []SchemaAttribute
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "category not found")
			}
			return err
		}

		links := make([]model.CategoryAttribute, 0, len(in))
		seen := map[int64]bool{}
		for _, l := range in {
			if seen[l.AttributeID] {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("duplicate attribute_id: %d", l.AttributeID))
			}
			seen[l.AttributeID] = true
			if _, err := r.Attributes().FindByID(ctx, l.AttributeID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("attribute not found: %d", l.AttributeID))
				}
				return err
			}
			links = append(links, model.CategoryAttribute{AttributeID: l.AttributeID, IsRequired: l.IsRequired})
		}
		if err := r.CategoryAttributes().ReplaceForCategory(ctx, id, links); err != nil {
			return err
		}

		schema, err := resolveSchema(ctx, r.Categories(), r.CategoryAttributes(), r.Attributes(), id)
		if err != nil {
			return err
		}
		out = schema
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	u.invalidate(ctx, cacheNSSchema)
	return out, nil
}

func (u *CategoryUsecase) findApproved(ctx context.Context, id int64) (model.Category, error) {
	c, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "category not found")
	}
	if err != nil {
		return model.Category{}, dbError(err)
	}
	if c.Status != model.CategoryStatusApproved {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c, nil
}

// 親は存在して承認済みで、最下層ではないこと
func (u *CategoryUsecase) checkParent(ctx context.Context, parentID int64) error {
	p, err := u.categories.FindByID(ctx, parentID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusBadRequest, "parent category not found")
	}
	if err != nil {
		return dbError(err)
	}
	if p.Status != model.CategoryStatusApproved {
		return NewHTTPError(http.StatusBadRequest, "parent category is not approved")
	}
	if p.IsFinal {
		return NewHTTPError(http.StatusBadRequest, "parent category is final")
	}
	return nil
}

func (u *CategoryUsecase) invalidate(ctx context.Context, ns string) {
	if err := u.cache.Invalidate(ctx, ns); err != nil {
		zap.L().Warn("cache invalidate failed", zap.String("ns", ns), zap.Error(err))
	}
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if utf8.RuneCountInString(name) > 255 {
		return "", NewHTTPError(http.StatusBadRequest, "name too long")
	}
	return name, nil
}
