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

// 収穫体験イベント
type SelfHarvestingUsecase struct {
	events   repo.SelfHarvestingRepository
	products repo.ProductRepository
	now      func() time.Time
}

func NewSelfHarvestingUsecase(events repo.SelfHarvestingRepository, products repo.ProductRepository) *SelfHarvestingUsecase {
	return &SelfHarvestingUsecase{events: events, products: products, now: time.Now}
}

type SelfHarvestingDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Location    string    `json:"location"`
	FarmerID    int64     `json:"farmer_id"`
	ProductID   int64     `json:"product_id"`
}

type SelfHarvestingInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"date_time"`
	Location    string    `json:"location"`
	ProductID   int64     `json:"product_id"`
}

type ListSelfHarvestingsInput struct {
	FarmerID  *int64
	ProductID *int64
	// trueなら今後の開催のみ
	Upcoming bool
}

func (u *SelfHarvestingUsecase) List(ctx context.Context, in ListSelfHarvestingsInput) ([]SelfHarvestingDTO, error) {
	q := repo.SelfHarvestingQuery{FarmerID: in.FarmerID, ProductID: in.ProductID}
	if in.Upcoming {
		now := u.now()
		q.From = &now
	}
	items, err := u.events.List(ctx, q)
	if err != nil {
		return nil, dbError(err)
	}
	return toSelfHarvestingDTOs(items), nil
}

func (u *SelfHarvestingUsecase) Get(ctx context.Context, id int64) (SelfHarvestingDTO, error) {
	sh, err := u.find(ctx, id)
	if err != nil {
		return SelfHarvestingDTO{}, err
	}
	return toSelfHarvestingDTO(sh), nil
}

// 農家が自分の商品について作る。開催日時は未来。
func (u *SelfHarvestingUsecase) Create(ctx context.Context, actor Actor, in SelfHarvestingInput) (SelfHarvestingDTO, error) {
	if err := requireRole(actor, model.RoleFarmer); err != nil {
		return SelfHarvestingDTO{}, err
	}
	sh, err := u.validate(in)
	if err != nil {
		return SelfHarvestingDTO{}, err
	}
	if err := u.ensureOwnProduct(ctx, actor, in.ProductID); err != nil {
		return SelfHarvestingDTO{}, err
	}
	sh.FarmerID = actor.ID
	if err := u.events.Create(ctx, &sh); err != nil {
		return SelfHarvestingDTO{}, dbError(err)
	}
	return toSelfHarvestingDTO(sh), nil
}

// 作成した農家のみ
func (u *SelfHarvestingUsecase) Update(ctx context.Context, actor Actor, id int64, in SelfHarvestingInput) (SelfHarvestingDTO, error) {
	if err := requireActor(actor); err != nil {
		return SelfHarvestingDTO{}, err
	}
	cur, err := u.find(ctx, id)
	if err != nil {
		return SelfHarvestingDTO{}, err
	}
	if cur.FarmerID != actor.ID {
		return SelfHarvestingDTO{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	next, err := u.validate(in)
	if err != nil {
		return SelfHarvestingDTO{}, err
	}
	if next.ProductID != cur.ProductID {
		if err := u.ensureOwnProduct(ctx, actor, next.ProductID); err != nil {
			return SelfHarvestingDTO{}, err
		}
	}
	next.ID = cur.ID
	next.FarmerID = cur.FarmerID
	next.CreatedAt = cur.CreatedAt
	if err := u.events.Update(ctx, next); err != nil {
		return SelfHarvestingDTO{}, dbError(err)
	}
	return toSelfHarvestingDTO(next), nil
}

// 作成した農家か管理者
func (u *SelfHarvestingUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	cur, err := u.find(ctx, id)
	if err != nil {
		return err
	}
	if cur.FarmerID != actor.ID && !actor.IsAdmin() {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if err := u.events.Delete(ctx, id); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return dbError(err)
	}
	return nil
}

// 参加予約。2回目は何もしない。
func (u *SelfHarvestingUsecase) Visit(ctx context.Context, actor Actor, id int64) error {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return err
	}
	sh, err := u.find(ctx, id)
	if err != nil {
		return err
	}
	if !sh.DateTime.After(u.now()) {
		return NewHTTPError(http.StatusBadRequest, "event already started")
	}
	if err := u.events.AddVisitor(ctx, id, actor.ID); err != nil {
		return dbError(err)
	}
	return nil
}

// 予約取り消し。予約が無くても成功。
func (u *SelfHarvestingUsecase) Unvisit(ctx context.Context, actor Actor, id int64) error {
	if err := requireRole(actor, model.RoleUser); err != nil {
		return err
	}
	if _, err := u.find(ctx, id); err != nil {
		return err
	}
	if err := u.events.RemoveVisitor(ctx, id, actor.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return dbError(err)
	}
	return nil
}

func (u *SelfHarvestingUsecase) ListMine(ctx context.Context, actor Actor) ([]SelfHarvestingDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	items, err := u.events.ListVisitedByUser(ctx, actor.ID)
	if err != nil {
		return nil, dbError(err)
	}
	return toSelfHarvestingDTOs(items), nil
}

// 参加者一覧（作成した農家か管理者）
func (u *SelfHarvestingUsecase) Visitors(ctx context.Context, actor Actor, id int64) ([]UserDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	sh, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.FarmerID != actor.ID && !actor.IsAdmin() {
		return nil, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	users, err := u.events.ListVisitors(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return out, nil
}

func (u *SelfHarvestingUsecase) find(ctx context.Context, id int64) (model.SelfHarvesting, error) {
	sh, err := u.events.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.SelfHarvesting{}, NewHTTPError(http.StatusNotFound, "self-harvesting not found")
	}
	if err != nil {
		return model.SelfHarvesting{}, dbError(err)
	}
	return sh, nil
}

func (u *SelfHarvestingUsecase) ensureOwnProduct(ctx context.Context, actor Actor, productID int64) error {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return dbError(err)
	}
	if p.FarmerID != actor.ID {
		return NewHTTPError(http.StatusForbidden, "not your product")
	}
	return nil
}

func (u *SelfHarvestingUsecase) validate(in SelfHarvestingInput) (model.SelfHarvesting, error) {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	loc := strings.TrimSpace(in.Location)

	switch {
	case name == "" || utf8.RuneCountInString(name) > 50:
		return model.SelfHarvesting{}, NewHTTPError(http.StatusBadRequest, "invalid name")
	case utf8.RuneCountInString(desc) > 255:
		return model.SelfHarvesting{}, NewHTTPError(http.StatusBadRequest, "description too long")
	case loc == "" || utf8.RuneCountInString(loc) > 100:
		return model.SelfHarvesting{}, NewHTTPError(http.StatusBadRequest, "invalid location")
	case in.ProductID <= 0:
		return model.SelfHarvesting{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	case !in.DateTime.After(u.now()):
		return model.SelfHarvesting{}, NewHTTPError(http.StatusBadRequest, "date_time must be in the future")
	}
	return model.SelfHarvesting{
		Name:        name,
		Description: desc,
		DateTime:    in.DateTime,
		Location:    loc,
		ProductID:   in.ProductID,
	}, nil
}

func toSelfHarvestingDTOs(items []model.SelfHarvesting) []SelfHarvestingDTO {
	out := make([]SelfHarvestingDTO, 0, len(items))
	for _, sh := range items {
		out = append(out, toSelfHarvestingDTO(sh))
	}
	return out
}

func toSelfHarvestingDTO(sh model.SelfHarvesting) SelfHarvestingDTO {
	return SelfHarvestingDTO{
		ID:          sh.ID,
		Name:        sh.Name,
		Description: sh.Description,
		DateTime:    sh.DateTime,
		Location:    sh.Location,
		FarmerID:    sh.FarmerID,
		ProductID:   sh.ProductID,
	}
}
