package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

type ReviewUsecase struct {
	reviews  repo.ReviewRepository
	products repo.ProductRepository
	users    repo.UserRepository
}

func NewReviewUsecase(reviews repo.ReviewRepository, products repo.ProductRepository, users repo.UserRepository) *ReviewUsecase {
	return &ReviewUsecase{reviews: reviews, products: products, users: users}
}

type ReviewDTO struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

type RatingDTO struct {
	ProductID int64   `json:"product_id"`
	Average   float64 `json:"average"`
	Count     int64   `json:"count"`
}

func (u *ReviewUsecase) ListByProduct(ctx context.Context, productID int64) ([]ReviewDTO, error) {
	if err := u.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	items, err := u.reviews.ListByProductID(ctx, productID)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]ReviewDTO, 0, len(items))
	for _, rv := range items {
		out = append(out, toReviewDTO(rv))
	}
	return out, nil
}

func (u *ReviewUsecase) Get(ctx context.Context, id int64) (ReviewDTO, error) {
	rv, err := u.find(ctx, id)
	if err != nil {
		return ReviewDTO{}, err
	}
	return toReviewDTO(rv), nil
}

// 平均は小数2桁に丸める。0件なら0。
func (u *ReviewUsecase) Rating(ctx context.Context, productID int64) (RatingDTO, error) {
	if err := u.ensureProduct(ctx, productID); err != nil {
		return RatingDTO{}, err
	}
	avg, count, err := u.reviews.AverageRating(ctx, productID)
	if err != nil {
		return RatingDTO{}, dbError(err)
	}
	return RatingDTO{ProductID: productID, Average: math.Round(avg*100) / 100, Count: count}, nil
}

// 1ユーザー1商品につき1件
func (u *ReviewUsecase) Create(ctx context.Context, actor Actor, productID int64, in ReviewInput) (ReviewDTO, error) {
	if err := requireActor(actor); err != nil {
		return ReviewDTO{}, err
	}
	content, err := validateReview(in)
	if err != nil {
		return ReviewDTO{}, err
	}
	if err := u.ensureProduct(ctx, productID); err != nil {
		return ReviewDTO{}, err
	}
	user, err := u.users.FindByID(ctx, actor.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return ReviewDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return ReviewDTO{}, dbError(err)
	}

	rv := model.Review{
		ProductID: productID,
		UserID:    actor.ID,
		Username:  user.Username,
		Rating:    in.Rating,
		Content:   content,
	}
	if err := u.reviews.Create(ctx, &rv); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return ReviewDTO{}, NewHTTPError(http.StatusConflict, "already reviewed")
		}
		return ReviewDTO{}, dbError(err)
	}
	return toReviewDTO(rv), nil
}

// 本人のみ
func (u *ReviewUsecase) Update(ctx context.Context, actor Actor, id int64, in ReviewInput) (ReviewDTO, error) {
	if err := requireActor(actor); err != nil {
		return ReviewDTO{}, err
	}
	content, err := validateReview(in)
	if err != nil {
		return ReviewDTO{}, err
	}
	rv, err := u.find(ctx, id)
	if err != nil {
		return ReviewDTO{}, err
	}
	if rv.UserID != actor.ID {
		return ReviewDTO{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	rv.Rating = in.Rating
	rv.Content = content
	if err := u.reviews.Update(ctx, rv); err != nil {
		return ReviewDTO{}, dbError(err)
	}
	return toReviewDTO(rv), nil
}

// 本人、モデレーター、管理者
func (u *ReviewUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	rv, err := u.find(ctx, id)
	if err != nil {
		return err
	}
	if rv.UserID != actor.ID && !actor.CanModerate() {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if err := u.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "review not found")
		}
		return dbError(err)
	}
	return nil
}

func (u *ReviewUsecase) find(ctx context.Context, id int64) (model.Review, error) {
	rv, err := u.reviews.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Review{}, NewHTTPError(http.StatusNotFound, "review not found")
	}
	if err != nil {
		return model.Review{}, dbError(err)
	}
	return rv, nil
}

func (u *ReviewUsecase) ensureProduct(ctx context.Context, productID int64) error {
	_, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

func validateReview(in ReviewInput) (string, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return "", NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	content := strings.TrimSpace(in.Content)
	if utf8.RuneCountInString(content) > 255 {
		return "", NewHTTPError(http.StatusBadRequest, "content too long")
	}
	return content, nil
}

func toReviewDTO(rv model.Review) ReviewDTO {
	return ReviewDTO{
		ID:        rv.ID,
		ProductID: rv.ProductID,
		UserID:    rv.UserID,
		Username:  rv.Username,
		Rating:    rv.Rating,
		Content:   rv.Content,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
	}
}
