package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) error
	FindByID(ctx context.Context, id int64) (model.Review, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.Review, error)
	Update(ctx context.Context, r model.Review) error
	Delete(ctx context.Context, id int64) error
	//平均と件数
	AverageRating(ctx context.Context, productID int64) (float64, int64, error)
}
