package repository

import (
	"context"
	"time"

	"farmmarket/internal/domain/model"
)

type SelfHarvestingQuery struct {
	FarmerID  *int64
	ProductID *int64
	//この時刻以降の開催のみ
	From *time.Time
}

type SelfHarvestingRepository interface {
	Create(ctx context.Context, sh *model.SelfHarvesting) error
	FindByID(ctx context.Context, id int64) (model.SelfHarvesting, error)
	List(ctx context.Context, q SelfHarvestingQuery) ([]model.SelfHarvesting, error)
	Update(ctx context.Context, sh model.SelfHarvesting) error
	Delete(ctx context.Context, id int64) error

	//参加予約（既にあれば何もしない）
	AddVisitor(ctx context.Context, selfHarvestingID int64, userID int64) error
	RemoveVisitor(ctx context.Context, selfHarvestingID int64, userID int64) error
	ListVisitedByUser(ctx context.Context, userID int64) ([]model.SelfHarvesting, error)
	ListVisitors(ctx context.Context, selfHarvestingID int64) ([]model.User, error)
}
