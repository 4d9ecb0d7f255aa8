package repository

import (
	"context"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SelfHarvestingGormRepository struct {
	db *gorm.DB
}

func NewSelfHarvestingGormRepository(db *gorm.DB) *SelfHarvestingGormRepository {
	return &SelfHarvestingGormRepository{db: db}
}

func (r *SelfHarvestingGormRepository) Create(ctx context.Context, sh *model.SelfHarvesting) error {
	return r.db.WithContext(ctx).Create(sh).Error
}

func (r *SelfHarvestingGormRepository) FindByID(ctx context.Context, id int64) (model.SelfHarvesting, error) {
	var sh model.SelfHarvesting
	if err := r.db.WithContext(ctx).First(&sh, id).Error; err != nil {
		return model.SelfHarvesting{}, notFound(err)
	}
	return sh, nil
}

func (r *SelfHarvestingGormRepository) List(ctx context.Context, q repo.SelfHarvestingQuery) ([]model.SelfHarvesting, error) {
	tx := r.db.WithContext(ctx).Model(&model.SelfHarvesting{})
	if q.FarmerID != nil {
		tx = tx.Where("farmer_id = ?", *q.FarmerID)
	}
	if q.ProductID != nil {
		tx = tx.Where("product_id = ?", *q.ProductID)
	}
	if q.From != nil {
		tx = tx.Where("date_time >= ?", *q.From)
	}
	var items []model.SelfHarvesting
	if err := tx.Order("date_time asc").Order("id asc").Find(&items).Error; err != nil {
		return []model.SelfHarvesting{}, err
	}
	return items, nil
}

func (r *SelfHarvestingGormRepository) Update(ctx context.Context, sh model.SelfHarvesting) error {
	res := r.db.WithContext(ctx).Model(&model.SelfHarvesting{}).
		Where("id = ?", sh.ID).
		Updates(map[string]any{
			"name":        sh.Name,
			"description": sh.Description,
			"date_time":   sh.DateTime,
			"location":    sh.Location,
			"product_id":  sh.ProductID,
		})
	return affected(res)
}

// 予約も一緒に消す
func (r *SelfHarvestingGormRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("self_harvesting_id = ?", id).Delete(&model.SelfHarvestingVisit{}).Error; err != nil {
		return err
	}
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SelfHarvesting{}))
}

func (r *SelfHarvestingGormRepository) AddVisitor(ctx context.Context, selfHarvestingID int64, userID int64) error {
	v := model.SelfHarvestingVisit{UserID: userID, SelfHarvestingID: selfHarvestingID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&v).Error
}

func (r *SelfHarvestingGormRepository) RemoveVisitor(ctx context.Context, selfHarvestingID int64, userID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("self_harvesting_id = ? AND user_id = ?", selfHarvestingID, userID).
		Delete(&model.SelfHarvestingVisit{}))
}

func (r *SelfHarvestingGormRepository) ListVisitedByUser(ctx context.Context, userID int64) ([]model.SelfHarvesting, error) {
	var items []model.SelfHarvesting
	err := r.db.WithContext(ctx).
		Where("id IN (SELECT self_harvesting_id FROM self_harvesting_visits WHERE user_id = ?)", userID).
		Order("date_time asc").
		Find(&items).Error
	if err != nil {
		return []model.SelfHarvesting{}, err
	}
	return items, nil
}

func (r *SelfHarvestingGormRepository) ListVisitors(ctx context.Context, selfHarvestingID int64) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("id IN (SELECT user_id FROM self_harvesting_visits WHERE self_harvesting_id = ?)", selfHarvestingID).
		Order("id asc").
		Find(&users).Error
	if err != nil {
		return []model.User{}, err
	}
	return users, nil
}
