package db

import (
	"context"
	"errors"
	"fmt"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedCategory struct {
	name     string
	final    bool
	children []seedCategory
	// 属性名 -> 必須か
	schema map[string]bool
}

var seedAttributes = []model.Attribute{
	{Name: "Price/kg", ValueType: model.ValueTypePricePerKg},
	{Name: "Price/piece", ValueType: model.ValueTypePricePerPiece},
	{Name: "Quantity", ValueType: model.ValueTypeQuantity},
	{Name: "Place", ValueType: model.ValueTypePlace},
	{Name: "Harvest date", ValueType: model.ValueTypeDate},
	{Name: "Weight", ValueType: model.ValueTypeWeight},
	{Name: "Organic", ValueType: model.ValueTypeAvailable},
}

var seedCategories = []seedCategory{
	{
		name:   "Vegetables",
		schema: map[string]bool{"Quantity": true, "Place": false},
		children: []seedCategory{
			{name: "Tomatoes", final: true, schema: map[string]bool{"Price/kg": true, "Harvest date": false}},
			{name: "Cabbage", final: true, schema: map[string]bool{"Price/piece": true, "Weight": false}},
		},
	},
	{
		name:   "Fruits",
		schema: map[string]bool{"Quantity": true, "Organic": false},
		children: []seedCategory{
			{name: "Apples", final: true, schema: map[string]bool{"Price/kg": true}},
			{name: "Melons", final: true, schema: map[string]bool{"Price/piece": true, "Weight": false}},
		},
	},
}

// Seed は管理者アカウントとデモ用のカテゴリ・属性・スキーマを入れる。何度実行してもよい。
func Seed(ctx context.Context, gdb *gorm.DB, cfg config.Config) error {
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, err := seedAdmin(tx, cfg)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}

		attrs := map[string]int64{}
		for _, a := range seedAttributes {
			row := a
			if err := tx.Where("name = ?", a.Name).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed attribute %s: %w", a.Name, err)
			}
			attrs[a.Name] = row.ID
		}

		for _, c := range seedCategories {
			if err := seedCategoryTree(tx, admin.ID, nil, c, attrs); err != nil {
				return err
			}
		}
		zap.L().Info("seed finished", zap.Int64("admin_id", admin.ID))
		return nil
	})
}

func seedAdmin(tx *gorm.DB, cfg config.Config) (model.User, error) {
	var admin model.User
	err := tx.Where("username = ?", cfg.AdminUsername).First(&admin).Error
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, err
	}
	if cfg.AdminPassword == "" {
		return model.User{}, errors.New("ADMIN_PASSWORD is required")
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cost)
	if err != nil {
		return model.User{}, err
	}
	admin = model.User{
		Username:     cfg.AdminUsername,
		FirstName:    "Admin",
		LastName:     "Admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if cfg.AdminEmail != "" {
		email := cfg.AdminEmail
		admin.Email = &email
	}
	if err := tx.Create(&admin).Error; err != nil {
		return model.User{}, err
	}
	return admin, nil
}

func seedCategoryTree(tx *gorm.DB, adminID int64, parentID *int64, c seedCategory, attrs map[string]int64) error {
	row := model.Category{
		Name:        c.name,
		ParentID:    parentID,
		Status:      model.CategoryStatusApproved,
		IsFinal:     c.final,
		CreatedByID: adminID,
	}
	q := tx.Where("name = ?", c.name)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if err := q.FirstOrCreate(&row).Error; err != nil {
		return fmt.Errorf("seed category %s: %w", c.name, err)
	}

	for name, required := range c.schema {
		link := model.CategoryAttribute{CategoryID: row.ID, AttributeID: attrs[name], IsRequired: required}
		if err := tx.Where("category_id = ? AND attribute_id = ?", link.CategoryID, link.AttributeID).
			FirstOrCreate(&link).Error; err != nil {
			return fmt.Errorf("seed schema %s/%s: %w", c.name, name, err)
		}
	}

	for _, child := range c.children {
		if err := seedCategoryTree(tx, adminID, &row.ID, child, attrs); err != nil {
			return err
		}
	}
	return nil
}
