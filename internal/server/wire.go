package server

import (
	"farmmarket/internal/config"
	"farmmarket/internal/handler"
	infraRepo "farmmarket/internal/infra/repository"
	"farmmarket/internal/usecase"
	"farmmarket/internal/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewApp はRepository→Usecase→Handlerを組み立て、ルート登録済みのechoを返す。
func NewApp(cfg config.Config, gdb *gorm.DB, cache usecase.Cache, log *zap.Logger) *echo.Echo {
	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(gdb)
	rtRepo := infraRepo.NewRefreshTokenRepository(gdb)
	categoryRepo := infraRepo.NewCategoryGormRepository(gdb)
	linkRepo := infraRepo.NewCategoryAttributeGormRepository(gdb)
	attrRepo := infraRepo.NewAttributeGormRepository(gdb)
	valueRepo := infraRepo.NewAttributeValueGormRepository(gdb)
	productRepo := infraRepo.NewProductGormRepository(gdb)
	orderRepo := infraRepo.NewOrderGormRepository(gdb)
	itemRepo := infraRepo.NewOrderItemGormRepository(gdb)
	reviewRepo := infraRepo.NewReviewGormRepository(gdb)
	shRepo := infraRepo.NewSelfHarvestingGormRepository(gdb)
	auditRepo := infraRepo.NewAuditLogGormRepository(gdb)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)

	//Usecase
	authValidator := validator.NewAuthValidator(userRepo)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, authValidator)
	userUC := usecase.NewUserUsecase(cfg, userRepo, productRepo, rtRepo, txm, authValidator)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, linkRepo, attrRepo, productRepo, txm, cache)
	attrUC := usecase.NewAttributeUsecase(attrRepo, valueRepo, categoryRepo, productRepo, txm, cache)
	productUC := usecase.NewProductUsecase(productRepo, valueRepo, categoryRepo, attrRepo, inventoryRepo, txm)
	cartUC := usecase.NewCartUsecase(txm)
	orderUC := usecase.NewOrderUsecase(orderRepo, itemRepo)
	fulfilmentUC := usecase.NewFulfilmentUsecase(itemRepo, txm)
	adminOrderUC := usecase.NewAdminOrderUsecase(orderRepo, itemRepo)
	reviewUC := usecase.NewReviewUsecase(reviewRepo, productRepo, userRepo)
	shUC := usecase.NewSelfHarvestingUsecase(shRepo, productRepo)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	e := New(cfg, log)
	RegisterRoutes(e, cfg, userRepo, Handlers{
		Auth:           handler.NewAuthHandler(cfg, authUC),
		User:           handler.NewUserHandler(userUC),
		AdminUser:      handler.NewAdminUserHandler(cfg, userRepo, authUC, userUC),
		Category:       handler.NewCategoryHandler(categoryUC),
		Attribute:      handler.NewAttributeHandler(attrUC),
		Product:        handler.NewProductHandler(productUC),
		Cart:           handler.NewCartHandler(cartUC),
		Order:          handler.NewOrderHandler(orderUC, fulfilmentUC),
		AdminOrder:     handler.NewAdminOrderHandler(adminOrderUC),
		Review:         handler.NewReviewHandler(reviewUC),
		SelfHarvesting: handler.NewSelfHarvestingHandler(shUC),
		AuditLog:       handler.NewAuditLogHandler(auditUC),
	})
	return e
}
