package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

// 在庫（QUANTITY属性値）をロックして読む
func lockStock(ctx context.Context, r repo.TxRepos, productID int64) (model.AttributeValue, int64, error) {
	v, err := r.Inventory().FindStockForUpdate(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.AttributeValue{}, 0, NewHTTPError(http.StatusBadRequest, "product has no quantity attribute")
	}
	if err != nil {
		return model.AttributeValue{}, 0, err
	}
	return stockOf(v)
}

func stockOf(v model.AttributeValue) (model.AttributeValue, int64, error) {
	if v.Value == "" {
		return v, 0, nil
	}
	stock, err := model.ParseStock(v.Value)
	if err != nil {
		return model.AttributeValue{}, 0, NewHTTPError(http.StatusBadRequest, "invalid stock value")
	}
	return v, stock, nil
}

// 在庫をdeltaだけ動かす（負なら取り出し）。足りなければ "stock exceeded"。
func adjustStock(ctx context.Context, r repo.TxRepos, actorID, productID int64, orderID *int64, delta int64, reason model.StockReason) error {
	if delta == 0 {
		return nil
	}
	v, stock, err := lockStock(ctx, r, productID)
	if err != nil {
		return err
	}
	if delta > 0 && stock > math.MaxInt64-delta {
		return NewHTTPError(http.StatusBadRequest, "stock too large")
	}
	next := stock + delta
	if next < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}
	if err := r.Inventory().SetStock(ctx, v.ID, next); err != nil {
		return err
	}
	return r.Inventory().CreateMovement(ctx, model.StockMovement{
		ProductID:   productID,
		ActorUserID: actorID,
		OrderID:     orderID,
		Delta:       delta,
		Reason:      reason,
	})
}

// 農家による在庫値の直接設定。編集対象の属性値そのものをロックする。
func setStock(ctx context.Context, r repo.TxRepos, actorID, productID, valueID, newStock int64) error {
	locked, err := r.Inventory().FindValueForUpdate(ctx, valueID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "attribute value not found")
	}
	if err != nil {
		return err
	}
	v, stock, err := stockOf(locked)
	if err != nil {
		return err
	}
	if err := r.Inventory().SetStock(ctx, v.ID, newStock); err != nil {
		return err
	}
	if newStock == stock {
		return nil
	}
	return r.Inventory().CreateMovement(ctx, model.StockMovement{
		ProductID:   productID,
		ActorUserID: actorID,
		Delta:       newStock - stock,
		Reason:      model.StockReasonFarmerSet,
	})
}
