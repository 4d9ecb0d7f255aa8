package repository

import (
	"context"

	"farmmarket/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（username/email重複はErrConflict）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page int, limit int) ([]model.User, int64, error)
	//商品を1つ以上持つ農家
	ListFarmersWithProducts(ctx context.Context) ([]model.User, error)
	// ユーザー情報の更新
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, userID int64) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
