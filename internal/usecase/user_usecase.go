package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

type UserUsecase struct {
	cfg       config.Config
	users     repo.UserRepository
	products  repo.ProductRepository
	rtRepo    repo.RefreshTokenRepository
	tx        repo.TransactionManager
	validator AuthValidator
}

func NewUserUsecase(
	cfg config.Config,
	users repo.UserRepository,
	products repo.ProductRepository,
	rtRepo repo.RefreshTokenRepository,
	tx repo.TransactionManager,
	validator AuthValidator,
) *UserUsecase {
	return &UserUsecase{cfg: cfg, users: users, products: products, rtRepo: rtRepo, tx: tx, validator: validator}
}

type UserListOutput struct {
	Items []UserDTO `json:"items"`
	PageOutput
}

// nilの項目は変更しない
type UpdateUserInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
}

func (u *UserUsecase) List(ctx context.Context, page, limit int) (UserListOutput, error) {
	if err := checkPaging(page, limit); err != nil {
		return UserListOutput{}, err
	}
	users, total, err := u.users.List(ctx, page, limit)
	if err != nil {
		return UserListOutput{}, dbError(err)
	}
	out := UserListOutput{Items: make([]UserDTO, 0, len(users)), PageOutput: PageOutput{Page: page, Limit: limit, Total: total}}
	for i := range users {
		out.Items = append(out.Items, toUserDTO(&users[i]))
	}
	return out, nil
}

func (u *UserUsecase) Get(ctx context.Context, id int64) (UserDTO, error) {
	user, err := u.users.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return UserDTO{}, dbError(err)
	}
	return toUserDTO(user), nil
}

// 本人か管理者。ロール変更は管理者のみで、ADMINへの変更はできない。
func (u *UserUsecase) Update(ctx context.Context, actor Actor, id int64, in UpdateUserInput) (UserDTO, error) {
	if err := requireActor(actor); err != nil {
		return UserDTO{}, err
	}
	if actor.ID != id && !actor.IsAdmin() {
		return UserDTO{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if in.Role != nil && !actor.IsAdmin() {
		return UserDTO{}, NewHTTPError(http.StatusForbidden, "only admin can change role")
	}
	if err := validateUserUpdate(in); err != nil {
		return UserDTO{}, err
	}

	var pwHash string
	if in.Password != nil {
		h, err := hashPassword(*in.Password, u.cfg.BcryptCost)
		if err != nil {
			return UserDTO{}, dbError(err)
		}
		pwHash = h
	}

	var out UserDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		before := toUserDTO(user)

		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.Email != nil {
			user.Email = optionalString(*in.Email)
		}
		if in.Phone != nil {
			user.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Address != nil {
			user.Address = strings.TrimSpace(*in.Address)
		}
		if pwHash != "" {
			user.PasswordHash = pwHash
		}

		roleChanged := false
		if in.Role != nil {
			newRole := model.Role(strings.ToUpper(strings.TrimSpace(*in.Role)))
			if !newRole.IsValid() || newRole == model.RoleAdmin {
				return NewHTTPError(http.StatusBadRequest, "invalid role")
			}
			if user.Role == model.RoleAdmin {
				return NewHTTPError(http.StatusForbidden, "cannot change admin role")
			}
			if newRole != user.Role {
				user.Role = newRole
				//古いロールのトークンは使えなくする
				user.TokenVersion++
				roleChanged = true
			}
		}

		if err := r.Users().Update(ctx, user); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "email already used")
			}
			return err
		}

		out = toUserDTO(user)
		if roleChanged {
			return writeAudit(ctx, r, actor.ID, model.AuditActionChangeUserRole, model.AuditResourceUser, user.ID, before, out)
		}
		return nil
	})
	if err != nil {
		return UserDTO{}, txError(err)
	}
	return out, nil
}

// 管理者のみ。管理者は削除できない。
func (u *UserUsecase) Delete(ctx context.Context, actor Actor, id int64) error {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return err
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		if user.Role == model.RoleAdmin {
			return NewHTTPError(http.StatusForbidden, "cannot delete admin")
		}
		if err := r.Users().Delete(ctx, id); err != nil {
			return err
		}
		return writeAudit(ctx, r, actor.ID, model.AuditActionDeleteUser, model.AuditResourceUser, id, toUserDTO(user), nil)
	})
	if err != nil {
		return txError(err)
	}
	if err := u.rtRepo.DeleteAllByUserID(ctx, id); err != nil {
		return dbError(err)
	}
	return nil
}

type AdminCreateUserInput struct {
	AuthRegisterRequest
}

// 管理者がUSER/FARMER/MODERATORを作る（ADMINはseedのみ）
func (u *UserUsecase) AdminCreate(ctx context.Context, actor Actor, in AdminCreateUserInput) (UserDTO, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return UserDTO{}, err
	}
	if err := u.validator.ValidateRegister(ctx, in.AuthRegisterRequest); err != nil {
		if errors.Is(err, ErrConflict) {
			return UserDTO{}, NewHTTPError(http.StatusConflict, "username or email already used")
		}
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(in.Role)))
	if role == "" {
		role = model.RoleUser
	}
	if !role.IsValid() || role == model.RoleAdmin {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	pwHash, err := hashPassword(in.Password, u.cfg.BcryptCost)
	if err != nil {
		return UserDTO{}, dbError(err)
	}
	user := &model.User{
		Username:     strings.TrimSpace(in.Username),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        optionalString(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: pwHash,
		Role:         role,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return UserDTO{}, NewHTTPError(http.StatusConflict, "username or email already used")
		}
		return UserDTO{}, dbError(err)
	}
	return toUserDTO(user), nil
}

// 商品を出している農家
func (u *UserUsecase) ListFarmers(ctx context.Context) ([]UserDTO, error) {
	users, err := u.users.ListFarmersWithProducts(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return out, nil
}

func (u *UserUsecase) ProductFarmer(ctx context.Context, productID int64) (UserDTO, error) {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return UserDTO{}, dbError(err)
	}
	return u.Get(ctx, p.FarmerID)
}

func validateUserUpdate(in UpdateUserInput) error {
	check := func(v *string, max int, name string) error {
		if v != nil && utf8.RuneCountInString(strings.TrimSpace(*v)) > max {
			return NewHTTPError(http.StatusBadRequest, name+" too long")
		}
		return nil
	}
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		return NewHTTPError(http.StatusBadRequest, "first_name is required")
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		return NewHTTPError(http.StatusBadRequest, "last_name is required")
	}
	for _, c := range []struct {
		v    *string
		max  int
		name string
	}{
		{in.FirstName, 50, "first_name"},
		{in.LastName, 50, "last_name"},
		{in.Email, 50, "email"},
		{in.Phone, 50, "phone"},
		{in.Address, 100, "address"},
	} {
		if err := check(c.v, c.max, c.name); err != nil {
			return err
		}
	}
	if in.Password != nil && (len(*in.Password) < 8 || len(*in.Password) > 32) {
		return NewHTTPError(http.StatusBadRequest, "password must be 8 to 32 characters")
	}
	return nil
}

// before/afterをJSONにして監査ログを書く
func writeAudit(ctx context.Context, r repo.TxRepos, actorID int64, action model.AuditAction, resType model.AuditResourceType, resID int64, before, after any) error {
	toJSON := func(v any) (string, error) {
		if v == nil {
			return "", nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := toJSON(before)
	if err != nil {
		return err
	}
	a, err := toJSON(after)
	if err != nil {
		return err
	}
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resType,
		ResourceID:   resID,
		BeforeJSON:   b,
		AfterJSON:    a,
	})
}
