package usecase

import (
	"context"
	"net/http"
	"strings"

	"farmmarket/internal/domain/model"
	repo "farmmarket/internal/repository"
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogListInput struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         string
	To           string
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	PageOutput
}

// 監査ログ一覧（管理者のみ）
func (u *AuditLogUsecase) List(ctx context.Context, actor Actor, in AuditLogListInput) (AuditLogListOutput, error) {
	if err := requireRole(actor, model.RoleAdmin); err != nil {
		return AuditLogListOutput{}, err
	}
	if err := checkPaging(in.Page, in.Limit); err != nil {
		return AuditLogListOutput{}, err
	}

	f := repo.AuditLogFilter{
		ActorUserID: in.ActorUserID,
		ResourceID:  in.ResourceID,
		Page:        in.Page,
		Limit:       in.Limit,
	}
	if a := strings.TrimSpace(in.Action); a != "" {
		action := model.AuditAction(a)
		f.Action = &action
	}
	if rt := strings.TrimSpace(in.ResourceType); rt != "" {
		resType := model.AuditResourceType(rt)
		f.ResourceType = &resType
	}
	var ok bool
	if f.CreatedFrom, ok = parseDateTimeRFC3339(in.From); !ok {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid from")
	}
	if f.CreatedTo, ok = parseDateTimeRFC3339(in.To); !ok {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to")
	}

	logs, total, err := u.logs.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, dbError(err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return AuditLogListOutput{Items: logs, PageOutput: PageOutput{Page: in.Page, Limit: in.Limit, Total: total}}, nil
}
