package model

import "time"

// 承認、明細ステータス更新など。
type AuditAction string

const (
	//カテゴリを承認した操作。
	AuditActionApproveCategory AuditAction = "APPROVE_CATEGORY"
	//カテゴリを却下した操作。
	AuditActionRejectCategory AuditAction = "REJECT_CATEGORY"
	//注文明細のステータスを進めた操作。
	AuditActionAdvanceLineStatus AuditAction = "ADVANCE_LINE_STATUS"
	//ユーザーのロールを変更した操作。
	AuditActionChangeUserRole AuditAction = "CHANGE_USER_ROLE"
	//ユーザーを削除した操作。
	AuditActionDeleteUser AuditAction = "DELETE_USER"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceCategory  AuditResourceType = "category"
	AuditResourceOrderItem AuditResourceType = "order_item"
	AuditResourceUser      AuditResourceType = "user"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（モデレーター、管理者、農家）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
