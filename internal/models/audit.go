package models

import "time"

// Audit actions. Enrollment mutations carry their own actions because the
// ledger is the system of record for a student's placement history.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionPromotion      = "PROMOTION"
	AuditActionReAdmission    = "RE_ADMISSION"
	AuditActionSettingUpdate  = "SETTING_UPDATE"
	AuditActionFeeCharge      = "FEE_CHARGE"
)

// AuditLog is one audit trail row. Old and new values are raw JSON blobs;
// the promotion service stores the created enrollment, the middleware a
// request summary.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
