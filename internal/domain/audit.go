package domain

import "time"

type AuditAction string

const (
	AuditBook            AuditAction = "BOOK"
	AuditModify          AuditAction = "MODIFY"
	AuditCancel          AuditAction = "CANCEL"
	AuditSetQuota        AuditAction = "SET_QUOTA"
	AuditSetMonthlyQuota AuditAction = "SET_MONTHLY_QUOTA"
	AuditAuthRejected    AuditAction = "AUTH_REJECTED"
)

type AuditEntry struct {
	ID        string         `json:"id"`
	ActorType Role           `json:"actor_type"`
	ActorID   string         `json:"actor_id"`
	Action    AuditAction    `json:"action"`
	Details   map[string]any `json:"details"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
