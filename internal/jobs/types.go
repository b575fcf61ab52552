package jobs

import "time"

// タスク種別とキュー名
const (
	TaskTypeLoginAudit = "user:login-audit"
	QueueUser          = "user"
)

// LoginAuditPayload はログイン記録タスクのペイロードです。
type LoginAuditPayload struct {
	UserID int64     `json:"userId"`
	IP     string    `json:"ip"`
	At     time.Time `json:"at"`
}
