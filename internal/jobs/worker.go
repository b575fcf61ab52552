// Package jobs は asynq を使った非同期タスクの投入と処理を提供します。
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Auditor はログイン記録の書き込み先です。
type Auditor interface {
	TouchLogin(ctx context.Context, userID int64, ip string, at time.Time) error
}

// NewLoginAuditTask はログイン記録タスクを作成します。
func NewLoginAuditTask(payload LoginAuditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLoginAudit, body, asynq.Queue(QueueUser), asynq.MaxRetry(3)), nil
}

func (m *Manager) handleLoginAudit(ctx context.Context, task *asynq.Task) error {
	var payload LoginAuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// 再試行しても成功しないため SkipRetry を付ける
		return fmt.Errorf("invalid login audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == 0 {
		return fmt.Errorf("missing userId in payload: %w", asynq.SkipRetry)
	}
	return m.audit(ctx, payload)
}

func (m *Manager) audit(ctx context.Context, payload LoginAuditPayload) error {
	if err := m.auditor.TouchLogin(ctx, payload.UserID, payload.IP, payload.At); err != nil {
		return err
	}
	m.logger.Debug().Int64("user_id", payload.UserID).Str("ip", payload.IP).Msg("login recorded")
	return nil
}
