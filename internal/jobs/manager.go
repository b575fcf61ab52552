package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/yourusername/user-kit/internal/config"
	"github.com/yourusername/user-kit/internal/logger"
)

// Manager はタスクの投入とワーカーの起動を担います。
// QueueRedisURL が空の場合はキューを使わず、投入時にその場で処理します。
type Manager struct {
	client  *asynq.Client
	server  *asynq.Server
	mux     *asynq.ServeMux
	auditor Auditor
	logger  logger.Logger
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, auditor Auditor, log logger.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if auditor == nil {
		return nil, errors.New("auditor is nil")
	}

	manager := &Manager{
		auditor: auditor,
		logger:  log.Component("jobs"),
	}
	if cfg.QueueRedisURL == "" {
		return manager, nil
	}

	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	manager.client = asynq.NewClient(opt)
	manager.server = asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				QueueUser: 1,
			},
		},
	)
	manager.mux = asynq.NewServeMux()
	manager.mux.HandleFunc(TaskTypeLoginAudit, manager.handleLoginAudit)
	return manager, nil
}

// Inline はキューを使わずに処理するかどうかを返します。
func (m *Manager) Inline() bool {
	return m.client == nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	if m.Inline() {
		return
	}
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error().Err(err).Msg("asynq server stopped with error")
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.Inline() {
		return nil
	}
	m.server.Shutdown()
	return m.client.Close()
}

// EnqueueLoginAudit はログイン記録タスクを投入します。
func (m *Manager) EnqueueLoginAudit(ctx context.Context, payload LoginAuditPayload) error {
	if payload.UserID == 0 {
		return fmt.Errorf("payload.UserID is required")
	}
	if m.Inline() {
		return m.audit(ctx, payload)
	}

	task, err := NewLoginAuditTask(payload)
	if err != nil {
		return err
	}
	info, err := m.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue login audit: %w", err)
	}
	m.logger.Debug().Str("task_id", info.ID).Int64("user_id", payload.UserID).Msg("login audit enqueued")
	return nil
}
