package main

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/user-kit/internal/config"
	"github.com/yourusername/user-kit/internal/jobs"
	"github.com/yourusername/user-kit/internal/logger"
)

// newRedisClient は URL から Redis クライアントを作成し、疎通を確認します。
func newRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// setupJobs はログイン記録のジョブマネージャーを作成します。
// QUEUE_REDIS_URL が未設定の場合はキューを使わず同期実行になります。
func setupJobs(cfg *config.Config, auditor jobs.Auditor, log logger.Logger) (*jobs.Manager, error) {
	manager, err := jobs.NewManager(cfg, auditor, log)
	if err != nil {
		return nil, err
	}
	if manager.Inline() {
		log.Info().Msg("QUEUE_REDIS_URL is empty, login audit runs inline")
	}
	return manager, nil
}
