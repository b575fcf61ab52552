// Package cache は Redis の Lua スクリプトによるアトミック操作を提供します。
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	setNXScript = redis.NewScript(`
local result = redis.call('SETNX', KEYS[1], ARGV[1])
if result == 1 then
    return redis.call('EXPIRE', KEYS[1], ARGV[2])
else
    return 0
end
`)

	incrScript = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2], 'NX') then
    return tonumber(ARGV[1])
else
    return redis.call('INCR', KEYS[1])
end
`)

	rateLimitScript = redis.NewScript(`
if redis.call('SET', KEYS[1], 1, 'EX', ARGV[2], 'NX') then
    return 1
else
    if tonumber(redis.call('GET', KEYS[1])) >= tonumber(ARGV[1]) then
        return 0
    else
        return redis.call('INCR', KEYS[1])
    end
end
`)
)

// Scripts はロード済みスクリプトと Redis クライアントを保持します。
// プロセス起動時に LoadScripts で1度だけ作成し、以降は使い回します。
type Scripts struct {
	client redis.UniversalClient
}

// LoadScripts は全スクリプトを SCRIPT LOAD し、Scripts を返します。
func LoadScripts(ctx context.Context, client redis.UniversalClient) (*Scripts, error) {
	for name, script := range map[string]*redis.Script{
		"setnx":      setNXScript,
		"incr":       incrScript,
		"rate_limit": rateLimitScript,
	} {
		if err := script.Load(ctx, client).Err(); err != nil {
			return nil, fmt.Errorf("failed to load %s script: %w", name, err)
		}
	}
	return &Scripts{client: client}, nil
}

// SetNX は key が存在しない場合のみ value を ttl 付きで保存します。
func (s *Scripts) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	n, err := setNXScript.Run(ctx, s.client, []string{key}, value, seconds(ttl)).Int64()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return n == 1, nil
}

// Incr は key をインクリメントします。key が存在しない場合は ttl 付きで 1 に初期化します。
func (s *Scripts) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrScript.Run(ctx, s.client, []string{key}, 1, seconds(ttl)).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return n, nil
}

// RateLimited は window 内の呼び出し回数を数えます。
// limit に達している場合は 0、それ以外は現在の回数を返します。
func (s *Scripts) RateLimited(ctx context.Context, key string, limit int, window time.Duration) (int64, error) {
	n, err := rateLimitScript.Run(ctx, s.client, []string{key}, limit, seconds(window)).Int64()
	if err != nil {
		return 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return n, nil
}

// TTL はキーの残り有効期間を返します。
func (s *Scripts) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

// Reset はカウンターを削除します。
func (s *Scripts) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func seconds(d time.Duration) int64 {
	sec := int64(d / time.Second)
	if sec < 1 {
		sec = 1
	}
	return sec
}
