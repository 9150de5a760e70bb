package xstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// 确保 *Redis 实现 Store 接口
var _ Store = (*Redis)(nil)

// Redis 是基于 go-redis 的存储实现，支持跨进程、跨主机的协调。
//
// Update 使用 WATCH/MULTI/EXEC 乐观事务：读取后若提交前有并发修改，
// EXEC 失败，本次调用报告 (false, nil)（冲突即未写入，见包文档）。
//
// 键布局：<存储名>/<collection>/<key>，不同存储名之间完全隔离。
type Redis struct {
	name   string
	client redis.UniversalClient
	closed atomic.Bool
}

// NewRedis 基于已初始化的 Redis 客户端创建存储。
// 客户端的生命周期由调用者管理，Close 不会关闭它。
func NewRedis(client redis.UniversalClient, name string) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &Redis{
		name:   name,
		client: client,
	}, nil
}

// Name 返回存储名。
func (s *Redis) Name() string {
	return s.name
}

// composeKey 组合完整的 Redis 键。
func (s *Redis) composeKey(collection, key string) string {
	return s.name + "/" + collection + "/" + key
}

// Update 在一个 WATCH 事务内执行"读取 → decide → 写入"。
func (s *Redis) Update(ctx context.Context, collection, key string, decide DecideFunc) (bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return false, err
	}
	if decide == nil {
		return false, ErrNilDecide
	}
	if s.closed.Load() {
		return false, ErrStoreClosed
	}

	fullKey := s.composeKey(collection, key)
	wrote := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, fullKey).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			current, exists = nil, false
		} else if err != nil {
			return err
		}

		next, write, err := decide(current, exists)
		if err != nil {
			return err
		}
		if !write {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		wrote = true
		return nil
	}, fullKey)

	if errors.Is(err, redis.TxFailedErr) {
		// 读取与提交之间出现并发修改，本次决策作废
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("xstore: update %q: %w", fullKey, err)
	}
	return wrote, nil
}

// Put 无条件写入。
func (s *Redis) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := validateOp(ctx, collection, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}

	fullKey := s.composeKey(collection, key)
	if err := s.client.Set(ctx, fullKey, value, 0).Err(); err != nil {
		return fmt.Errorf("xstore: put %q: %w", fullKey, err)
	}
	return nil
}

// Get 读取当前值。
func (s *Redis) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return nil, false, err
	}
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}

	fullKey := s.composeKey(collection, key)
	value, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("xstore: get %q: %w", fullKey, err)
	}
	return value, true, nil
}

// Health 健康检查，执行 PING。
func (s *Redis) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return s.client.Ping(ctx).Err()
}

// Close 标记存储关闭。
// 不关闭传入的 Redis 客户端，客户端的生命周期由调用者管理。
func (s *Redis) Close() error {
	s.closed.Store(true)
	return nil
}
