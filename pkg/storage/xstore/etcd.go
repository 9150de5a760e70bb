package xstore

import (
	"context"
	"fmt"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// 确保 *Etcd 实现 Store 接口
var _ Store = (*Etcd)(nil)

// Etcd 是基于 etcd 的存储实现，提供强一致的跨进程协调。
//
// Update 读取 key 的 ModRevision，随后以 Txn 的版本比较提交写入：
// 比较失败说明读取与提交之间有并发修改，本次调用报告 (false, nil)
// （冲突即未写入，见包文档）。
//
// 键布局：/<存储名>/<collection>/<key>，不同存储名之间完全隔离。
type Etcd struct {
	name   string
	client *clientv3.Client
	closed atomic.Bool
}

// NewEtcd 基于已初始化的 etcd 客户端创建存储。
// 客户端的生命周期由调用者管理，Close 不会关闭它。
func NewEtcd(client *clientv3.Client, name string) (*Etcd, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &Etcd{
		name:   name,
		client: client,
	}, nil
}

// Name 返回存储名。
func (s *Etcd) Name() string {
	return s.name
}

// composeKey 组合完整的 etcd 键。
func (s *Etcd) composeKey(collection, key string) string {
	return "/" + s.name + "/" + collection + "/" + key
}

// Update 以"读取 ModRevision → decide → 版本比较事务"执行原子更新。
func (s *Etcd) Update(ctx context.Context, collection, key string, decide DecideFunc) (bool, error) {
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

	resp, err := s.client.Get(ctx, fullKey)
	if err != nil {
		return false, fmt.Errorf("xstore: get %q: %w", fullKey, err)
	}

	var current []byte
	var modRevision int64
	exists := len(resp.Kvs) > 0
	if exists {
		current = resp.Kvs[0].Value
		modRevision = resp.Kvs[0].ModRevision
	}

	next, write, err := decide(current, exists)
	if err != nil {
		return false, err
	}
	if !write {
		return false, nil
	}

	// key 存在时要求 ModRevision 未变；不存在时要求仍未被创建
	var cmp clientv3.Cmp
	if exists {
		cmp = clientv3.Compare(clientv3.ModRevision(fullKey), "=", modRevision)
	} else {
		cmp = clientv3.Compare(clientv3.CreateRevision(fullKey), "=", 0)
	}

	txn, err := s.client.Txn(ctx).
		If(cmp).
		Then(clientv3.OpPut(fullKey, string(next))).
		Commit()
	if err != nil {
		return false, fmt.Errorf("xstore: txn put %q: %w", fullKey, err)
	}
	if !txn.Succeeded {
		// 读取与提交之间出现并发修改，本次决策作废
		return false, nil
	}
	return true, nil
}

// Put 无条件写入。
func (s *Etcd) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := validateOp(ctx, collection, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}

	fullKey := s.composeKey(collection, key)
	if _, err := s.client.Put(ctx, fullKey, string(value)); err != nil {
		return fmt.Errorf("xstore: put %q: %w", fullKey, err)
	}
	return nil
}

// Get 读取当前值。
func (s *Etcd) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return nil, false, err
	}
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}

	fullKey := s.composeKey(collection, key)
	resp, err := s.client.Get(ctx, fullKey)
	if err != nil {
		return nil, false, fmt.Errorf("xstore: get %q: %w", fullKey, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

// Health 健康检查，对存储前缀执行一次限量读取。
func (s *Etcd) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.client.Get(ctx, "/"+s.name+"/", clientv3.WithPrefix(), clientv3.WithLimit(1))
	return err
}

// Close 标记存储关闭。
// 不关闭传入的 etcd 客户端，客户端的生命周期由调用者管理。
func (s *Etcd) Close() error {
	s.closed.Store(true)
	return nil
}
