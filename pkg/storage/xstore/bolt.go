package xstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltOpenTimeout 打开数据库文件的文件锁等待上限。
// bbolt 以独占文件锁打开，另一进程持有时 Open 会阻塞到超时。
const boltOpenTimeout = 5 * time.Second

// 确保 *Bolt 实现 Store 接口
var _ Store = (*Bolt)(nil)

// Bolt 是基于 bbolt 的持久化存储实现。
//
// 一个文件即一个存储，collection 映射为 bucket，
// db.Update 的单写事务天然满足"读取 → decide → 写入"的原子性。
//
// bbolt 以独占文件锁打开数据库，同一文件同时只能被一个进程持有，
// 因此 Bolt 适用于单进程内的协调与持久化；跨进程并发协调请使用
// redis 或 etcd 后端。
type Bolt struct {
	name   string
	db     *bolt.DB
	closed atomic.Bool
}

// OpenBolt 打开（或创建）bolt 存储。
//
// 路径上的目录与数据库文件不存在时自动创建，已存在时原样打开，
// 两种情况行为一致。存储名即文件路径。
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("xstore: create dir for %q: %w", path, err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("xstore: open bolt %q: %w", path, err)
	}

	return &Bolt{
		name: path,
		db:   db,
	}, nil
}

// Name 返回存储名（数据库文件路径）。
func (s *Bolt) Name() string {
	return s.name
}

// Update 在单个 bbolt 写事务内执行"读取 → decide → 写入"。
// decide 返回错误或事务提交失败时整个事务回滚。
func (s *Bolt) Update(ctx context.Context, collection, key string, decide DecideFunc) (bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return false, err
	}
	if decide == nil {
		return false, ErrNilDecide
	}
	if s.closed.Load() {
		return false, ErrStoreClosed
	}

	wrote := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}

		// bbolt 对不存在的 key 返回 nil；存储的值均为非空记录，
		// 以 nil 判定存在性足够
		current := b.Get([]byte(key))
		exists := current != nil

		next, write, err := decide(current, exists)
		if err != nil {
			return err
		}
		if !write {
			return nil
		}
		if err := b.Put([]byte(key), next); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("xstore: update %q/%q: %w", collection, key, err)
	}
	return wrote, nil
}

// Put 无条件写入。
func (s *Bolt) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := validateOp(ctx, collection, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("xstore: put %q/%q: %w", collection, key, err)
	}
	return nil
}

// Get 读取当前值。collection 或 key 不存在均返回 (nil, false, nil)。
func (s *Bolt) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return nil, false, err
	}
	if s.closed.Load() {
		return nil, false, ErrStoreClosed
	}

	var value []byte
	exists := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// View 事务结束后 v 指向的内存失效，必须复制
			value = append([]byte(nil), v...)
			exists = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("xstore: get %q/%q: %w", collection, key, err)
	}
	return value, exists, nil
}

// Health 健康检查，执行一次空的只读事务。
func (s *Bolt) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// Close 关闭数据库文件。
// 幂等：重复调用返回 nil。
func (s *Bolt) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
