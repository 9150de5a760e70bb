package xstore

import (
	"context"
	"sync"
)

// =============================================================================
// 进程内注册表
// =============================================================================

var (
	memRegistryMu sync.Mutex
	memRegistry   = make(map[string]*Memory)
)

// OpenMemory 打开（或创建）进程内命名存储。
//
// 同名调用返回同一实例，因此同进程内的多个组件可以通过存储名共享状态，
// 而无需显式传递实例。创建是幂等的：并发打开同名存储不会出错，
// 也不会产生重复实例。
//
// Close 会将实例从注册表移除，之后再次 OpenMemory 得到全新的空存储。
func OpenMemory(name string) (*Memory, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	memRegistryMu.Lock()
	defer memRegistryMu.Unlock()

	if s, ok := memRegistry[name]; ok {
		return s, nil
	}
	s := &Memory{
		name:        name,
		collections: make(map[string]map[string][]byte),
	}
	memRegistry[name] = s
	return s, nil
}

// =============================================================================
// Memory 实现
// =============================================================================

// 确保 *Memory 实现 Store 接口
var _ Store = (*Memory)(nil)

// Memory 是进程内存储实现。
//
// Update 全程持有互斥锁，读-决策-写严格原子，没有乐观冲突路径。
// 仅适用于单进程内多协程的协调；跨进程请使用 redis 或 etcd 后端。
type Memory struct {
	name string

	mu          sync.Mutex
	collections map[string]map[string][]byte
	closed      bool
}

// Name 返回存储名。
func (s *Memory) Name() string {
	return s.name
}

// Update 在互斥锁保护下执行"读取 → decide → 写入"。
func (s *Memory) Update(ctx context.Context, collection, key string, decide DecideFunc) (bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return false, err
	}
	if decide == nil {
		return false, ErrNilDecide
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	var current []byte
	exists := false
	if c, ok := s.collections[collection]; ok {
		if v, ok := c[key]; ok {
			// 传副本，防止 decide 原地修改存储内容
			current = append([]byte(nil), v...)
			exists = true
		}
	}

	next, write, err := decide(current, exists)
	if err != nil {
		return false, err
	}
	if !write {
		return false, nil
	}

	s.putLocked(collection, key, next)
	return true, nil
}

// Put 无条件写入。
func (s *Memory) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := validateOp(ctx, collection, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.putLocked(collection, key, value)
	return nil
}

// Get 读取当前值。
func (s *Memory) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateOp(ctx, collection, key); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}
	c, ok := s.collections[collection]
	if !ok {
		return nil, false, nil
	}
	v, ok := c[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Health 健康检查。
func (s *Memory) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close 关闭存储并从注册表移除。
// 幂等：重复调用返回 nil。
func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.collections = nil

	memRegistryMu.Lock()
	// 注册表中可能已被同名新实例替换，仅移除自身
	if memRegistry[s.name] == s {
		delete(memRegistry, s.name)
	}
	memRegistryMu.Unlock()
	return nil
}

// putLocked 写入值副本，调用方必须持有 s.mu。
func (s *Memory) putLocked(collection, key string, value []byte) {
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		s.collections[collection] = c
	}
	c[key] = append([]byte(nil), value...)
}
