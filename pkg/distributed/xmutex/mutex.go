package xmutex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"

	"github.com/omeyang/xmutex/pkg/storage/xstore"
)

// Mutex 是一把分布式互斥锁的本地句柄。
//
// 同一存储内同名的 Mutex 竞争同一条锁记录；每个 Mutex 持有独立的
// 随机持有者 ID，因此同一进程内的多个 Mutex 之间同样互斥。
//
// 顺序使用（Lock → 临界区 → Unlock）是并发安全的契约范围；
// 在同一 Mutex 上重叠地并发调用 Lock 不受支持，行为未定义。
type Mutex struct {
	name  string
	id    string
	store xstore.Store
	opts  *options
}

// New 创建绑定到锁名与存储的 Mutex。
//
// 存储必须显式传入（依赖注入）；需要开箱即用的默认存储时，
// 使用 xstore.OpenDefault 打开后传入。
//
// 参数：
//   - name: 锁名，非空且不超过 512 字节
//   - store: 共享的事务型存储
//   - opts: 配置选项（过期时间、自旋间隔、集合名等）
func New(name string, store xstore.Store, opts ...Option) (*Mutex, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrNilStore
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	id := options.ownerID
	if id == "" {
		id = uuid.NewString()
	}

	return &Mutex{
		name:  name,
		id:    id,
		store: store,
		opts:  options,
	}, nil
}

// validateName 校验锁名。
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Name 返回锁名。
func (m *Mutex) Name() string {
	return m.name
}

// OwnerID 返回本 Mutex 的持有者 ID。
func (m *Mutex) OwnerID() string {
	return m.id
}

// TryLock 非阻塞地尝试获取锁，执行一次原子的比较并交换。
//
// 在存储的单个事务内读取当前记录并判定，满足下列任一条件即获取成功：
//   - 记录不存在（从未加过锁）
//   - 记录的持有者就是本 Mutex（幂等的自我重获取，顺带刷新过期时间）
//   - 记录已过期（持有者视为消亡，接管）
//
// 成功时写入 {本 Mutex 的 ID, now+expiry} 并返回 (true, nil)；
// 被其他存活持有者占用时不写入，返回 (false, nil)——这不是错误。
// 存储 I/O 失败、记录损坏等返回 (false, err)。
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}

	now := m.opts.clock.Now()
	next, err := encodeRecord(Record{
		Owner:     m.id,
		ExpiresAt: now.Add(m.opts.expiry).UnixMilli(),
	})
	if err != nil {
		return false, err
	}

	granted, err := m.store.Update(ctx, m.opts.collection, m.name,
		func(current []byte, exists bool) ([]byte, bool, error) {
			if exists {
				rec, err := decodeRecord(current)
				if err != nil {
					return nil, false, err
				}
				if rec.Owner != m.id && rec.Held(now) {
					// 他人有效持有 → 拒绝，不写入
					return nil, false, nil
				}
			}
			return next, true, nil
		})
	if err != nil {
		return false, fmt.Errorf("xmutex: try lock %q: %w", m.name, err)
	}
	return granted, nil
}

// Lock 阻塞式获取锁。
//
// 反复调用 TryLock，被拒后等待固定的自旋间隔再试，不设重试上限，
// 间隔也不增长——默认行为是无限等待。每轮重试前检查 ctx，
// 需要超时或取消时传入带 deadline 的 context，取消返回 ctx.Err()。
//
// 存储 I/O 错误立即中止自旋并向调用方传播，不会被当作竞争重试；
// 与"被拒"（正常的竞争结果，驱动重试）严格区分。
func (m *Mutex) Lock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	var storeErr error
	err := retry.New(
		retry.Context(ctx),
		retry.UntilSucceeded(),
		retry.Delay(m.opts.spinDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, _ error) {
			m.opts.logger.DebugContext(ctx, "锁被占用，等待重试",
				slog.String("name", m.name),
				slog.Uint64("attempt", uint64(n)+1),
				slog.Duration("spin_delay", m.opts.spinDelay),
			)
		}),
	).Do(func() error {
		granted, err := m.TryLock(ctx)
		if err != nil {
			storeErr = err
			return retry.Unrecoverable(err)
		}
		if !granted {
			return ErrLockHeld
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if storeErr != nil {
		return storeErr
	}
	// retry-go 对 context 错误的包装不保证透传，单独检查
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Unlock 无条件释放锁：向锁记录写入空闲状态。
//
// 刻意不校验归属——任何 Mutex 都可以释放任何同名锁，包括他人持有的。
// 这是协议的既定行为而非缺陷：释放即覆盖为空闲记录，对已空闲或从未
// 加过锁的锁名调用同样成功且结果相同（幂等）。
// 仅在底层存储写入失败时返回错误。
func (m *Mutex) Unlock(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	data, err := encodeRecord(freeRecord())
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, m.opts.collection, m.name, data); err != nil {
		return fmt.Errorf("xmutex: unlock %q: %w", m.name, err)
	}
	return nil
}

// Extend 续期：仍持有锁时把过期时刻刷新为 now+expiry。
//
// 与 Unlock 不同，续期必须校验归属才有意义：在存储的单个事务内确认
// 记录仍归本 Mutex 且未过期，是则写入新过期时刻；归属已丢失
// （过期被接管、被释放或被他人覆盖）返回 ErrNotLocked。
// 乐观后端的提交冲突同样报告 ErrNotLocked；若确认仍在持有，重试即可。
func (m *Mutex) Extend(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	now := m.opts.clock.Now()
	next, err := encodeRecord(Record{
		Owner:     m.id,
		ExpiresAt: now.Add(m.opts.expiry).UnixMilli(),
	})
	if err != nil {
		return err
	}

	extended, err := m.store.Update(ctx, m.opts.collection, m.name,
		func(current []byte, exists bool) ([]byte, bool, error) {
			if !exists {
				return nil, false, nil
			}
			rec, err := decodeRecord(current)
			if err != nil {
				return nil, false, err
			}
			if rec.Owner != m.id || rec.Expired(now) {
				return nil, false, nil
			}
			return next, true, nil
		})
	if err != nil {
		return fmt.Errorf("xmutex: extend %q: %w", m.name, err)
	}
	if !extended {
		return ErrNotLocked
	}
	return nil
}

// Holder 读取锁记录的当前状态。
//
// 返回记录与其是否存在；从未加过锁的锁名返回 (Record{}, false, nil)。
// 供运维与测试检视，不参与协议判定。
func (m *Mutex) Holder(ctx context.Context) (Record, bool, error) {
	if ctx == nil {
		return Record{}, false, ErrNilContext
	}

	data, exists, err := m.store.Get(ctx, m.opts.collection, m.name)
	if err != nil {
		return Record{}, false, fmt.Errorf("xmutex: holder %q: %w", m.name, err)
	}
	if !exists {
		return Record{}, false, nil
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}
