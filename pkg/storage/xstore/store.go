package xstore

import (
	"context"
	"strings"
)

// DecideFunc 在一次事务内基于当前值决定是否写入。
//
// 参数：
//   - current: 当前值，key 不存在时为 nil
//   - exists: key 是否存在
//
// 返回：
//   - next: 要写入的新值，write 为 false 时忽略
//   - write: 是否写入
//   - err: 决策失败（如当前值无法解析），事务终止且不写入
//
// decide 相对事务同步执行：并发事务无法在读取 current 与写入 next
// 之间修改同一 key。decide 必须是纯函数——乐观后端在冲突时可能返回
// (false, nil) 由上层重发，届时 decide 会基于新的 current 再次被调用。
type DecideFunc func(current []byte, exists bool) (next []byte, write bool, err error)

// Store 定义事务型键值存储接口。
// 所有实现的方法都是并发安全的。
type Store interface {
	// Name 返回存储名。
	// 同名存储（同一后端）指向同一份共享状态。
	Name() string

	// Update 在单个事务内执行"读取 → decide → 写入"。
	//
	// 返回：
	//   - (true, nil): decide 决定写入且写入已提交
	//   - (false, nil): decide 放弃写入，或乐观事务因并发冲突未提交
	//     （两种情况下存储均未被本次调用修改）
	//   - (false, err): 参数非法、decide 出错或底层 I/O 失败
	//
	// Update 不做内部重试，冲突与失败的重试策略由调用方决定。
	Update(ctx context.Context, collection, key string, decide DecideFunc) (bool, error)

	// Put 无条件写入。
	Put(ctx context.Context, collection, key string, value []byte) error

	// Get 读取当前值。
	// key 不存在时返回 (nil, false, nil)，不视为错误。
	Get(ctx context.Context, collection, key string) (value []byte, exists bool, err error)

	// Health 健康检查，验证底层存储可达。
	Health(ctx context.Context) error

	// Close 关闭存储。
	// memory/bolt 后端释放自身资源；redis/etcd 后端仅标记关闭，
	// 客户端的生命周期由调用者管理。
	Close() error
}

// validateOp 校验一次存储操作的公共参数。
func validateOp(ctx context.Context, collection, key string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if strings.TrimSpace(collection) == "" {
		return ErrEmptyCollection
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// validateName 校验存储名。
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}
