// Package xmutex 提供基于事务型键值存储的分布式互斥锁。
//
// # 适用场景
//
// 多个无法直接通信的执行体（进程、容器、同进程内的独立组件）共享同一个
// 事务型存储（见 xstore），需要对某个逻辑资源互斥访问。协议核心是
// 比较并交换式的 TryLock：在存储的单个事务内读取锁记录、判定可获取性、
// 写入新归属；配合基于过期时间的接管（持有者崩溃/冻结后可恢复）与
// 固定间隔的自旋重试（竞争时轮询）。
//
// # 核心概念
//
//   - 锁名（name）：逻辑标识，同一存储内同名的 Mutex 竞争同一条锁记录
//   - 持有者 ID（owner id）：每个 Mutex 构造时生成的随机标识，
//     区分并发竞争者（包括同一进程内的多个 Mutex）
//   - 过期时间（expiry）：每次成功获取都写入 now+expiry，
//     超过该时刻的锁视为持有者已消亡，可被任何竞争者接管
//   - 自旋间隔（spin delay）：获取被拒后的轮询等待
//
// # 使用模式
//
//	st, err := xstore.OpenMemory("demo")
//	if err != nil { ... }
//	m, err := xmutex.New("my-resource", st)
//	if err != nil { ... }
//
//	if err := m.Lock(ctx); err != nil { ... }
//	defer m.Unlock(context.Background())
//	// 临界区...
//
// # 语义须知
//
//   - 不公平：被拒的竞争者各自独立轮询，释放/过期后谁先轮询到谁得锁。
//     这是有意的取舍（简单优先于公平），不提供排队。
//   - Unlock 不校验归属：任何 Mutex 都可以释放任何同名锁，
//     这是刻意保留的行为（见 Unlock 文档）。
//   - 同一 Mutex 上重叠的并发 Lock 调用不受支持：最小契约只保证
//     单个 Mutex 的顺序使用正确；需要进程内互斥请在外层自行串行化。
//   - Lock 默认无限重试；需要超时或取消，传入带 deadline 的 context。
//
// # 与 xstore 的分工
//
// 原子性由存储层的单事务读-决策-写保证；本包只负责协议本身
// （判定规则、过期计算、自旋重试）。存储 I/O 错误不会被自旋循环吞掉，
// 而是立即向调用方传播。
package xmutex
