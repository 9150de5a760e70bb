// Package xstore 提供 xmutex 使用的事务型键值存储抽象及多种后端实现。
//
// # 设计理念
//
// xstore 只定义锁协议所需的最小存储契约：
//   - 命名存储（Store）内含若干集合（collection），集合内按 key 存取字节值
//   - Update 在单个事务内完成"读取当前值 → 决策 → 写入新值"，
//     并发事务无法在读与写之间插入对同一 key 的修改
//   - Put 提供无条件写入（释放锁路径）
//
// 决策逻辑由调用方以 DecideFunc 注入，存储层保证其相对事务同步执行。
// 存储层不做任何内部重试，重试策略属于上层（xmutex 的自旋循环）。
//
// # 后端选择
//
//	| 后端   | 事务实现               | 适用范围               |
//	|--------|------------------------|------------------------|
//	| memory | 互斥锁包裹读-决策-写   | 单进程内多协程         |
//	| bolt   | bbolt 单写事务         | 单进程，持久化         |
//	| redis  | WATCH/MULTI 乐观事务   | 跨进程、跨主机         |
//	| etcd   | Txn + ModRevision 比较 | 跨进程、跨主机、强一致 |
//
// # 冲突即未写入
//
// redis 与 etcd 后端基于乐观并发：若在读取与提交之间有并发事务修改了
// 同一 key，本次提交失败。Update 将这种冲突报告为 (false, nil)，
// 与 decide 主动放弃写入同义——两种情况下存储都未被本次调用修改，
// 失败方的决策从未生效，安全性不受影响；活性由上层的重试循环保证。
// memory 与 bolt 后端持有真正的互斥事务，不会走到该路径。
//
// # 创建即存在
//
// 所有后端的打开与集合创建都是幂等的：OpenMemory 对同名存储返回同一
// 实例，bolt 的 bucket 与 redis/etcd 的 key 空间在首次写入时隐式创建，
// 多个打开方并发竞争创建不会出错也不会产生重复状态。
package xstore
