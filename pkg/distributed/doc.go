// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xmutex: 基于事务型键值存储的分布式互斥锁
//
// 设计原则：
//   - 锁协议只依赖存储的原子「读-判-写」能力，不绑定具体后端
//   - 支持过期接管，持有者崩溃后锁可被他人回收
//   - 阻塞等待可通过 context 取消
package distributed
