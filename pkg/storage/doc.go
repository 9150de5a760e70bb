// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xstore: 事务型键值存储抽象，内置 memory、bolt、redis、etcd 四种后端
//
// 设计原则：
//   - 提供统一的接口抽象，支持多种存储后端
//   - 核心能力是原子「读-判-写」更新，由各后端以自身事务机制实现
//   - 乐观后端将提交冲突报告为未写入，由调用方决定是否重试
package storage
