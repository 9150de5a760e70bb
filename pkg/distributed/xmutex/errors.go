package xmutex

import "errors"

// 预定义错误。
// 使用 errors.Is 进行错误匹配，例如：
//
//	if errors.Is(err, xmutex.ErrLockHeld) {
//	    // 锁被占用
//	}
var (
	// ErrLockHeld 锁被其他持有者占用。
	// TryLock 以 (false, nil) 表示占用，业务代码通常不会直接看到此错误；
	// 它作为 Lock 自旋循环内部的重试信号存在，保持导出以便 mock/测试。
	ErrLockHeld = errors.New("xmutex: lock is held by another owner")

	// ErrNotLocked 锁未被当前 Mutex 持有。
	// Extend 发现归属已丢失（过期被接管或被释放）时返回此错误。
	ErrNotLocked = errors.New("xmutex: not locked")

	// ErrNilStore 存储为空。
	// New 传入 nil 存储时返回此错误。
	ErrNilStore = errors.New("xmutex: store is nil")

	// ErrNilContext 上下文为空。
	ErrNilContext = errors.New("xmutex: context is nil")

	// ErrEmptyName 锁名为空。
	// 锁名为空字符串或仅含空白时返回此错误。
	ErrEmptyName = errors.New("xmutex: name must not be empty")

	// ErrNameTooLong 锁名超过长度限制。
	// 锁名不能超过 maxNameLength（512 字节）。
	ErrNameTooLong = errors.New("xmutex: name exceeds maximum length of 512 bytes")

	// ErrCorruptRecord 锁记录无法解析。
	// 存储中的记录不是合法的锁记录时返回此错误，
	// 通常意味着集合被其他用途的数据污染。
	ErrCorruptRecord = errors.New("xmutex: corrupt lock record")
)
