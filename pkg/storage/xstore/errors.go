package xstore

import "errors"

// 预定义错误。
// 使用 errors.Is 进行错误匹配，例如：
//
//	if errors.Is(err, xstore.ErrStoreClosed) {
//	    // 存储已关闭
//	}
var (
	// ErrNilContext 上下文为空。
	// 传入 nil ctx 时返回此错误。
	ErrNilContext = errors.New("xstore: context is nil")

	// ErrNilClient 客户端为空。
	// 传入 nil 的 redis/etcd 客户端时返回此错误。
	ErrNilClient = errors.New("xstore: client is nil")

	// ErrNilDecide 决策函数为空。
	// Update 传入 nil decide 时返回此错误。
	ErrNilDecide = errors.New("xstore: decide func is nil")

	// ErrEmptyName 存储名为空。
	// 存储名为空字符串或仅含空白时返回此错误。
	ErrEmptyName = errors.New("xstore: store name must not be empty")

	// ErrEmptyCollection 集合名为空。
	ErrEmptyCollection = errors.New("xstore: collection must not be empty")

	// ErrEmptyKey 键名为空。
	ErrEmptyKey = errors.New("xstore: key must not be empty")

	// ErrEmptyPath 文件路径为空。
	// OpenBolt 传入空路径时返回此错误。
	ErrEmptyPath = errors.New("xstore: path must not be empty")

	// ErrStoreClosed 存储已关闭。
	// 在已关闭的存储上执行操作时返回此错误。
	ErrStoreClosed = errors.New("xstore: store is closed")
)
