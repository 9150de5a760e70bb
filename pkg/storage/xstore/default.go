package xstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultStoreName 默认存储名。
// 未显式指定存储时，所有调用方共享这个众所周知的名字，
// 从而天然地在同一份锁记录上竞争。
const DefaultStoreName = "xmutex"

// DefaultPath 返回默认 bolt 存储的文件路径：
// <用户缓存目录>/xmutex/xmutex.db。
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("xstore: resolve user cache dir: %w", err)
	}
	return filepath.Join(dir, DefaultStoreName, DefaultStoreName+".db"), nil
}

// OpenDefault 打开默认存储（bolt 后端，路径见 DefaultPath）。
//
// 这是便利工厂：核心的 xmutex 只接受显式注入的 Store，
// 不会隐式地去打开任何默认存储。调用方负责 Close。
func OpenDefault() (*Bolt, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return OpenBolt(path)
}
