package xmutex

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record 是持久化在存储中的锁记录，每个锁名一条。
//
// 记录只会被覆盖，不会被删除：释放锁写入空闲记录（Owner 为空、
// ExpiresAt 为 0），接管与获取写入新归属。从未创建过的锁名等价于
// 空闲记录。
type Record struct {
	// Owner 当前持有者的 ID，空字符串表示空闲。
	Owner string `json:"owner"`

	// ExpiresAt 过期时刻（Unix 毫秒）。
	// 早于当前时间的记录视为持有者已消亡，可被接管；
	// 此时 Owner 仍保留旧值，直到被下一次写入覆盖。
	ExpiresAt int64 `json:"expiresAt"`
}

// Free 报告记录是否处于空闲状态（无持有者）。
func (r Record) Free() bool {
	return r.Owner == ""
}

// Expired 报告记录在 now 时刻是否已过期。
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt < now.UnixMilli()
}

// Held 报告记录在 now 时刻是否被有效持有（有持有者且未过期）。
func (r Record) Held(now time.Time) bool {
	return !r.Free() && !r.Expired(now)
}

// ExpiresTime 返回过期时刻。
func (r Record) ExpiresTime() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// freeRecord 返回空闲记录。
func freeRecord() Record {
	return Record{}
}

// encodeRecord 将记录编码为存储值。
func encodeRecord(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("xmutex: encode record: %w", err)
	}
	return data, nil
}

// decodeRecord 从存储值解码记录。
func decodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return r, nil
}
