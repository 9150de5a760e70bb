package xmutex

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// 默认配置。
const (
	// DefaultExpiry 默认锁过期时间。
	DefaultExpiry = 10 * time.Second

	// DefaultSpinDelay 默认自旋间隔。
	DefaultSpinDelay = 50 * time.Millisecond

	// DefaultCollection 默认集合名。
	// 外部传入的存储若已有同名集合用于其他用途，请通过 WithCollection 隔离。
	DefaultCollection = "mutexes"

	// maxNameLength 锁名长度上限（字节）。
	maxNameLength = 512
)

// Option 定义 Mutex 的配置选项。
type Option func(*options)

// options Mutex 配置。
type options struct {
	expiry     time.Duration
	spinDelay  time.Duration
	collection string
	ownerID    string
	clock      clockwork.Clock
	logger     *slog.Logger
}

// defaultOptions 返回默认配置。
func defaultOptions() *options {
	return &options{
		expiry:     DefaultExpiry,
		spinDelay:  DefaultSpinDelay,
		collection: DefaultCollection,
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.DiscardHandler),
	}
}

// WithExpiry 设置锁的过期时间。
// 默认值：10 秒。
//
// 过期时间应大于临界区的执行时间，否则锁会在使用中被其他竞争者接管；
// 长任务可周期性调用 Extend 续期。
func WithExpiry(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.expiry = d
		}
	}
}

// WithSpinDelay 设置获取被拒后的自旋间隔。
// 默认值：50 毫秒。
//
// 间隔越短抢锁越快，对存储的轮询压力也越大。
func WithSpinDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.spinDelay = d
		}
	}
}

// WithCollection 设置锁记录所在的集合名。
// 默认值："mutexes"。
//
// 竞争同一把锁的各方必须使用相同的存储、集合名与锁名。
func WithCollection(name string) Option {
	return func(o *options) {
		if strings.TrimSpace(name) != "" {
			o.collection = name
		}
	}
}

// WithOwnerID 设置自定义持有者 ID。
// 默认使用随机生成的 UUID。
//
// 注意：ID 必须在所有竞争者之间唯一，重复的 ID 会导致互斥失效
// （协议会把同 ID 的获取视为幂等的自我重获取）。
func WithOwnerID(id string) Option {
	return func(o *options) {
		if strings.TrimSpace(id) != "" {
			o.ownerID = id
		}
	}
}

// WithClock 设置时钟源，主要用于测试中注入假时钟。
// 默认使用真实时钟。
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger 设置日志器。
// 默认丢弃所有日志。设置后在自旋等待时输出 Debug 级别日志。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
