package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xmutex/pkg/distributed/xmutex"
)

// 支持的存储后端。
const (
	backendMemory = "memory"
	backendBolt   = "bolt"
	backendRedis  = "redis"
	backendEtcd   = "etcd"
)

// config 是解析完成的运行配置。
// 优先级：命令行 flag > 配置文件 > 默认值。
type config struct {
	Backend    string
	Collection string
	Expiry     time.Duration
	SpinDelay  time.Duration

	BoltPath      string
	RedisAddr     string
	EtcdEndpoints []string
}

// defaultConfig 返回默认配置。
func defaultConfig() *config {
	return &config{
		Backend:       backendBolt,
		Collection:    xmutex.DefaultCollection,
		Expiry:        xmutex.DefaultExpiry,
		SpinDelay:     xmutex.DefaultSpinDelay,
		RedisAddr:     "127.0.0.1:6379",
		EtcdEndpoints: []string{"127.0.0.1:2379"},
	}
}

// loadConfigFile 从 YAML 文件加载配置，覆盖默认值。
//
// 文件结构:
//
//	backend: redis
//	collection: mutexes
//	expiry: 10s
//	spin_delay: 50ms
//	bolt:
//	  path: /var/lib/xmutex/xmutex.db
//	redis:
//	  addr: 127.0.0.1:6379
//	etcd:
//	  endpoints:
//	    - 127.0.0.1:2379
func loadConfigFile(cfg *config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return fmt.Errorf("解析配置文件 %q: %w", path, err)
	}

	if k.Exists("backend") {
		cfg.Backend = k.String("backend")
	}
	if k.Exists("collection") {
		cfg.Collection = k.String("collection")
	}
	if k.Exists("expiry") {
		cfg.Expiry = k.Duration("expiry")
	}
	if k.Exists("spin_delay") {
		cfg.SpinDelay = k.Duration("spin_delay")
	}
	if k.Exists("bolt.path") {
		cfg.BoltPath = k.String("bolt.path")
	}
	if k.Exists("redis.addr") {
		cfg.RedisAddr = k.String("redis.addr")
	}
	if k.Exists("etcd.endpoints") {
		cfg.EtcdEndpoints = k.Strings("etcd.endpoints")
	}
	return nil
}

// resolveConfig 合成最终配置：默认值 ← 配置文件 ← 命令行 flag。
func resolveConfig(cmd *cli.Command) (*config, error) {
	cfg := defaultConfig()

	if path := cmd.String("config"); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if cmd.IsSet("backend") {
		cfg.Backend = cmd.String("backend")
	}
	if cmd.IsSet("collection") {
		cfg.Collection = cmd.String("collection")
	}
	if cmd.IsSet("expiry") {
		cfg.Expiry = cmd.Duration("expiry")
	}
	if cmd.IsSet("spin-delay") {
		cfg.SpinDelay = cmd.Duration("spin-delay")
	}
	if cmd.IsSet("bolt-path") {
		cfg.BoltPath = cmd.String("bolt-path")
	}
	if cmd.IsSet("redis-addr") {
		cfg.RedisAddr = cmd.String("redis-addr")
	}
	if cmd.IsSet("etcd-endpoints") {
		cfg.EtcdEndpoints = splitEndpoints(cmd.String("etcd-endpoints"))
	}

	switch cfg.Backend {
	case backendMemory, backendBolt, backendRedis, backendEtcd:
	default:
		return nil, &usageError{msg: fmt.Sprintf("未知存储后端 %q（支持 memory|bolt|redis|etcd）", cfg.Backend)}
	}
	return cfg, nil
}

// splitEndpoints 拆分逗号分隔的端点列表，忽略空白项。
func splitEndpoints(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
