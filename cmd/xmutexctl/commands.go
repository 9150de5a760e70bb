package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xmutex/pkg/distributed/xmutex"
	"github.com/omeyang/xmutex/pkg/storage/xstore"
)

// etcdDialTimeout etcd 客户端建连超时。
const etcdDialTimeout = 5 * time.Second

// createCommands 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createAcquireCommand(),
		createReleaseCommand(),
		createStatusCommand(),
		createDemoCommand(),
	}
}

// nameFlag 是 acquire/release/status 共用的锁名参数。
func nameFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "name",
		Aliases: []string{"n"},
		Usage:   "锁名",
	}
}

// createAcquireCommand 创建 acquire 子命令。
func createAcquireCommand() *cli.Command {
	return &cli.Command{
		Name:  "acquire",
		Usage: "获取锁，可选持有一段时间后释放",
		Flags: []cli.Flag{
			nameFlag(),
			&cli.DurationFlag{
				Name:  "hold",
				Usage: "获取后持有的时长（0 表示立即释放）",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdAcquire(ctx, cmd)
		},
	}
}

// createReleaseCommand 创建 release 子命令。
func createReleaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "无条件释放锁（无归属校验，任何人可释放）",
		Flags: []cli.Flag{nameFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdRelease(ctx, cmd)
		},
	}
}

// createStatusCommand 创建 status 子命令。
func createStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "查看锁记录当前状态",
		Flags: []cli.Flag{nameFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdStatus(ctx, cmd)
		},
	}
}

// createDemoCommand 创建 demo 子命令。
func createDemoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "进程内竞争演示：多个协程抢同一把锁并验证互斥",
		Flags: []cli.Flag{
			nameFlag(),
			&cli.IntFlag{
				Name:  "workers",
				Usage: "竞争协程数",
				Value: 4,
			},
			&cli.IntFlag{
				Name:  "rounds",
				Usage: "每个协程的加锁轮数",
				Value: 5,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdDemo(ctx, cmd)
		},
	}
}

// =============================================================================
// 命令实现
// =============================================================================

func cmdAcquire(ctx context.Context, cmd *cli.Command) error {
	cfg, name, logger, err := commandSetup(cmd)
	if err != nil {
		return err
	}

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := newMutex(name, st, cfg, logger)
	if err != nil {
		return err
	}

	opCtx, cancel := opContext(ctx, cmd)
	defer cancel()

	start := time.Now()
	if err := m.Lock(opCtx); err != nil {
		return fmt.Errorf("获取锁 %q: %w", name, err)
	}
	fmt.Printf("已获取锁 %q（持有者 %s，耗时 %v）\n", name, m.OwnerID(), time.Since(start).Round(time.Millisecond))

	if hold := cmd.Duration("hold"); hold > 0 {
		fmt.Printf("持有 %v...\n", hold)
		select {
		case <-time.After(hold):
		case <-ctx.Done():
			// 收到退出信号也要走释放路径，避免锁残留到过期
			logger.Warn("持有被中断，提前释放", slog.String("name", name))
		}
	}

	// 释放使用独立的超时上下文，外层取消不阻止解锁
	unlockCtx, unlockCancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer unlockCancel()
	if err := m.Unlock(unlockCtx); err != nil {
		return fmt.Errorf("释放锁 %q: %w", name, err)
	}
	fmt.Printf("已释放锁 %q\n", name)
	return nil
}

func cmdRelease(ctx context.Context, cmd *cli.Command) error {
	cfg, name, logger, err := commandSetup(cmd)
	if err != nil {
		return err
	}

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := newMutex(name, st, cfg, logger)
	if err != nil {
		return err
	}

	opCtx, cancel := opContext(ctx, cmd)
	defer cancel()

	if err := m.Unlock(opCtx); err != nil {
		return fmt.Errorf("释放锁 %q: %w", name, err)
	}
	fmt.Printf("已释放锁 %q\n", name)
	return nil
}

func cmdStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, name, logger, err := commandSetup(cmd)
	if err != nil {
		return err
	}

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := newMutex(name, st, cfg, logger)
	if err != nil {
		return err
	}

	opCtx, cancel := opContext(ctx, cmd)
	defer cancel()

	rec, exists, err := m.Holder(opCtx)
	if err != nil {
		return fmt.Errorf("查询锁 %q: %w", name, err)
	}

	switch {
	case !exists:
		fmt.Printf("锁 %q: 从未加锁\n", name)
	case rec.Free():
		fmt.Printf("锁 %q: 空闲\n", name)
	case rec.Expired(time.Now()):
		fmt.Printf("锁 %q: 已过期（原持有者 %s，过期于 %s）\n",
			name, rec.Owner, rec.ExpiresTime().Format(time.RFC3339))
	default:
		fmt.Printf("锁 %q: 持有中（持有者 %s，过期于 %s）\n",
			name, rec.Owner, rec.ExpiresTime().Format(time.RFC3339))
	}
	return nil
}

func cmdDemo(ctx context.Context, cmd *cli.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.Bool("verbose"))

	name := cmd.String("name")
	if name == "" {
		name = "xmutexctl-demo"
	}
	workers := cmd.Int("workers")
	rounds := cmd.Int("rounds")
	if workers <= 0 || rounds <= 0 {
		return &usageError{msg: "--workers 和 --rounds 必须为正数"}
	}

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opCtx, cancel := opContext(ctx, cmd)
	defer cancel()

	// counter 仅在锁保护下访问；互斥失效时终值会对不上
	counter := 0
	start := time.Now()

	g, gctx := errgroup.WithContext(opCtx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			m, err := newMutex(name, st, cfg, logger)
			if err != nil {
				return err
			}
			for j := 0; j < rounds; j++ {
				if err := m.Lock(gctx); err != nil {
					return fmt.Errorf("worker %d: %w", worker, err)
				}
				counter++
				if err := m.Unlock(gctx); err != nil {
					return fmt.Errorf("worker %d: %w", worker, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	want := workers * rounds
	fmt.Printf("%d 个协程 × %d 轮完成，计数 %d/%d，耗时 %v\n",
		workers, rounds, counter, want, time.Since(start).Round(time.Millisecond))
	if counter != want {
		return errors.New("互斥失效：计数与预期不符")
	}
	return nil
}

// =============================================================================
// 辅助
// =============================================================================

// commandSetup 解析配置并校验锁名参数。
func commandSetup(cmd *cli.Command) (*config, string, *slog.Logger, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, "", nil, err
	}
	name := cmd.String("name")
	if name == "" {
		return nil, "", nil, &usageError{msg: "缺少必需参数 --name"}
	}
	return cfg, name, newLogger(cmd.Bool("verbose")), nil
}

// opContext 根据 --timeout 构建操作上下文。
func opContext(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	if timeout := cmd.Duration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// newMutex 按配置创建 Mutex。
func newMutex(name string, st xstore.Store, cfg *config, logger *slog.Logger) (*xmutex.Mutex, error) {
	return xmutex.New(name, st,
		xmutex.WithExpiry(cfg.Expiry),
		xmutex.WithSpinDelay(cfg.SpinDelay),
		xmutex.WithCollection(cfg.Collection),
		xmutex.WithLogger(logger),
	)
}

// openStore 按配置打开存储后端。
// 返回的 cleanup 负责关闭存储及其客户端。
func openStore(ctx context.Context, cfg *config) (xstore.Store, func(), error) {
	switch cfg.Backend {
	case backendMemory:
		st, err := xstore.OpenMemory(xstore.DefaultStoreName)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil

	case backendBolt:
		path := cfg.BoltPath
		if path == "" {
			var err error
			if path, err = xstore.DefaultPath(); err != nil {
				return nil, nil, err
			}
		}
		st, err := xstore.OpenBolt(path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil

	case backendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("连接 Redis %q: %w", cfg.RedisAddr, err)
		}
		st, err := xstore.NewRedis(client, xstore.DefaultStoreName)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return st, func() {
			_ = st.Close()
			_ = client.Close()
		}, nil

	case backendEtcd:
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.EtcdEndpoints,
			DialTimeout: etcdDialTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("连接 etcd %v: %w", cfg.EtcdEndpoints, err)
		}
		st, err := xstore.NewEtcd(client, xstore.DefaultStoreName)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return st, func() {
			_ = st.Close()
			_ = client.Close()
		}, nil

	default:
		return nil, nil, &usageError{msg: fmt.Sprintf("未知存储后端 %q", cfg.Backend)}
	}
}
