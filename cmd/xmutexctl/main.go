// xmutexctl 是 xmutex 分布式锁的命令行工具，用于演示与运维检视。
//
// 用法:
//
//	xmutexctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config     YAML 配置文件路径（flag 优先于配置文件）
//	-b, --backend    存储后端: memory | bolt | redis | etcd (默认: bolt)
//	    --collection 锁记录集合名 (默认: mutexes)
//	    --expiry     锁过期时间 (默认: 10s)
//	    --spin-delay 自旋间隔 (默认: 50ms)
//	    --bolt-path  bolt 数据库文件路径 (默认: 用户缓存目录下的 xmutex.db)
//	    --redis-addr Redis 地址 (默认: 127.0.0.1:6379)
//	    --etcd-endpoints etcd 端点，逗号分隔 (默认: 127.0.0.1:2379)
//	-t, --timeout    单次操作超时 (默认: 30s，0 表示不限)
//	-v, --verbose    输出 Debug 级别日志
//
// 命令:
//
//	acquire --name <锁名> [--hold <时长>]  获取锁，可选持有一段时间后释放
//	release --name <锁名>                  无条件释放（无归属校验，任何人可释放）
//	status  --name <锁名>                  查看锁记录当前状态
//	demo    [--workers N] [--rounds K]     进程内竞争演示，验证互斥
//
// 退出码:
//
//	0: 命令执行成功（acquire: 成功获取）
//	1: 命令执行失败（获取超时、存储不可达等）
//	2: 参数错误（缺少 --name、未知后端等）
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// defaultTimeout 默认单次操作超时。
const defaultTimeout = 30 * time.Second

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xmutexctl",
		Usage:   "xmutex 分布式锁命令行工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML 配置文件路径",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "存储后端 (memory|bolt|redis|etcd)",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "锁记录集合名",
			},
			&cli.DurationFlag{
				Name:  "expiry",
				Usage: "锁过期时间",
			},
			&cli.DurationFlag{
				Name:  "spin-delay",
				Usage: "自旋间隔",
			},
			&cli.StringFlag{
				Name:  "bolt-path",
				Usage: "bolt 数据库文件路径",
			},
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "Redis 地址",
			},
			&cli.StringFlag{
				Name:  "etcd-endpoints",
				Usage: "etcd 端点，逗号分隔",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "单次操作超时（0 表示不限）",
				Value:   defaultTimeout,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "输出 Debug 级别日志",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		Authors: []any{
			"xmutex Team",
		},
		// 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(ctx, cancel)

	if err := app.Run(ctx, os.Args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if _, ok := err.(cli.ExitCoder); ok {
			// ExitErrHandler 已输出错误详情
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// setupSignalHandler 监听退出信号，触发 context 取消以中断自旋等待。
func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
}

// newLogger 构建输出到 stderr 的 JSON 日志器。
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// usageError 表示参数错误（退出码 2）。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
