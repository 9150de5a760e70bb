package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/omeyang/xmutex/pkg/distributed/xmutex"
)

func TestCreateCommands(t *testing.T) {
	cmds := createCommands()
	if len(cmds) == 0 {
		t.Fatal("createCommands returned empty slice")
	}

	names := make(map[string]bool)
	for _, cmd := range cmds {
		names[cmd.Name] = true
	}

	for _, name := range []string{"acquire", "release", "status", "demo"} {
		if !names[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestUsageError(t *testing.T) {
	err := &usageError{msg: "test error"}
	if err.Error() != "test error" {
		t.Errorf("usageError.Error() = %q, want %q", err.Error(), "test error")
	}

	var target *usageError
	if !errors.As(err, &target) {
		t.Error("errors.As failed for *usageError")
	}
}

func TestSplitEndpoints(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "127.0.0.1:2379", []string{"127.0.0.1:2379"}},
		{"multiple", "a:2379,b:2379", []string{"a:2379", "b:2379"}},
		{"spaces", " a:2379 , b:2379 ", []string{"a:2379", "b:2379"}},
		{"trailing_comma", "a:2379,", []string{"a:2379"}},
		{"only_commas", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitEndpoints(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitEndpoints(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Backend != backendBolt {
		t.Errorf("Backend = %q, want %q", cfg.Backend, backendBolt)
	}
	if cfg.Collection != xmutex.DefaultCollection {
		t.Errorf("Collection = %q, want %q", cfg.Collection, xmutex.DefaultCollection)
	}
	if cfg.Expiry != xmutex.DefaultExpiry {
		t.Errorf("Expiry = %v, want %v", cfg.Expiry, xmutex.DefaultExpiry)
	}
	if cfg.SpinDelay != xmutex.DefaultSpinDelay {
		t.Errorf("SpinDelay = %v, want %v", cfg.SpinDelay, xmutex.DefaultSpinDelay)
	}
}

func TestLoadConfigFile(t *testing.T) {
	content := `
backend: redis
collection: jobs
expiry: 30s
spin_delay: 100ms
bolt:
  path: /tmp/test.db
redis:
  addr: 10.0.0.1:6379
etcd:
  endpoints:
    - 10.0.0.1:2379
    - 10.0.0.2:2379
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	if err := loadConfigFile(cfg, path); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.Backend != "redis" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "redis")
	}
	if cfg.Collection != "jobs" {
		t.Errorf("Collection = %q, want %q", cfg.Collection, "jobs")
	}
	if cfg.Expiry != 30*time.Second {
		t.Errorf("Expiry = %v, want 30s", cfg.Expiry)
	}
	if cfg.SpinDelay != 100*time.Millisecond {
		t.Errorf("SpinDelay = %v, want 100ms", cfg.SpinDelay)
	}
	if cfg.BoltPath != "/tmp/test.db" {
		t.Errorf("BoltPath = %q, want %q", cfg.BoltPath, "/tmp/test.db")
	}
	if cfg.RedisAddr != "10.0.0.1:6379" {
		t.Errorf("RedisAddr = %q, want %q", cfg.RedisAddr, "10.0.0.1:6379")
	}
	want := []string{"10.0.0.1:2379", "10.0.0.2:2379"}
	if !reflect.DeepEqual(cfg.EtcdEndpoints, want) {
		t.Errorf("EtcdEndpoints = %v, want %v", cfg.EtcdEndpoints, want)
	}
}

func TestLoadConfigFilePartial(t *testing.T) {
	// 文件只给出部分字段时，其余保持默认值
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	if err := loadConfigFile(cfg, path); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	if cfg.Backend != backendMemory {
		t.Errorf("Backend = %q, want %q", cfg.Backend, backendMemory)
	}
	if cfg.Expiry != xmutex.DefaultExpiry {
		t.Errorf("Expiry = %v, want default %v", cfg.Expiry, xmutex.DefaultExpiry)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Errorf("RedisAddr = %q, want default", cfg.RedisAddr)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg := defaultConfig()
	err := loadConfigFile(cfg, filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("loadConfigFile with missing file should return error")
	}
}

func TestOpenStoreMemory(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend = backendMemory

	st, cleanup, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer cleanup()

	if st == nil {
		t.Fatal("openStore returned nil store")
	}
	if err := st.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend = "cassandra"

	_, _, err := openStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("openStore with unknown backend should return error")
	}
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

// runApp 以给定参数运行完整 CLI 应用。
func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := createApp()
	return app.Run(context.Background(), append([]string{"xmutexctl"}, args...))
}

func TestAppAcquireRelease(t *testing.T) {
	// 内存后端下 acquire 会加锁并在命令内释放
	if err := runApp(t, "--backend", "memory", "acquire", "--name", "app-acquire"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := runApp(t, "--backend", "memory", "release", "--name", "app-acquire"); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestAppStatusNeverLocked(t *testing.T) {
	if err := runApp(t, "--backend", "memory", "status", "--name", "never-locked"); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestAppMissingName(t *testing.T) {
	err := runApp(t, "--backend", "memory", "acquire")
	if err == nil {
		t.Fatal("acquire without --name should return error")
	}
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

func TestAppInvalidBackend(t *testing.T) {
	err := runApp(t, "--backend", "cassandra", "status", "--name", "x")
	if err == nil {
		t.Fatal("unknown backend should return error")
	}
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

func TestAppDemo(t *testing.T) {
	err := runApp(t, "--backend", "memory", "demo",
		"--name", "app-demo", "--workers", "3", "--rounds", "2")
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
}

func TestAppDemoInvalidArgs(t *testing.T) {
	err := runApp(t, "--backend", "memory", "demo", "--workers", "0")
	if err == nil {
		t.Fatal("demo with zero workers should return error")
	}
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected *usageError, got %T: %v", err, err)
	}
}

func TestAppFlagOverridesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: cassandra\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// flag 优先于配置文件：文件里的非法后端被 --backend 覆盖
	err := runApp(t, "--config", path, "--backend", "memory",
		"status", "--name", "precedence")
	if err != nil {
		t.Fatalf("status with flag override: %v", err)
	}
}
