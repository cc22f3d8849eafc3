package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validWatcherConfig returns minimal valid YAML that passes Load+Validate.
func validWatcherConfig(addr string) string {
	return fmt.Sprintf(`
server:
  address: "%s"
logging:
  level: "info"
`, addr)
}

// writeFile is a helper that writes content to a file.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, validWatcherConfig(":3000"))

	var received atomic.Int64
	var mu sync.Mutex
	var lastCfg *Config

	w := NewWatcher(cfgPath, func(newCfg *Config) {
		mu.Lock()
		lastCfg = newCfg
		mu.Unlock()
		received.Add(1)
	}, slog.Default())
	w.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx)
	}()

	// Give the watcher time to set up.
	time.Sleep(200 * time.Millisecond)

	writeFile(t, cfgPath, validWatcherConfig(":3001"))

	assert.Eventually(t, func() bool { return received.Load() >= 1 }, 3*time.Second, 50*time.Millisecond,
		"expected at least one callback")

	mu.Lock()
	require.NotNil(t, lastCfg)
	assert.Equal(t, ":3001", lastCfg.Server.Address)
	mu.Unlock()
}

func TestWatcher_InvalidConfigKeepsOld(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, validWatcherConfig(":3000"))

	var received atomic.Int64
	w := NewWatcher(cfgPath, func(_ *Config) {
		received.Add(1)
	}, slog.Default())
	w.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	writeFile(t, cfgPath, `{{{bad yaml`)

	// Wait for debounce + reload attempt.
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, int64(0), received.Load(), "callback should NOT fire for invalid config")
}

func TestWatcher_DebouncesManyWrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, validWatcherConfig(":3000"))

	var received atomic.Int64
	w := NewWatcher(cfgPath, func(_ *Config) {
		received.Add(1)
	}, slog.Default())
	w.debounce = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	// Rapid successive writes within the debounce window.
	for i := 0; i < 10; i++ {
		writeFile(t, cfgPath, validWatcherConfig(":3000"))
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(600 * time.Millisecond)

	got := received.Load()
	assert.LessOrEqual(t, got, int64(2),
		"debouncing should coalesce rapid writes into 1-2 callbacks, got %d", got)
}

func TestWatcher_PollingDetectsSymlinkSwap(t *testing.T) {
	// Simulate a Kubernetes-style symlink swap: the config file is a
	// symlink chain dir/config.yaml → ..data/config.yaml, and we
	// swap ..data from one timestamped directory to another.
	dir := t.TempDir()

	ts1 := filepath.Join(dir, "..2026_01")
	ts2 := filepath.Join(dir, "..2026_02")
	require.NoError(t, os.Mkdir(ts1, 0o755))
	require.NoError(t, os.Mkdir(ts2, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ts1, "config.yaml"), []byte(validWatcherConfig(":3000")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ts2, "config.yaml"), []byte(validWatcherConfig(":3002")), 0o644))

	dataLink := filepath.Join(dir, "..data")
	require.NoError(t, os.Symlink(ts1, dataLink))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.Symlink(filepath.Join("..data", "config.yaml"), cfgPath))

	var received atomic.Int64
	w := NewWatcher(cfgPath, func(_ *Config) {
		received.Add(1)
	}, slog.Default())
	w.debounce = 50 * time.Millisecond
	w.pollInterval = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	// Swap the ..data symlink atomically (Kubernetes-style).
	tmpLink := filepath.Join(dir, "..data_tmp")
	require.NoError(t, os.Symlink(ts2, tmpLink))
	require.NoError(t, os.Rename(tmpLink, dataLink))

	assert.Eventually(t, func() bool { return received.Load() >= 1 }, 3*time.Second, 50*time.Millisecond,
		"expected polling to detect symlink swap")
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher("/tmp/nonexistent.yaml", func(_ *Config) {}, slog.Default())
	// Stop before Start — should not panic.
	w.Stop()
	w.Stop()
}

func TestHashFile(t *testing.T) {
	t.Run("returns consistent hash for same content", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "test.txt")
		require.NoError(t, os.WriteFile(f, []byte("hello"), 0o644))

		h1 := hashFile(f)
		h2 := hashFile(f)
		assert.NotEmpty(t, h1)
		assert.Equal(t, h1, h2)
	})

	t.Run("returns different hash for different content", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "test.txt")

		require.NoError(t, os.WriteFile(f, []byte("hello"), 0o644))
		h1 := hashFile(f)

		require.NoError(t, os.WriteFile(f, []byte("world"), 0o644))
		h2 := hashFile(f)

		assert.NotEqual(t, h1, h2)
	})

	t.Run("returns empty string for nonexistent file", func(t *testing.T) {
		assert.Empty(t, hashFile("/tmp/does-not-exist-xyz"))
	})

	t.Run("follows symlinks", func(t *testing.T) {
		dir := t.TempDir()
		real := filepath.Join(dir, "real.txt")
		link := filepath.Join(dir, "link.txt")

		require.NoError(t, os.WriteFile(real, []byte("data"), 0o644))
		require.NoError(t, os.Symlink(real, link))

		assert.Equal(t, hashFile(real), hashFile(link))
	})
}

func TestReadlink(t *testing.T) {
	t.Run("returns target of symlink", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "target")
		link := filepath.Join(dir, "link")
		require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
		require.NoError(t, os.Symlink(target, link))

		assert.Equal(t, target, readlink(link))
	})

	t.Run("returns empty for regular file", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "regular")
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

		assert.Empty(t, readlink(f))
	})

	t.Run("returns empty for nonexistent path", func(t *testing.T) {
		assert.Empty(t, readlink("/tmp/does-not-exist-xyz"))
	})
}
