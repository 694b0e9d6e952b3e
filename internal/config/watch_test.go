package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "config.yaml")
	ctx, cancel := context.WithCancel(context.Background())

	changes := make(chan Config, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchPath(ctx, path, func(c Config) { changes <- c })
	}()

	// The watcher may not be registered yet, so keep writing until it
	// notices. Each write resets the debounce, so writes are spaced wider.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(3 * watchDebounce)
	defer tick.Stop()
	var got Config
	for i := 0; ; i++ {
		select {
		case got = <-changes:
		case <-tick.C:
			if err := os.WriteFile(path, []byte(fmt.Sprintf("log.level: debug\nsearch.page_size: %d\n", 20+i)), 0o600); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			continue
		case <-deadline:
			t.Fatal("config change was not observed")
		}
		break
	}

	if got.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", got.Log.Level)
	}
	if got.Search.PageSize < 20 {
		t.Errorf("PageSize = %d, want reloaded value", got.Search.PageSize)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watchPath returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watchPath did not stop after cancel")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	called := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchPath(ctx, path, func(Config) { called <- struct{}{} })
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600); err != nil {
		t.Fatalf("writing other file: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("watchPath: %v", err)
	}
	select {
	case <-called:
		t.Error("onChange called for an unrelated file")
	default:
	}
}
