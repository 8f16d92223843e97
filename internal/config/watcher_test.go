package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/soursound/internal/config"
)

const (
	watchBase = "server:\n  log_level: info\ndiscord:\n  token: t\nquick_select:\n  timeout: 2m\n"
	watchNext = "server:\n  log_level: debug\ndiscord:\n  token: t\n  status: Snoises\nquick_select:\n  timeout: 30s\n"
	watchBad  = "server:\n  log_level: bananas\ndiscord:\n  token: t\n"
)

// changes collects watcher callbacks.
type changes struct {
	mu   sync.Mutex
	got  []config.ConfigDiff
	seen chan struct{}
}

func newChanges() *changes { return &changes{seen: make(chan struct{}, 16)} }

func (c *changes) record(old, new *config.Config) {
	c.mu.Lock()
	c.got = append(c.got, config.Diff(old, new))
	c.mu.Unlock()
	c.seen <- struct{}{}
}

func (c *changes) all() []config.ConfigDiff {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]config.ConfigDiff(nil), c.got...)
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// startWatcher writes watchBase and watches it. The default interval is
// long enough that only Reload triggers checks.
func startWatcher(t *testing.T, opts ...config.WatcherOption) (*config.Watcher, string, *changes) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soursound.yaml")
	writeConfig(t, path, watchBase)

	ch := newChanges()
	opts = append([]config.WatcherOption{config.WithInterval(time.Hour)}, opts...)
	w, err := config.NewWatcher(path, ch.record, opts...)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, path, ch
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _, ch := startWatcher(t)

	cur := w.Current()
	if cur.Server.LogLevel != config.LogInfo || cur.QuickSelect.Timeout != 2*time.Minute {
		t.Errorf("Current() = %+v", cur)
	}
	if cur.Discord.Prefix != config.DefaultPrefix {
		t.Errorf("defaults not applied: prefix %q", cur.Discord.Prefix)
	}
	if n := len(ch.all()); n != 0 {
		t.Errorf("initial load fired %d callbacks", n)
	}
}

func TestWatcher_InitialLoadErrors(t *testing.T) {
	t.Parallel()
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeConfig(t, bad, watchBad)

	for _, path := range []string{"/nonexistent/soursound.yaml", bad} {
		if _, err := config.NewWatcher(path, nil); err == nil {
			t.Errorf("NewWatcher(%s) succeeded", path)
		}
	}
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()
	w, path, ch := startWatcher(t)

	if applied, err := w.Reload(); err != nil || applied {
		t.Fatalf("Reload() of unchanged file = %v, %v; want false, nil", applied, err)
	}

	writeConfig(t, path, watchNext)
	if applied, err := w.Reload(); err != nil || !applied {
		t.Fatalf("Reload() = %v, %v; want true, nil", applied, err)
	}
	diffs := ch.all()
	if len(diffs) != 1 {
		t.Fatalf("callbacks = %d, want 1", len(diffs))
	}
	d := diffs[0]
	if !d.LogLevelChanged || !d.StatusChanged || d.NewQuickSelectTimeout != 30*time.Second {
		t.Errorf("diff = %+v", d)
	}

	writeConfig(t, path, watchBad)
	if _, err := w.Reload(); err == nil {
		t.Error("Reload() of invalid file succeeded")
	}
	if got := w.Current().Discord.Status; got != "Snoises" {
		t.Errorf("Current() status = %q, want the last valid config", got)
	}
	if n := len(ch.all()); n != 1 {
		t.Errorf("invalid file fired callbacks: %d total", n)
	}
}

func TestWatcher_PollsForChanges(t *testing.T) {
	t.Parallel()
	w, path, ch := startWatcher(t, config.WithInterval(20*time.Millisecond))

	// Keep mtimes distinct on filesystems with coarse timestamps.
	writeConfig(t, path, watchNext)
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	select {
	case <-ch.seen:
	case <-time.After(3 * time.Second):
		t.Fatal("poll did not pick up the change")
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Errorf("Current() log level = %q", w.Current().Server.LogLevel)
	}
}

func TestWatcher_TouchWithoutChange(t *testing.T) {
	t.Parallel()
	_, path, ch := startWatcher(t, config.WithInterval(20*time.Millisecond))

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if n := len(ch.all()); n != 0 {
		t.Errorf("touch fired %d callbacks", n)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	w, _, _ := startWatcher(t)
	w.Stop()
	w.Stop()
}
