// Package generator supervises the external ffmpeg processes that synthesise
// noise for each session.
//
// A [Supervisor] holds at most one live [Handle] per session key. Starting a
// generator for a key that already has one kills the old process first and
// only then publishes the new handle, under a per-key lock, so two live
// generators for the same session never coexist in the registry.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
)

// ErrUnavailable is returned when the generator binary cannot be launched.
var ErrUnavailable = errors.New("generator: unavailable")

// DefaultPath is the generator binary looked up on PATH when none is configured.
const DefaultPath = "ffmpeg"

// exitGrace bounds how long Terminate waits for a killed process to be reaped.
const exitGrace = 2 * time.Second

// Handle is one running generator.
type Handle struct {
	key      string
	settings noise.Settings
	started  time.Time
	proc     Process
	exited   chan struct{}
}

// Key returns the session key the handle belongs to.
func (h *Handle) Key() string { return h.key }

// Settings returns the parameters the process was launched with.
func (h *Handle) Settings() noise.Settings { return h.settings }

// Started returns the launch time.
func (h *Handle) Started() time.Time { return h.started }

// PID returns the process ID.
func (h *Handle) PID() int { return h.proc.PID() }

// Stdout is the raw PCM output of the generator.
func (h *Handle) Stdout() io.Reader { return h.proc.Stdout() }

// Exited is closed once the process has exited.
func (h *Handle) Exited() <-chan struct{} { return h.exited }

// Option configures a [Supervisor].
type Option func(*Supervisor)

// WithPath sets the generator binary. Default: [DefaultPath].
func WithPath(path string) Option {
	return func(s *Supervisor) {
		if path != "" {
			s.path = path
		}
	}
}

// WithRealtime makes generators pace their output to wall-clock time.
func WithRealtime(realtime bool) Option {
	return func(s *Supervisor) { s.realtime = realtime }
}

// WithLauncher replaces the process launcher. Default: [ExecLauncher].
func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) { s.launcher = l }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithBreaker tunes the launch breaker: after failures consecutive failed
// launches, further launches fail fast for cooldown. Zero values keep
// [DefaultBreakerFailures] and [DefaultBreakerCooldown].
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(s *Supervisor) { s.breaker = newBreaker(failures, cooldown) }
}

// WithProber replaces the process statistics source. Default: gopsutil.
func WithProber(p Prober) Option {
	return func(s *Supervisor) { s.prober = p }
}

// Supervisor launches and kills generators. All methods are safe for
// concurrent use.
type Supervisor struct {
	path     string
	realtime bool
	launcher Launcher
	metrics  *observe.Metrics
	prober   Prober
	breaker  *breaker

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	handles map[string]*Handle
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		path:     DefaultPath,
		realtime: true,
		launcher: ExecLauncher{},
		prober:   gopsutilProber{},
		breaker:  newBreaker(0, 0),
		locks:    make(map[string]*sync.Mutex),
		handles:  make(map[string]*Handle),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Path returns the configured generator binary.
func (s *Supervisor) Path() string { return s.path }

func (s *Supervisor) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Start replaces the generator for key with one rendering settings. Any
// existing generator for key is terminated before the new one is launched.
// A launch failure leaves key without a generator and returns an error
// wrapping [ErrUnavailable]; there is no retry. While the launch breaker is
// open the error also wraps [ErrLaunchSuspended] and nothing is spawned.
func (s *Supervisor) Start(ctx context.Context, key string, settings noise.Settings) (*Handle, error) {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()

	start := time.Now()
	s.terminateLocked(ctx, key)

	if err := s.breaker.allow(); err != nil {
		s.metrics.RecordGeneratorStart(ctx, time.Since(start), err)
		return nil, fmt.Errorf("generator: start %q: %w: %w", key, ErrUnavailable, err)
	}
	proc, err := s.launcher.Launch(ctx, s.path, Args(settings, s.realtime))
	s.breaker.record(err)
	s.metrics.RecordGeneratorStart(ctx, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("generator: start %q: %w: %w", key, ErrUnavailable, err)
	}

	h := &Handle{
		key:      key,
		settings: settings,
		started:  time.Now(),
		proc:     proc,
		exited:   make(chan struct{}),
	}
	go s.reap(h)

	s.mu.Lock()
	s.handles[key] = h
	s.mu.Unlock()

	slog.Debug("generator started", "guild", key, "pid", proc.PID(),
		"color", settings.Color, "lowpass", settings.LowpassHz,
		"highpass", settings.HighpassHz, "volume", settings.Volume)
	return h, nil
}

func (s *Supervisor) reap(h *Handle) {
	err := h.proc.Wait()
	close(h.exited)
	slog.Debug("generator exited", "guild", h.key, "pid", h.proc.PID(), "err", err)
}

// Terminate kills the generator for key, if any, and forgets it. A process
// that already exited on its own is not an error. Terminate without a live
// generator is a no-op.
func (s *Supervisor) Terminate(ctx context.Context, key string) {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()
	s.terminateLocked(ctx, key)
}

// terminateLocked requires the key lock.
func (s *Supervisor) terminateLocked(ctx context.Context, key string) {
	s.mu.Lock()
	h, ok := s.handles[key]
	delete(s.handles, key)
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := h.proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		slog.Warn("generator: kill failed", "guild", key, "pid", h.proc.PID(), "err", err)
	}
	select {
	case <-h.exited:
	case <-time.After(exitGrace):
		slog.Warn("generator: process did not exit after kill", "guild", key, "pid", h.proc.PID())
	}
	if err := h.proc.Close(); err != nil {
		slog.Debug("generator: close stdout", "guild", key, "err", err)
	}
	s.metrics.RecordGeneratorKill(ctx)
}

// BreakerState reports the launch breaker mode.
func (s *Supervisor) BreakerState() BreakerState { return s.breaker.current() }

// Healthy fails with [ErrLaunchSuspended] while launches are being
// rejected. It has the shape of a readiness check.
func (s *Supervisor) Healthy(context.Context) error {
	if s.breaker.current() == BreakerOpen {
		return ErrLaunchSuspended
	}
	return nil
}

// Current returns the live handle for key, or nil.
func (s *Supervisor) Current(key string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[key]
}

// Keys returns the keys that currently own a generator, sorted.
func (s *Supervisor) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.handles))
	for k := range s.handles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close terminates every generator.
func (s *Supervisor) Close(ctx context.Context) {
	for _, key := range s.Keys() {
		s.Terminate(ctx, key)
	}
}
