// Package app wires all SourSound subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the chat gateway and the HTTP endpoints, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithGateway,
// WithLauncher, etc.). When an option is not provided, New creates the real
// Discord-backed implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/soursound/internal/config"
	"github.com/MrWong99/soursound/internal/control"
	"github.com/MrWong99/soursound/internal/discord"
	"github.com/MrWong99/soursound/internal/generator"
	"github.com/MrWong99/soursound/internal/health"
	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
	"github.com/MrWong99/soursound/internal/playback"
	"github.com/MrWong99/soursound/internal/remote"
	"github.com/MrWong99/soursound/internal/session"
	"github.com/MrWong99/soursound/pkg/audio"
)

// shutdownGrace bounds the HTTP server drain.
const shutdownGrace = 10 * time.Second

// Gateway is the chat connection the app is driven by. *discord.Bot
// implements it.
type Gateway interface {
	Run(ctx context.Context, router discord.Router) error
	Ready() bool
	SetStatus(text string) error
	Close() error
}

var _ Gateway = (*discord.Bot)(nil)

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	level   *slog.LevelVar
	metrics *observe.Metrics

	gateway  Gateway
	platform audio.Platform
	chat     control.Chat
	voice    control.VoiceLocator
	messages remote.MessageAPI
	launcher generator.Launcher
	metricsH http.Handler

	registry   *session.Registry
	supervisor *generator.Supervisor
	playback   *playback.Manager
	panels     *remote.Synchronizer
	handler    *control.Handler
	health     *health.Handler

	stopOnce sync.Once
	stopErr  error
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithGateway injects the chat gateway together with the surfaces normally
// taken from the Discord bot. All four must be given when the bot is
// replaced.
func WithGateway(g Gateway, platform audio.Platform, chat control.Chat, voice control.VoiceLocator, messages remote.MessageAPI) Option {
	return func(a *App) {
		a.gateway, a.platform, a.chat, a.voice, a.messages = g, platform, chat, voice, messages
	}
}

// WithLauncher replaces the ffmpeg process launcher.
func WithLauncher(l generator.Launcher) Option {
	return func(a *App) { a.launcher = l }
}

// WithLevel makes log level hot reloads act on lv.
func WithLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithMetrics records into m instead of the global meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsH = h }
}

// New creates an App by wiring all subsystems together.
func New(_ context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
		a.level.Set(cfg.Server.LogLevel.Level())
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.gateway == nil {
		bot, err := discord.New(discord.Config{Token: cfg.Discord.Token, Status: cfg.Discord.Status})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.gateway = bot
		a.platform = bot.Platform()
		a.chat = bot.Chat()
		a.voice = bot.Voice()
		a.messages = bot.Session()
	}

	genOpts := []generator.Option{
		generator.WithPath(cfg.Generator.FFmpegPath),
		generator.WithRealtime(cfg.Generator.RealtimeEnabled()),
		generator.WithMetrics(a.metrics),
	}
	if a.launcher != nil {
		genOpts = append(genOpts, generator.WithLauncher(a.launcher))
	}

	catalog := noise.DefaultCatalog()
	a.registry = session.NewRegistry()
	a.supervisor = generator.NewSupervisor(genOpts...)
	a.playback = playback.NewManager(a.platform, a.supervisor, a.metrics)
	a.panels = remote.NewSynchronizer(a.messages, catalog, a.metrics)
	a.handler = control.New(control.Config{
		Prefix:             cfg.Discord.Prefix,
		QuickSelectTimeout: cfg.QuickSelect.Timeout,
		Registry:           a.registry,
		Catalog:            catalog,
		Playback:           a.playback,
		Panels:             a.panels,
		Stats:              a.supervisor,
		Chat:               a.chat,
		Voice:              a.voice,
		Metrics:            a.metrics,
	})
	a.health = health.New(
		health.Ready("discord", a.gateway.Ready),
		health.Binary("ffmpeg", a.supervisor.Path()),
		health.Checker{Name: "generator", Check: a.supervisor.Healthy},
	)

	slog.Info("app initialised",
		"prefix", cfg.Discord.Prefix,
		"ffmpeg", a.supervisor.Path(),
		"realtime", cfg.Generator.RealtimeEnabled(),
		"presets", catalog.Len(),
	)
	return a, nil
}

// Handler returns the command router.
func (a *App) Handler() *control.Handler { return a.handler }

// Registry returns the session registry.
func (a *App) Registry() *session.Registry { return a.registry }

// Playback returns the playback manager.
func (a *App) Playback() *playback.Manager { return a.playback }

// HTTPHandler returns the observability mux: /healthz, /readyz and, when
// configured, /metrics.
func (a *App) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	a.health.Register(mux)
	if a.metricsH != nil {
		mux.Handle("GET /metrics", a.metricsH)
	}
	return observe.Middleware(a.metrics)(mux)
}

// Run serves the gateway and, when server.listen_addr is set, the HTTP
// endpoints. It blocks until ctx is cancelled or one of them fails, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.gateway.Run(gctx, a.handler)
	})

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           a.HTTPHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("http server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	slog.Info("soursound running")
	err := g.Wait()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	return errors.Join(err, a.Shutdown(sctx))
}

// ApplyConfig applies the hot-reloadable differences between old and new
// and warns about the rest.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged {
		a.level.Set(d.NewLogLevel.Level())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.QuickSelectTimeoutChanged {
		a.handler.SetQuickSelectTimeout(d.NewQuickSelectTimeout)
		slog.Info("quick select timeout changed", "timeout", d.NewQuickSelectTimeout)
	}
	if d.StatusChanged {
		if err := a.gateway.SetStatus(d.NewStatus); err != nil {
			slog.Warn("failed to update presence", "err", err)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "fields", d.RestartRequired)
	}
}

// Shutdown stops every session, kills remaining generators and closes the
// gateway. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "sessions", len(a.playback.Keys()))
		a.handler.Close()
		var errs []error
		if err := a.playback.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: leave voice: %w", err))
		}
		a.supervisor.Close(ctx)
		if err := a.gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("app: close gateway: %w", err))
		}
		a.stopErr = errors.Join(errs...)
	})
	return a.stopErr
}
