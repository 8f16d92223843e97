// Command soursound runs the SourSound ambient noise bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrWong99/soursound/internal/app"
	"github.com/MrWong99/soursound/internal/config"
	"github.com/MrWong99/soursound/internal/health"
	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultConfigPath = "config.yaml"

var rootCmd = &cobra.Command{
	Use:   "soursound",
	Short: "SourSound - ambient noise for Discord voice channels",
	Long: `soursound joins Discord voice channels and plays generated brown, pink or
white noise, controlled through chat commands, a quick-select menu and a
button remote.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands until interrupted",
	RunE:  runBot,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in noise presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printPresets(cmd.OutOrStdout(), noise.DefaultCatalog())
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and locate ffmpeg",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ffmpeg := health.Binary("ffmpeg", cfg.Generator.FFmpegPath)
		if err := ffmpeg.Check(cmd.Context()); err != nil {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "soursound", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to the YAML configuration file")
	rootCmd.AddCommand(runCmd, presetsCmd, checkConfigCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the --config file. When the flag was left at its default
// and the file does not exist, the config comes from defaults and the
// environment alone. The returned path is empty in that case.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.LoadFromReader(strings.NewReader(""))
		if err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	return nil, "", err
}

func runBot(cmd *cobra.Command, _ []string) error {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level.Set(cfg.Server.LogLevel.Level())

	slog.Info("soursound starting",
		"version", version,
		"config", path,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, provider, err := newApp(ctx, cfg, level)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if path != "" {
		watcher, err := config.NewWatcher(path, application.ApplyConfig)
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer watcher.Stop()
			go reloadOnHangup(ctx, watcher)
		}
	}

	printStartupSummary(cmd, cfg)

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return err
	}
	slog.Info("goodbye")
	return nil
}

// newApp installs the telemetry providers and wires the application. The
// provider is shut down again when wiring fails.
func newApp(ctx context.Context, cfg *config.Config, level *slog.LevelVar) (*app.App, *observe.Provider, error) {
	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}
	application, err := app.New(ctx, cfg,
		app.WithLevel(level),
		app.WithMetricsHandler(provider.Handler()),
	)
	if err != nil {
		return nil, nil, errors.Join(err, provider.Shutdown(ctx))
	}
	return application, provider, nil
}

// reloadOnHangup forces a config reload on every SIGHUP until ctx ends.
func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			applied, err := w.Reload()
			switch {
			case err != nil:
				slog.Warn("config reload failed, keeping previous config", "err", err)
			case applied:
				slog.Info("config reloaded")
			default:
				slog.Info("config unchanged")
			}
		}
	}
}

func printPresets(out io.Writer, catalog *noise.Catalog) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tLOWPASS\tHIGHPASS\tVOLUME\tDESCRIPTION")
	for _, p := range catalog.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d Hz\t%d Hz\t%g\t%s\n",
			p.ID, p.Label, p.Color.Label(), p.LowpassHz, p.HighpassHz, p.Volume, p.Description)
	}
	return tw.Flush()
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	row := func(label, value string) {
		if len(value) > 19 {
			value = value[:16] + "…"
		}
		fmt.Fprintf(out, "║ %-15s : %-19s ║\n", label, value)
	}

	fmt.Fprintln(out, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(out, "║        SourSound startup summary      ║")
	fmt.Fprintln(out, "╠═══════════════════════════════════════╣")
	row("Prefix", cfg.Discord.Prefix)
	row("Status", cfg.Discord.Status)
	row("ffmpeg", cfg.Generator.FFmpegPath)
	row("Realtime input", fmt.Sprint(cfg.Generator.RealtimeEnabled()))
	row("Menu timeout", cfg.QuickSelect.Timeout.String())
	row("Presets", fmt.Sprint(noise.DefaultCatalog().Len()))
	if cfg.Server.ListenAddr != "" {
		row("Listen addr", cfg.Server.ListenAddr)
	} else {
		row("Listen addr", "(disabled)")
	}
	fmt.Fprintln(out, "╚═══════════════════════════════════════╝")
}
