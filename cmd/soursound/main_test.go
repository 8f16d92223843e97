package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/soursound/internal/config"
	"github.com/MrWong99/soursound/internal/noise"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringP("config", "c", defaultConfigPath, "")
	return cmd
}

func TestPrintPresets(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	catalog := noise.DefaultCatalog()
	if err := printPresets(&buf, catalog); err != nil {
		t.Fatalf("printPresets: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "ID") {
		t.Errorf("missing header: %q", out)
	}
	for _, p := range catalog.All() {
		if !strings.Contains(out, p.ID) {
			t.Errorf("preset %q missing from output", p.ID)
		}
	}
	if lines := strings.Count(out, "\n"); lines != catalog.Len()+1 {
		t.Errorf("got %d lines, want %d", lines, catalog.Len()+1)
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "soursound.yaml")
	if err := os.WriteFile(path, []byte("discord:\n  token: abc\n  prefix: \"!\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cmd := newTestCmd()
	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatal(err)
	}

	cfg, got, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	if cfg.Discord.Prefix != "!" {
		t.Errorf("prefix = %q", cfg.Discord.Prefix)
	}
}

func TestLoadConfig_ExplicitMissingFails(t *testing.T) {
	t.Parallel()
	cmd := newTestCmd()
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadConfig(cmd); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestLoadConfig_DefaultMissingFallsBackToEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.TokenEnv, "from-env")

	cfg, path, err := loadConfig(newTestCmd())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Discord.Token != "from-env" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Discord.Prefix != config.DefaultPrefix {
		t.Errorf("prefix = %q", cfg.Discord.Prefix)
	}
}

func TestNewApp_WiresTelemetry(t *testing.T) {
	origMP := otel.GetMeterProvider()
	origTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(origMP)
		otel.SetTracerProvider(origTP)
	})

	cfg, err := config.LoadFromReader(strings.NewReader("discord:\n  token: test-token\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	ctx := context.Background()
	application, provider, err := newApp(ctx, cfg, new(slog.LevelVar))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() {
		_ = application.Shutdown(ctx)
		_ = provider.Shutdown(ctx)
	})

	h := application.HTTPHandler()
	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestNewApp_MissingToken(t *testing.T) {
	origMP := otel.GetMeterProvider()
	origTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(origMP)
		otel.SetTracerProvider(origTP)
	})

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if _, _, err := newApp(context.Background(), cfg, new(slog.LevelVar)); err == nil {
		t.Fatal("newApp succeeded without a token")
	}
}
