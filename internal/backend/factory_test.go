package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrax/internal/config"
	"fintrax/internal/sources/memory"
	"fintrax/internal/sources/rest"
	"fintrax/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.DataBackend = config.BackendREST
	app.BackendURL = "http://backend:8080"
	app.BackendTimeout = 3 * time.Second

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != REST || cfg.BaseURL != "http://backend:8080" || cfg.Timeout != 3*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: Memory}, ""},
		{"rest", Config{Type: REST, BaseURL: "http://x"}, ""},
		{"rest without url", Config{Type: REST}, "base URL is required"},
		{"sqlite without path", Config{Type: SQLite}, "database path is required"},
		{"unknown", Config{Type: "sheets"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFactoryCreate(t *testing.T) {
	f := NewFactory(testLogger())
	ctx := context.Background()

	res, err := f.Create(ctx, Config{Type: Memory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := res.Backend.(*memory.Store); !ok || res.Close() != nil {
		t.Errorf("memory result = %+v", res)
	}

	res, err = f.Create(ctx, Config{Type: REST, BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if _, ok := res.Backend.(*rest.Client); !ok {
		t.Errorf("rest backend = %T", res.Backend)
	}
	if err := res.Ping(ctx); err != nil {
		t.Errorf("rest Ping() = %v, want nil for backends without health checks", err)
	}

	res, err = f.Create(ctx, Config{Type: SQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "f.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer res.Close()
	if _, ok := res.Backend.(*storage.SQLiteRepository); !ok {
		t.Errorf("sqlite backend = %T", res.Backend)
	}
	if err := res.Ping(ctx); err != nil {
		t.Errorf("sqlite Ping() = %v", err)
	}

	if _, err := f.Create(ctx, Config{Type: Memory, SeedFile: "/non/existent.yaml"}); err == nil {
		t.Error("expected error for missing seed file")
	}
}
