package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tamerun/internal/config"
	"tamerun/internal/core"
	"tamerun/internal/log"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		err  error
	}{
		{in: "sqlite", want: KindSQLite},
		{in: " MySQL ", want: KindMySQL},
		{in: "memory", want: KindMemory},
		{in: "sheets", err: ErrUnknownKind},
		{in: "", err: ErrUnknownKind},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if !errors.Is(err, tt.err) || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, %v", tt.in, got, err, tt.want, tt.err)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "mysql"}); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "mysql", MySQLDSN: "u:p@tcp(db:3306)/tamerun"})
	if err != nil || cfg.Kind != KindMySQL || cfg.MySQLDSN == "" {
		t.Fatalf("unexpected result %+v %v", cfg, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg  Config
		want error
	}{
		{Config{Kind: KindMemory}, nil},
		{Config{Kind: KindSQLite, SQLitePath: "x.db"}, nil},
		{Config{Kind: KindSQLite}, ErrMissingSource},
		{Config{Kind: KindMySQL}, ErrMissingSource},
		{Config{Kind: "csv"}, ErrUnknownKind},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); !errors.Is(err, tt.want) {
			t.Errorf("Validate(%+v) = %v, want %v", tt.cfg, err, tt.want)
		}
	}
}

func TestMySQLAddrHidesCredentials(t *testing.T) {
	if got := mysqlAddr("user:secret@tcp(db:3306)/tamerun?parseTime=true"); got != "tcp(db:3306)/tamerun" {
		t.Fatalf("mysqlAddr = %q", got)
	}
	if got := mysqlAddr("::::"); got != "unparsed" {
		t.Fatalf("mysqlAddr = %q", got)
	}
}

func TestOpen(t *testing.T) {
	f := NewFactory(log.Discard())
	ctx := context.Background()

	for _, cfg := range []Config{
		{Kind: KindMemory},
		{Kind: KindSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "t.db")},
	} {
		res, err := f.Open(ctx, cfg)
		if err != nil {
			t.Fatalf("%s: %v", cfg.Kind, err)
		}
		cats, err := res.Store.ListCategories(ctx, core.KindExpense)
		if err != nil || len(cats) == 0 {
			t.Fatalf("%s: expected seeded categories, got %d (%v)", cfg.Kind, len(cats), err)
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("%s: cleanup: %v", cfg.Kind, err)
		}
	}

	if _, err := f.Open(ctx, Config{Kind: KindMySQL}); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
