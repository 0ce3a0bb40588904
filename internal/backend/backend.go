// Package backend opens the transaction store selected by DATA_BACKEND.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"tamerun/internal/config"
	"tamerun/internal/ports"
)

type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMySQL  Kind = "mysql"
	KindMemory Kind = "memory"
)

var (
	ErrUnknownKind   = errors.New("unknown data backend")
	ErrMissingSource = errors.New("data source not configured")
)

// ParseKind accepts the DATA_BACKEND values, ignoring case and padding.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSQLite, KindMySQL, KindMemory:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

type Config struct {
	Kind       Kind
	SQLitePath string
	MySQLDSN   string
}

func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("nil app config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Config{}, err
	}
	c := Config{Kind: kind, SQLitePath: cfg.SQLiteDBPath, MySQLDSN: cfg.MySQLDSN}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Kind {
	case KindSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_DB_PATH", ErrMissingSource)
		}
	case KindMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("%w: MYSQL_DSN", ErrMissingSource)
		}
	case KindMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	return nil
}

// Result is an opened store and the function that releases it.
type Result struct {
	Store   ports.Store
	Cleanup func() error
}
