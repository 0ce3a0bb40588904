package backend

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"tamerun/internal/log"
	"tamerun/internal/storage"
	"tamerun/internal/storage/memory"
)

// Factory opens stores. It only logs; all state lives in the returned Result.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Open validates cfg and opens the store it names. SQL stores are migrated
// before Open returns.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLitePath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened store", "backend", cfg.Kind, "db_path", cfg.SQLitePath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case KindMySQL:
		repo, err := storage.NewMySQLRepository(cfg.MySQLDSN, f.logger)
		if err != nil {
			return nil, fmt.Errorf("open mysql store: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened store", "backend", cfg.Kind, "addr", mysqlAddr(cfg.MySQLDSN))
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	default:
		store := memory.NewDefault()
		f.logger.WarnContext(ctx, "Opened in-memory store, data is lost on exit", "backend", cfg.Kind)
		return &Result{Store: store, Cleanup: store.Close}, nil
	}
}

// mysqlAddr is the DSN with credentials stripped, for logs.
func mysqlAddr(dsn string) string {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "unparsed"
	}
	return parsed.Net + "(" + parsed.Addr + ")/" + parsed.DBName
}
