package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"tamerun/internal/core"
	"tamerun/internal/log"

	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and migration set.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

func (d Dialect) driverName() string {
	return string(d)
}

// Repository implements ports.Store on top of database/sql. The same queries
// run on SQLite and MySQL; amounts travel as decimal strings and dates as
// YYYY-MM-DD text so both dialects compare them the same way.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
	nowFn   func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath, logger)
}

func NewMySQLRepository(dsn string, logger *log.Logger) (*Repository, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	return open(DialectMySQL, dsn, logger)
}

func open(d Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if d == DialectSQLite {
		// A single writer avoids SQLITE_BUSY on concurrent inserts.
		db.SetMaxOpenConns(1)
	}

	return &Repository{
		db:      db,
		dialect: d,
		logger:  logger.WithComponent(log.ComponentStorage),
		nowFn:   time.Now,
	}, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) now() string {
	return r.nowFn().UTC().Format(time.RFC3339)
}

// CreateTransaction implements ports.TransactionWriter
func (r *Repository) CreateTransaction(ctx context.Context, t core.NewTransaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, kind, amount, category_id, date, memo, receipt_image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Kind), t.Amount.StringFixed(2), t.CategoryID, t.Date.String(),
		nullString(t.Memo), nullString(t.ReceiptImageURL), r.now())
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	r.logger.DebugContext(ctx, "Transaction saved",
		log.NewFields().WithTransaction(id, string(t.Kind), t.Amount.String(), t.CategoryID).WithUser(t.UserID).ToSlice()...)
	return id, nil
}

const transactionColumns = `id, user_id, kind, amount, category_id, date, memo, receipt_image_url, created_at, synced_at`

// ListTransactions implements ports.TransactionReader
func (r *Repository) ListTransactions(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction implements ports.TransactionReader
func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		kind      string
		date      string
		memo      sql.NullString
		imageURL  sql.NullString
		createdAt string
		syncedAt  sql.NullString
	)
	if err := s.Scan(&t.ID, &t.UserID, &kind, &t.Amount, &t.CategoryID, &date, &memo, &imageURL, &createdAt, &syncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	t.Kind = core.Kind(kind)
	t.Date = d
	t.Memo = memo.String
	t.ReceiptImageURL = imageURL.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.Synced = syncedAt.Valid
	return t, nil
}

// ListCategories implements ports.CategoryReader
func (r *Repository) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	query := `SELECT id, name, icon, color, kind, display_order FROM categories`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY kind, display_order, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c     core.Category
			ckind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &ckind, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.Kind(ckind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// ListGoals implements ports.GoalStore
func (r *Repository) ListGoals(ctx context.Context, userID string, activeOnly bool) ([]core.SavingsGoal, error) {
	query := `SELECT id, user_id, name, target_amount, current_amount, deadline, is_active
		FROM savings_goals WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var (
			g        core.SavingsGoal
			deadline sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &g.Current, &deadline, &g.Active); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.Deadline, err = core.ParseDate(deadline.String); err != nil {
			return nil, fmt.Errorf("goal %d: %w", g.ID, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// CreateGoal implements ports.GoalStore
func (r *Repository) CreateGoal(ctx context.Context, g core.NewGoal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_goals (user_id, name, target_amount, current_amount, deadline, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, strings.TrimSpace(g.Name), g.Target.StringFixed(2), g.Current.StringFixed(2),
		nullString(g.Deadline.String()), true, r.now())
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return res.LastInsertId()
}

// AddToGoal implements ports.GoalStore
func (r *Repository) AddToGoal(ctx context.Context, userID string, goalID int64, amount decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var current decimal.Decimal
	err = tx.QueryRowContext(ctx, r.selectGoalForUpdate(), goalID, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("goal %d: %w", goalID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read goal: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount = ? WHERE id = ? AND user_id = ?`,
		current.Add(amount).StringFixed(2), goalID, userID); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return tx.Commit()
}

// selectGoalForUpdate reads a goal balance inside AddToGoal. MySQL needs a
// row lock so concurrent contributions serialize; SQLite transactions
// already run one at a time on the single connection.
func (r *Repository) selectGoalForUpdate() string {
	q := `SELECT current_amount FROM savings_goals WHERE id = ? AND user_id = ?`
	if r.dialect == DialectMySQL {
		q += ` FOR UPDATE`
	}
	return q
}

// CreateUser implements ports.UserStore
func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = r.nowFn()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, created.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Email, core.ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail implements ports.UserStore
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

// ListPendingSync implements ports.SyncTracker
func (r *Repository) ListPendingSync(ctx context.Context, limit, maxAttempts int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions
		 WHERE synced_at IS NULL AND sync_attempts < ?
		 ORDER BY sync_attempts, id LIMIT ?`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkSynced implements ports.SyncTracker
func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET synced_at = ? WHERE id = ?`, r.now(), id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// MarkSyncFailed implements ports.SyncTracker
func (r *Repository) MarkSyncFailed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_attempts = sync_attempts + 1, last_sync_attempt_at = ? WHERE id = ?`,
		r.now(), id)
	if err != nil {
		return fmt.Errorf("mark sync failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
