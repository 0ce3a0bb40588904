package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"tamerun/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.NewTransaction) (int64, error)
	}

	TransactionReader interface {
		// ListTransactions returns the user's transactions dated within
		// [from, to], both inclusive, ordered by date.
		ListTransactions(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	}

	CategoryReader interface {
		// ListCategories returns categories of kind ordered by display order.
		// An empty kind returns every category.
		ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error)
	}

	GoalStore interface {
		ListGoals(ctx context.Context, userID string, activeOnly bool) ([]core.SavingsGoal, error)
		CreateGoal(ctx context.Context, g core.NewGoal) (int64, error)
		// AddToGoal increases the current amount of a goal owned by userID.
		AddToGoal(ctx context.Context, userID string, goalID int64, amount decimal.Decimal) error
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
	}

	// SyncTracker records which transactions reached the export ledger.
	// Pending rows come back fewest failed attempts first, and rows that
	// reached maxAttempts are no longer listed.
	SyncTracker interface {
		ListPendingSync(ctx context.Context, limit, maxAttempts int) ([]int64, error)
		MarkSynced(ctx context.Context, id int64) error
		MarkSyncFailed(ctx context.Context, id int64) error
	}

	// ReceiptAnalyzer sends a receipt image to a document-understanding model
	// and returns its raw text answer.
	ReceiptAnalyzer interface {
		AnalyzeReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (string, error)
	}

	// ImageStore keeps uploaded receipt images and returns a reference URL.
	ImageStore interface {
		PutReceipt(ctx context.Context, userID string, image []byte, mimeType string) (string, error)
		// OwnsReceipt reports whether url names an image PutReceipt stored
		// for userID.
		OwnsReceipt(userID, url string) bool
	}

	// SyncPublisher announces a stored transaction to the export worker.
	SyncPublisher interface {
		PublishTransactionSync(ctx context.Context, id int64, userID string) error
	}

	// TransactionExporter appends a transaction to an external ledger.
	TransactionExporter interface {
		ExportTransaction(ctx context.Context, t core.Transaction, c core.Category) error
	}

	// Store is everything the application needs from a storage backend.
	Store interface {
		TransactionWriter
		TransactionReader
		CategoryReader
		GoalStore
		UserStore
		SyncTracker
		Ping(ctx context.Context) error
		Close() error
	}
)
