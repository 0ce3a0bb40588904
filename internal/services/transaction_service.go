package services

import (
	"context"
	"errors"
	"fmt"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/ports"
)

var ErrNoReceiptItems = errors.New("no receipt items matched a known category")

// TransactionService stores transactions and announces them to the export
// worker.
type TransactionService struct {
	store     ports.TransactionWriter
	catalog   *CategoryCatalog
	publisher ports.SyncPublisher
	logger    *log.Logger
}

// NewTransactionService accepts a nil publisher when AMQP is not configured.
func NewTransactionService(store ports.TransactionWriter, catalog *CategoryCatalog, publisher ports.SyncPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTransaction),
	}
}

// Create validates and saves t. Publishing the sync message is best effort:
// the transaction is already saved when it runs.
func (s *TransactionService) Create(ctx context.Context, t core.NewTransaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	cat, err := s.catalog.ByID(ctx, t.CategoryID)
	if err != nil {
		return 0, err
	}
	if err := t.CheckCategory(cat); err != nil {
		return 0, err
	}

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpCreate).
		WithUser(t.UserID).
		WithTransaction(id, string(t.Kind), t.Amount.String(), t.CategoryID)
	s.logger.InfoContext(ctx, "Transaction created", fields.ToSlice()...)

	s.publishSync(ctx, id, t.UserID)
	return id, nil
}

func (s *TransactionService) publishSync(ctx context.Context, id int64, userID string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping sync message", log.FieldTxID, id)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldTxID, id,
			log.FieldError, err)
	}
}

// RegisterReceipt turns reviewed receipt items into one expense per
// category. Items whose category is unknown are skipped. It returns the ids
// created before any failure.
func (s *TransactionService) RegisterReceipt(ctx context.Context, owner string, r core.ReceiptExtraction, fallback core.Date, imageURL string) ([]int64, error) {
	cats, err := s.catalog.List(ctx, core.KindExpense)
	if err != nil {
		return nil, err
	}

	derived := core.ReceiptTransactions(r, cats, owner, fallback, imageURL)
	if len(derived) == 0 {
		return nil, ErrNoReceiptItems
	}

	// Every memo must hold its full item list, so an oversized group rejects
	// the receipt before anything is stored.
	for _, t := range derived {
		if err := t.Validate(); errors.Is(err, core.ErrMemoTooLong) {
			return nil, fmt.Errorf("%w: category %d has too many items for one entry; remove some and register again", core.ErrMemoTooLong, t.CategoryID)
		}
	}

	ids := make([]int64, 0, len(derived))
	for _, t := range derived {
		id, err := s.Create(ctx, t)
		if err != nil {
			return ids, fmt.Errorf("register receipt item %d of %d: %w", len(ids)+1, len(derived), err)
		}
		ids = append(ids, id)
	}

	s.logger.InfoContext(ctx, "Receipt registered",
		log.FieldUserID, owner,
		log.FieldItemCount, len(r.Items),
		"transactions", len(ids))
	return ids, nil
}
