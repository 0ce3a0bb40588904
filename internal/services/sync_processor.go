package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tamerun/internal/log"
	"tamerun/internal/ports"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// BatchSize is the max number of pending transactions per sweep (default: 50)
	BatchSize int
	// MaxAttempts is how many failed exports a row gets before sweeps stop
	// picking it up (default: 10)
	MaxAttempts int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{BatchSize: 50, MaxAttempts: 10}
}

// SyncProcessor exports stored transactions to the external ledger and
// marks them synced. Exports are serialized so the AMQP consumer and the
// reconciliation sweep never export the same row twice concurrently.
type SyncProcessor struct {
	transactions ports.TransactionReader
	tracker      ports.SyncTracker
	catalog      *CategoryCatalog
	exporter     ports.TransactionExporter
	config       SyncProcessorConfig
	logger       *log.Logger

	mu sync.Mutex
}

func NewSyncProcessor(
	transactions ports.TransactionReader,
	tracker ports.SyncTracker,
	catalog *CategoryCatalog,
	exporter ports.TransactionExporter,
	config SyncProcessorConfig,
	logger *log.Logger,
) *SyncProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultSyncProcessorConfig().MaxAttempts
	}
	return &SyncProcessor{
		transactions: transactions,
		tracker:      tracker,
		catalog:      catalog,
		exporter:     exporter,
		config:       config,
		logger:       logger.WithComponent(log.ComponentWorker),
	}
}

// Sync exports one transaction unless it is already synced.
func (p *SyncProcessor) Sync(ctx context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.syncLocked(ctx, id)
}

func (p *SyncProcessor) syncLocked(ctx context.Context, id int64) error {
	t, err := p.transactions.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}
	if t.Synced {
		p.logger.DebugContext(ctx, "Transaction already synced", log.FieldTxID, id)
		return nil
	}

	cat, err := p.catalog.ByID(ctx, t.CategoryID)
	if err != nil {
		p.recordFailure(ctx, id)
		return err
	}

	if err := p.exporter.ExportTransaction(ctx, t, cat); err != nil {
		p.recordFailure(ctx, id)
		return fmt.Errorf("export transaction %d: %w", id, err)
	}

	// The export succeeded; a failed mark only means a duplicate row later.
	if err := p.tracker.MarkSynced(ctx, id); err != nil {
		p.logger.WarnContext(ctx, "Failed to mark transaction as synced",
			log.FieldTxID, id,
			log.FieldError, err)
	}

	p.logger.InfoContext(ctx, "Synced transaction",
		log.FieldTxID, id,
		log.FieldOperation, log.OpSync)
	return nil
}

// recordFailure moves a row behind the rest of the pending queue so a row
// that keeps failing cannot hold back the ones after it.
func (p *SyncProcessor) recordFailure(ctx context.Context, id int64) {
	if ctx.Err() != nil {
		return
	}
	if err := p.tracker.MarkSyncFailed(ctx, id); err != nil {
		p.logger.WarnContext(ctx, "Failed to record sync attempt",
			log.FieldTxID, id,
			log.FieldError, err)
	}
}

// ProcessPending exports up to one batch of unsynced transactions and
// returns how many succeeded.
func (p *SyncProcessor) ProcessPending(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids, err := p.tracker.ListPendingSync(ctx, p.config.BatchSize, p.config.MaxAttempts)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	p.logger.DebugContext(ctx, "Processing pending batch", "count", len(ids))

	var (
		synced int
		errs   []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.syncLocked(ctx, id); err != nil {
			p.logger.WarnContext(ctx, "Sync failed", log.FieldTxID, id, log.FieldError, err)
			errs = append(errs, err)
			continue
		}
		synced++
	}
	return synced, errors.Join(errs...)
}
