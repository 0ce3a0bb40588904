package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"tamerun/internal/amqp"
	"tamerun/internal/core"
	"tamerun/internal/log"
)

// startupBatches bounds how many pending batches the startup check drains.
const startupBatches = 5

// Syncer exports transactions to the external ledger.
type Syncer interface {
	Sync(ctx context.Context, id int64) error
	ProcessPending(ctx context.Context) (int, error)
}

// SyncWorker handles transaction sync messages from AMQP and periodically
// sweeps for rows whose message was lost.
type SyncWorker struct {
	syncer Syncer
	logger *log.Logger
	cron   *cron.Cron

	sweeps atomic.Int64
}

func NewSyncWorker(syncer Syncer, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		syncer: syncer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// A transaction that no longer exists is acknowledged, since redelivery
// cannot fix it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.DebugContext(ctx, "Processing sync message",
		log.FieldTxID, msg.ID,
		log.FieldUserID, msg.UserID)

	err := w.syncer.Sync(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Dropping sync message for missing transaction",
			log.FieldTxID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync transaction %d: %w", msg.ID, err)
	}
	return nil
}

// StartupSyncCheck drains pending transactions left over from worker downtime.
// A batch with failures does not end the check: failed rows drop to the back
// of the queue, so the next batch still reaches the rows behind them.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	var (
		total int
		errs  []error
	)
	for i := 0; i < startupBatches; i++ {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := w.syncer.ProcessPending(ctx)
		total += n
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n == 0 {
			break
		}
	}
	if err := errors.Join(errs...); err != nil {
		w.logger.WarnContext(ctx, "Startup sync finished with errors",
			"synced", total,
			"failed_batches", len(errs),
			log.FieldError, err)
		return err
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		log.FieldOperation, log.OpStartup,
		"synced", total)
	return nil
}

// Schedule starts the reconciliation sweep every interval. Overlapping runs
// are skipped.
func (w *SyncWorker) Schedule(ctx context.Context, interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("invalid sync interval %v: must be at least 1 second", interval)
	}
	if w.cron != nil {
		return errors.New("sync sweep already scheduled")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc("@every "+interval.String(), func() { w.sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule sync sweep: %w", err)
	}
	c.Start()
	w.cron = c

	w.logger.Info("Sync sweep scheduled", "interval", interval.String())
	return nil
}

// Stop halts the schedule and waits for a running sweep up to ctx's deadline.
func (w *SyncWorker) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		w.logger.Warn("Timed out waiting for sync sweep to finish")
	}
}

// Sweeps reports how many reconciliation sweeps have run.
func (w *SyncWorker) Sweeps() int64 {
	return w.sweeps.Load()
}

func (w *SyncWorker) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.sweeps.Add(1)

	start := time.Now()
	n, err := w.syncer.ProcessPending(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Periodic sync failed",
			"synced", n,
			log.FieldError, err)
		return
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Periodic sync completed",
			"synced", n,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}
