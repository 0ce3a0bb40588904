package memory

import (
	"context"
	"sync"
	"time"

	"tamerun/internal/core"
	"tamerun/internal/sheets"
)

// Exporter keeps exported rows in memory. It implements
// ports.TransactionExporter for local runs and tests.
type Exporter struct {
	mu    sync.Mutex
	rows  [][]any
	seen  map[int64]int
	nowFn func() time.Time
}

func New() *Exporter {
	return &Exporter{seen: map[int64]int{}, nowFn: time.Now}
}

// ExportTransaction appends a row, or overwrites the existing row for the
// same transaction so redelivered messages do not duplicate it.
func (e *Exporter) ExportTransaction(_ context.Context, t core.Transaction, c core.Category) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	row := sheets.Row(t, c, e.nowFn())
	if i, ok := e.seen[t.ID]; ok {
		e.rows[i] = row
		return nil
	}
	e.seen[t.ID] = len(e.rows)
	e.rows = append(e.rows, row)
	return nil
}

// Rows returns a copy of the exported rows in insertion order.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	copy(out, e.rows)
	return out
}
