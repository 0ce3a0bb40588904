package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"tamerun/internal/core"
	"tamerun/internal/storage/memory"
)

var errBoom = errors.New("boom")

// countingCategories counts storage reads behind the catalog.
type countingCategories struct {
	inner *memory.Store
	calls atomic.Int32
	err   error
}

func (c *countingCategories) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.ListCategories(ctx, kind)
}

type fakePublisher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id int64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

type fakeAnalyzer struct {
	raw        string
	err        error
	categories []string
	mimeType   string
}

func (a *fakeAnalyzer) AnalyzeReceipt(_ context.Context, _ []byte, mimeType string, categories []string) (string, error) {
	a.mimeType = mimeType
	a.categories = categories
	return a.raw, a.err
}

type fakeImages struct {
	url string
	err error
	n   int
}

func (f *fakeImages) OwnsReceipt(userID, url string) bool {
	return strings.HasPrefix(url, "gs://bucket/receipts/"+userID+"/")
}

func (f *fakeImages) PutReceipt(context.Context, string, []byte, string) (string, error) {
	f.n++
	return f.url, f.err
}

type fakeExporter struct {
	mu       sync.Mutex
	exported []int64
	failFor  map[int64]bool
}

func (e *fakeExporter) ExportTransaction(_ context.Context, t core.Transaction, _ core.Category) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failFor[t.ID] {
		return errBoom
	}
	e.exported = append(e.exported, t.ID)
	return nil
}

// failingGoals fails ListGoals to exercise the errgroup path.
type failingGoals struct {
	*memory.Store
}

func (failingGoals) ListGoals(context.Context, string, bool) ([]core.SavingsGoal, error) {
	return nil, errBoom
}
