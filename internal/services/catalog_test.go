package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/storage/memory"
)

func TestCategoryCatalogCachesPerKind(t *testing.T) {
	src := &countingCategories{inner: memory.NewDefault()}
	c := NewCategoryCatalog(src, log.Discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats, err := c.List(ctx, core.KindExpense)
		if err != nil || len(cats) != 8 {
			t.Fatalf("list: %d %v", len(cats), err)
		}
	}
	if _, err := c.List(ctx, core.KindIncome); err != nil {
		t.Fatalf("list income: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("expected 2 storage reads, got %d", got)
	}

	c.Invalidate()
	_, _ = c.List(ctx, core.KindExpense)
	if got := src.calls.Load(); got != 3 {
		t.Fatalf("expected a reload after invalidate, got %d reads", got)
	}
}

func TestCategoryCatalogReturnsCopies(t *testing.T) {
	c := NewCategoryCatalog(memory.NewDefault(), log.Discard())
	ctx := context.Background()

	cats, _ := c.List(ctx, core.KindExpense)
	cats[0].Name = "mutated"

	again, _ := c.List(ctx, core.KindExpense)
	if again[0].Name != "Food" {
		t.Fatalf("cache entry was mutated: %q", again[0].Name)
	}
}

func TestCategoryCatalogConcurrentMisses(t *testing.T) {
	src := &countingCategories{inner: memory.NewDefault()}
	c := NewCategoryCatalog(src, log.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.List(context.Background(), ""); err != nil {
				t.Errorf("list: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.calls.Load(); got < 1 || got > 20 {
		t.Fatalf("unexpected read count %d", got)
	}
	if cats, _ := c.List(context.Background(), ""); len(cats) != 12 {
		t.Fatalf("expected 12 categories, got %d", len(cats))
	}
}

func TestCategoryCatalogByID(t *testing.T) {
	c := NewCategoryCatalog(memory.NewDefault(), log.Discard())
	ctx := context.Background()

	cat, err := c.ByID(ctx, 9)
	if err != nil || cat.Name != "Salary" || cat.Kind != core.KindIncome {
		t.Fatalf("ByID(9) = %+v, %v", cat, err)
	}
	if _, err := c.ByID(ctx, 999); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	names, err := c.Names(ctx, core.KindIncome)
	if err != nil || len(names) != 4 || names[0] != "Salary" {
		t.Fatalf("Names = %v, %v", names, err)
	}
}

func TestCategoryCatalogDoesNotCacheErrors(t *testing.T) {
	src := &countingCategories{inner: memory.NewDefault(), err: errBoom}
	c := NewCategoryCatalog(src, log.Discard())

	if _, err := c.List(context.Background(), core.KindExpense); !errors.Is(err, errBoom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	src.err = nil
	if cats, err := c.List(context.Background(), core.KindExpense); err != nil || len(cats) != 8 {
		t.Fatalf("expected recovery, got %d %v", len(cats), err)
	}
}
