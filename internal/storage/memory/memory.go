package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tamerun/internal/core"
)

// DefaultCategories mirrors the rows seeded by the SQL migrations.
func DefaultCategories() []core.Category {
	return []core.Category{
		{ID: 1, Name: "Food", Icon: "🍙", Color: "#F97316", Kind: core.KindExpense, DisplayOrder: 1},
		{ID: 2, Name: "Daily goods", Icon: "🧴", Color: "#EAB308", Kind: core.KindExpense, DisplayOrder: 2},
		{ID: 3, Name: "Transport", Icon: "🚃", Color: "#3B82F6", Kind: core.KindExpense, DisplayOrder: 3},
		{ID: 4, Name: "Housing", Icon: "🏠", Color: "#8B5CF6", Kind: core.KindExpense, DisplayOrder: 4},
		{ID: 5, Name: "Utilities", Icon: "💡", Color: "#06B6D4", Kind: core.KindExpense, DisplayOrder: 5},
		{ID: 6, Name: "Entertainment", Icon: "🎮", Color: "#EC4899", Kind: core.KindExpense, DisplayOrder: 6},
		{ID: 7, Name: "Medical", Icon: "🏥", Color: "#EF4444", Kind: core.KindExpense, DisplayOrder: 7},
		{ID: 8, Name: "Other", Icon: "📦", Color: "#6B7280", Kind: core.KindExpense, DisplayOrder: 8},
		{ID: 9, Name: "Salary", Icon: "💴", Color: "#10B981", Kind: core.KindIncome, DisplayOrder: 1},
		{ID: 10, Name: "Bonus", Icon: "🎁", Color: "#22C55E", Kind: core.KindIncome, DisplayOrder: 2},
		{ID: 11, Name: "Side job", Icon: "💼", Color: "#14B8A6", Kind: core.KindIncome, DisplayOrder: 3},
		{ID: 12, Name: "Other income", Icon: "💰", Color: "#84CC16", Kind: core.KindIncome, DisplayOrder: 4},
	}
}

// Store keeps everything in process memory. It implements ports.Store and
// is used for local development and tests.
type Store struct {
	mu      sync.Mutex
	cats    []core.Category
	txs     []core.Transaction
	goals   []core.SavingsGoal
	users   map[string]core.User // keyed by email
	nextTx  int64
	nextGol int64

	attempts map[int64]int // failed sync attempts by transaction id
	now     func() time.Time
}

func New(cats []core.Category) *Store {
	return &Store{
		cats:  append([]core.Category(nil), cats...),
		users:    make(map[string]core.User),
		attempts: make(map[int64]int),
		now:      time.Now,
	}
}

// NewDefault returns a store seeded with DefaultCategories.
func NewDefault() *Store {
	return New(DefaultCategories())
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateTransaction(_ context.Context, t core.NewTransaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	s.txs = append(s.txs, core.Transaction{
		ID:              s.nextTx,
		UserID:          t.UserID,
		Kind:            t.Kind,
		Amount:          t.Amount,
		CategoryID:      t.CategoryID,
		Date:            t.Date,
		Memo:            t.Memo,
		ReceiptImageURL: t.ReceiptImageURL,
		CreatedAt:       s.now().UTC(),
	})
	return s.nextTx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if t.UserID != userID || t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context, kind core.Kind) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out, nil
}

func (s *Store) ListGoals(_ context.Context, userID string, activeOnly bool) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.SavingsGoal
	for _, g := range s.goals {
		if g.UserID != userID || (activeOnly && !g.Active) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) CreateGoal(_ context.Context, g core.NewGoal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGol++
	s.goals = append(s.goals, core.SavingsGoal{
		ID:       s.nextGol,
		UserID:   g.UserID,
		Name:     strings.TrimSpace(g.Name),
		Target:   g.Target,
		Current:  g.Current,
		Deadline: g.Deadline,
		Active:   true,
	})
	return s.nextGol, nil
}

func (s *Store) AddToGoal(_ context.Context, userID string, goalID int64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == goalID && s.goals[i].UserID == userID {
			s.goals[i].Current = s.goals[i].Current.Add(amount)
			return nil
		}
	}
	return fmt.Errorf("goal %d: %w", goalID, core.ErrNotFound)
}

// SetGoalActive toggles a goal; the SQL backends manage this column directly.
func (s *Store) SetGoalActive(goalID int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.goals {
		if s.goals[i].ID == goalID {
			s.goals[i].Active = active
		}
	}
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return fmt.Errorf("user %s: %w", u.Email, core.ErrDuplicate)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.Email] = u
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) ListPendingSync(_ context.Context, limit, maxAttempts int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []core.Transaction
	for _, t := range s.txs {
		if !t.Synced && s.attempts[t.ID] < maxAttempts {
			pending = append(pending, t)
		}
	}
	// txs is in id order, so a stable sort keeps ids ascending per attempt count.
	sort.SliceStable(pending, func(i, j int) bool {
		return s.attempts[pending[i].ID] < s.attempts[pending[j].ID]
	})
	var ids []int64
	for _, t := range pending {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *Store) MarkSyncFailed(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			s.attempts[id]++
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) MarkSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs[i].Synced = true
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}
