package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// DateLayout is the calendar-day format used in forms, storage and receipts.
const DateLayout = "2006-01-02"

type (
	// Kind tells income and expense apart for both transactions and categories.
	Kind string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID              int64
		UserID          string
		Kind            Kind
		Amount          decimal.Decimal
		CategoryID      int64
		Date            Date
		Memo            string // empty when the user left no note
		ReceiptImageURL string
		CreatedAt       time.Time
		// Synced is set once the row reached the export ledger.
		Synced bool
	}

	// NewTransaction is the insert contract for a transaction. UserID, Kind,
	// Amount, CategoryID and Date are required; Memo and ReceiptImageURL are
	// optional.
	NewTransaction struct {
		UserID          string
		Kind            Kind
		Amount          decimal.Decimal
		CategoryID      int64
		Date            Date
		Memo            string
		ReceiptImageURL string
	}

	Category struct {
		ID           int64
		Name         string
		Icon         string
		Color        string
		Kind         Kind
		DisplayOrder int
	}

	SavingsGoal struct {
		ID       int64
		UserID   string
		Name     string
		Target   decimal.Decimal
		Current  decimal.Decimal
		Deadline Date // zero when the goal has no deadline
		Active   bool
	}

	NewGoal struct {
		UserID   string
		Name     string
		Target   decimal.Decimal
		Current  decimal.Decimal
		Deadline Date
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

const (
	maxMemoLength     = 500
	maxGoalNameLength = 100
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidKind          = errors.New("invalid kind")
	ErrMissingOwner         = errors.New("missing owner")
	ErrMissingCategory      = errors.New("missing category")
	ErrMemoTooLong          = errors.New("memo too long (max 500 characters)")
	ErrEmptyGoalName        = errors.New("empty goal name")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrCategoryKindMismatch = errors.New("category kind does not match transaction kind")
	ErrNotFound             = errors.New("not found")
	ErrDuplicate            = errors.New("already exists")
)

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// ParseKind accepts the form/query spelling of a kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string. The empty string yields the zero Date
// and no error so optional dates can round-trip through storage.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (t NewTransaction) Validate() error {
	var errs []error
	if strings.TrimSpace(t.UserID) == "" {
		errs = append(errs, ErrMissingOwner)
	}
	if err := t.Kind.Validate(); err != nil {
		errs = append(errs, err)
	}
	if t.Amount.IsNegative() {
		errs = append(errs, ErrInvalidAmount)
	}
	if t.CategoryID <= 0 {
		errs = append(errs, ErrMissingCategory)
	}
	if err := t.Date.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len([]rune(t.Memo)) > maxMemoLength {
		errs = append(errs, ErrMemoTooLong)
	}
	return errors.Join(errs...)
}

// CheckCategory reports whether c is a valid category for the transaction.
func (t NewTransaction) CheckCategory(c Category) error {
	if c.ID != t.CategoryID {
		return ErrUnknownCategory
	}
	if c.Kind != t.Kind {
		return ErrCategoryKindMismatch
	}
	return nil
}

func (g NewGoal) Validate() error {
	var errs []error
	if strings.TrimSpace(g.UserID) == "" {
		errs = append(errs, ErrMissingOwner)
	}
	name := strings.TrimSpace(g.Name)
	if name == "" {
		errs = append(errs, ErrEmptyGoalName)
	} else if len([]rune(name)) > maxGoalNameLength {
		errs = append(errs, errors.New("goal name too long (max 100 characters)"))
	}
	if !g.Target.IsPositive() {
		errs = append(errs, fmt.Errorf("target: %w", ErrInvalidAmount))
	}
	if g.Current.IsNegative() {
		errs = append(errs, fmt.Errorf("current: %w", ErrInvalidAmount))
	}
	if !g.Deadline.IsZero() {
		if err := g.Deadline.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("deadline: %w", err))
		}
	}
	return errors.Join(errs...)
}
