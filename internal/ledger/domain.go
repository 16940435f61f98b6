package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingState enumerates ledger entry lifecycle values. Cancelled entries
// are filtered out upstream and never reach this service.
type PostingState string

const (
	PostingStatePosted PostingState = "POSTED"
	PostingStateDraft  PostingState = "DRAFT"
)

// LineKind distinguishes real movements from presentational lines.
type LineKind string

const (
	LineKindNormal  LineKind = "NORMAL"
	LineKindSection LineKind = "SECTION"
	LineKindNote    LineKind = "NOTE"
)

// Entry is one debit/credit line of a posted or draft accounting move.
// Entries are immutable facts supplied by the store; the reporting engine
// never creates or mutates them.
type Entry struct {
	ID        int64
	AccountID int64
	CompanyID int64
	JournalID int64
	Date      time.Time
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Balance   decimal.Decimal
	// CurrencyID is set only when the entry carries a foreign currency amount.
	CurrencyID     *int64
	AmountCurrency decimal.Decimal
	State          PostingState
	Kind           LineKind
	// AnalyticDistribution maps analytic account id to a weight. Only key
	// membership matters for report filtering.
	AnalyticDistribution map[int64]float64
}

// Account models a chart of accounts node.
type Account struct {
	ID      int64
	Code    string
	Name    string
	Type    string
	GroupID *int64
}

// Group is a node in the account group tree used for report subtotals.
// Level is the depth from the root, root = 0.
type Group struct {
	ID         int64
	Name       string
	CodePrefix string
	ParentID   *int64
	Level      int
}

// Journal identifies a journal ledger entries are booked in.
type Journal struct {
	ID        int64
	CompanyID int64
	Code      string
	Name      string
}

// AnalyticAccount is a cost/profit-centre dimension entries may be tagged with.
type AnalyticAccount struct {
	ID        int64
	CompanyID int64
	Name      string
}

// Currency is minimal currency metadata used for labels and formatting.
type Currency struct {
	ID   int64
	Name string
}

// Company carries the fiscal calendar needed to resolve the opening
// balance cutoff for a report.
type Company struct {
	ID              int64
	Name            string
	CurrencyID      int64
	FiscalYearMonth time.Month
	FiscalYearDay   int
}

// FiscalYearStart returns the first day of the fiscal year containing ref.
func (c Company) FiscalYearStart(ref time.Time) time.Time {
	month := c.FiscalYearMonth
	day := c.FiscalYearDay
	if month == 0 {
		month = time.January
	}
	if day == 0 {
		day = 1
	}
	start := time.Date(ref.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if start.After(ref) {
		start = start.AddDate(-1, 0, 0)
	}
	return start
}
