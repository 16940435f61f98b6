package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// memoryLedger is an in-memory EntrySource, Catalog, and Directory used by
// the engine and service tests.
type memoryLedger struct {
	entries   []ledger.Entry
	accounts  map[int64]ledger.Account
	groups    map[int64]ledger.Group
	currency  map[int64]ledger.Currency
	companies map[int64]ledger.Company
	journals  []ledger.Journal
	analytic  []ledger.AnalyticAccount

	fetchCalls int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		accounts:  make(map[int64]ledger.Account),
		groups:    make(map[int64]ledger.Group),
		currency:  make(map[int64]ledger.Currency),
		companies: make(map[int64]ledger.Company),
	}
}

func (m *memoryLedger) FetchEntries(_ context.Context, f Filter) ([]ledger.Entry, error) {
	m.fetchCalls++
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.CompanyID == f.CompanyID && !e.Date.After(f.DateTo) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryLedger) AccountsByIDs(_ context.Context, ids []int64) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryLedger) GroupsByIDs(_ context.Context, ids []int64) ([]ledger.Group, error) {
	var out []ledger.Group
	for _, id := range ids {
		if g, ok := m.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryLedger) CurrenciesByIDs(_ context.Context, ids []int64) ([]ledger.Currency, error) {
	var out []ledger.Currency
	for _, id := range ids {
		if c, ok := m.currency[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryLedger) CompanyByID(_ context.Context, id int64) (ledger.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return ledger.Company{}, ErrCompanyNotFound
	}
	return c, nil
}

func (m *memoryLedger) JournalsByCompany(_ context.Context, companyID int64) ([]ledger.Journal, error) {
	var out []ledger.Journal
	for _, j := range m.journals {
		if j.CompanyID == companyID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memoryLedger) AnalyticAccountsByCompany(_ context.Context, companyID int64) ([]ledger.AnalyticAccount, error) {
	var out []ledger.AnalyticAccount
	for _, a := range m.analytic {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	return out, nil
}

// plainFormatter is a deterministic ValueFormatter for tests.
type plainFormatter struct{}

func (plainFormatter) Format(v decimal.Decimal, currency string) string {
	s := v.StringFixed(2)
	if currency != "" {
		s += " " + currency
	}
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("bad test date %q: %v", s, err))
	}
	return t
}

func postedEntry(accountID int64, date string, debit, credit string) ledger.Entry {
	d, c := dec(debit), dec(credit)
	return ledger.Entry{
		AccountID: accountID,
		CompanyID: 1,
		JournalID: 1,
		Date:      day(date),
		Debit:     d,
		Credit:    c,
		Balance:   d.Sub(c),
		State:     ledger.PostingStatePosted,
		Kind:      ledger.LineKindNormal,
	}
}

func dayOffset(start string, days int) time.Time {
	return day(start).AddDate(0, 0, days)
}

func baseFilter() Filter {
	return Filter{
		CompanyID:       1,
		DateFrom:        day("2024-01-01"),
		DateTo:          day("2024-12-31"),
		FiscalYearStart: day("2024-01-01"),
	}
}

func indexFor(entries []ledger.Entry, store *memoryLedger) *Index {
	idx, err := BuildIndex(context.Background(), store, entries)
	if err != nil {
		panic(err)
	}
	return idx
}
