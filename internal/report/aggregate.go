package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// amountLimit bounds accumulated values. Anything beyond it indicates corrupt
// source data and aborts the run instead of silently saturating.
var amountLimit = decimal.New(1, 15)

// Amounts holds the nine trial balance columns plus the optional foreign
// currency triple. All arithmetic is exact decimal; ending values are always
// derived as initial + period.
type Amounts struct {
	InitialDebit   decimal.Decimal
	InitialCredit  decimal.Decimal
	InitialBalance decimal.Decimal
	PeriodDebit    decimal.Decimal
	PeriodCredit   decimal.Decimal
	PeriodBalance  decimal.Decimal
	EndingDebit    decimal.Decimal
	EndingCredit   decimal.Decimal
	EndingBalance  decimal.Decimal

	InitialAmountCurrency decimal.Decimal
	PeriodAmountCurrency  decimal.Decimal
	EndingAmountCurrency  decimal.Decimal
}

// Add accumulates other into a field by field.
func (a *Amounts) Add(other Amounts) {
	a.InitialDebit = a.InitialDebit.Add(other.InitialDebit)
	a.InitialCredit = a.InitialCredit.Add(other.InitialCredit)
	a.InitialBalance = a.InitialBalance.Add(other.InitialBalance)
	a.PeriodDebit = a.PeriodDebit.Add(other.PeriodDebit)
	a.PeriodCredit = a.PeriodCredit.Add(other.PeriodCredit)
	a.PeriodBalance = a.PeriodBalance.Add(other.PeriodBalance)
	a.EndingDebit = a.EndingDebit.Add(other.EndingDebit)
	a.EndingCredit = a.EndingCredit.Add(other.EndingCredit)
	a.EndingBalance = a.EndingBalance.Add(other.EndingBalance)
	a.InitialAmountCurrency = a.InitialAmountCurrency.Add(other.InitialAmountCurrency)
	a.PeriodAmountCurrency = a.PeriodAmountCurrency.Add(other.PeriodAmountCurrency)
	a.EndingAmountCurrency = a.EndingAmountCurrency.Add(other.EndingAmountCurrency)
}

// finalize derives the ending columns and guards the representable range.
func (a *Amounts) finalize() error {
	a.EndingDebit = a.InitialDebit.Add(a.PeriodDebit)
	a.EndingCredit = a.InitialCredit.Add(a.PeriodCredit)
	a.EndingBalance = a.InitialBalance.Add(a.PeriodBalance)
	a.EndingAmountCurrency = a.InitialAmountCurrency.Add(a.PeriodAmountCurrency)
	for _, v := range []decimal.Decimal{a.EndingDebit, a.EndingCredit, a.EndingBalance, a.EndingAmountCurrency} {
		if v.Abs().GreaterThan(amountLimit) {
			return ErrAmountOverflow
		}
	}
	return nil
}

// HasActivity reports whether the row survives the skip-zero policy. The
// period balance is deliberately not tested: offsetting debit and credit
// movement must stay visible, and the debit/credit checks already cover it.
func (a Amounts) HasActivity() bool {
	return !a.InitialBalance.IsZero() ||
		!a.PeriodDebit.IsZero() ||
		!a.PeriodCredit.IsZero() ||
		!a.EndingBalance.IsZero()
}

// Aggregate is one computed trial balance row, keyed by account and, when the
// report splits by currency, by the entry currency.
type Aggregate struct {
	AccountID  int64
	CurrencyID *int64
	Amounts
}

// GroupTotal subtotals the aggregates of a group's direct member accounts.
type GroupTotal struct {
	GroupID int64
	Amounts
}

// ShouldSkip applies the skip-zero policy to a row.
func ShouldSkip(a Amounts, f Filter) bool {
	if !f.SkipZeroBalance {
		return false
	}
	return !a.HasActivity()
}

type aggregateKey struct {
	accountID  int64
	currencyID int64 // zero for the company-currency bucket
}

// AggregateEntries folds raw ledger entries into one row per account (and
// currency, when splitting). A single pass classifies each entry into the
// initial or the period window; entries dated between the fiscal year start
// and the period start belong to neither.
func AggregateEntries(entries []ledger.Entry, f Filter, accounts AccountLookup) ([]Aggregate, error) {
	byKey := make(map[aggregateKey]*Aggregate)

	for _, e := range entries {
		if e.Kind != ledger.LineKindNormal {
			continue
		}
		ok, err := matches(e, f, accounts)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		initial := e.Date.Before(f.FiscalYearStart)
		period := !e.Date.Before(f.DateFrom) && !e.Date.After(f.DateTo)
		if !initial && !period {
			continue
		}

		key := aggregateKey{accountID: e.AccountID}
		if f.SplitByCurrency && e.CurrencyID != nil {
			key.currencyID = *e.CurrencyID
		}
		agg, found := byKey[key]
		if !found {
			agg = &Aggregate{AccountID: e.AccountID}
			if f.SplitByCurrency && e.CurrencyID != nil {
				id := *e.CurrencyID
				agg.CurrencyID = &id
			}
			byKey[key] = agg
		}

		if initial {
			agg.InitialDebit = agg.InitialDebit.Add(e.Debit)
			agg.InitialCredit = agg.InitialCredit.Add(e.Credit)
			agg.InitialBalance = agg.InitialBalance.Add(e.Balance)
			if f.SplitByCurrency {
				agg.InitialAmountCurrency = agg.InitialAmountCurrency.Add(e.AmountCurrency)
			}
		} else {
			agg.PeriodDebit = agg.PeriodDebit.Add(e.Debit)
			agg.PeriodCredit = agg.PeriodCredit.Add(e.Credit)
			agg.PeriodBalance = agg.PeriodBalance.Add(e.Balance)
			if f.SplitByCurrency {
				agg.PeriodAmountCurrency = agg.PeriodAmountCurrency.Add(e.AmountCurrency)
			}
		}
	}

	out := make([]Aggregate, 0, len(byKey))
	for _, agg := range byKey {
		if err := agg.finalize(); err != nil {
			return nil, fmt.Errorf("%w: account %d", err, agg.AccountID)
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return currencyOrdinal(out[i].CurrencyID) < currencyOrdinal(out[j].CurrencyID)
	})
	return out, nil
}

func currencyOrdinal(id *int64) int64 {
	if id == nil {
		return -1
	}
	return *id
}

// matches re-validates the selection predicate. The entry source is expected
// to filter server side where it can, but predicates it cannot apply (code
// prefixes against a stale catalog, analytic tags) are enforced here again.
func matches(e ledger.Entry, f Filter, accounts AccountLookup) (bool, error) {
	if e.CompanyID != f.CompanyID {
		return false, nil
	}
	switch e.State {
	case ledger.PostingStatePosted:
	case ledger.PostingStateDraft:
		if !f.IncludeUnposted {
			return false, nil
		}
	default:
		return false, nil
	}
	if len(f.JournalIDs) > 0 && !containsInt64(f.JournalIDs, e.JournalID) {
		return false, nil
	}
	if len(f.AccountCodePrefixes) > 0 {
		acct, ok := accounts.AccountByID(e.AccountID)
		if !ok {
			return false, fmt.Errorf("%w: id %d", ErrUnresolvedAccount, e.AccountID)
		}
		matched := false
		for _, prefix := range f.AccountCodePrefixes {
			if strings.HasPrefix(acct.Code, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	if len(f.AnalyticAccountIDs) > 0 {
		tagged := false
		for _, id := range f.AnalyticAccountIDs {
			if _, ok := e.AnalyticDistribution[id]; ok {
				tagged = true
				break
			}
		}
		if !tagged {
			return false, nil
		}
	}
	return true, nil
}

func containsInt64(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// windowLabel names the period for logs and export headers.
func windowLabel(from, to time.Time) string {
	return from.Format("2006-01-02") + " .. " + to.Format("2006-01-02")
}
