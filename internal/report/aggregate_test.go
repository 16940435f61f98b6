package report

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

func TestAggregateEntriesFiscalYearWindows(t *testing.T) {
	store := newMemoryLedger()
	store.accounts[100] = ledger.Account{ID: 100, Code: "A100", Name: "Cash"}

	entries := []ledger.Entry{
		postedEntry(100, "2023-01-15", "100", "0"),
		postedEntry(100, "2024-02-10", "0", "40"),
	}
	f := baseFilter()
	f.SkipZeroBalance = false

	aggs, err := AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	agg := aggs[0]
	// The 2023 entry predates the fiscal year start and lands in the
	// initial window.
	require.True(t, agg.InitialBalance.Equal(dec("100")), "initial balance %s", agg.InitialBalance)
	require.True(t, agg.PeriodBalance.Equal(dec("-40")), "period balance %s", agg.PeriodBalance)
	require.True(t, agg.EndingBalance.Equal(dec("60")), "ending balance %s", agg.EndingBalance)
}

func TestAggregateEntriesGapBetweenFiscalStartAndPeriod(t *testing.T) {
	store := newMemoryLedger()
	store.accounts[100] = ledger.Account{ID: 100, Code: "A100", Name: "Cash"}

	// Fiscal year opens in January but the report window starts in March:
	// a February entry belongs to neither window.
	entries := []ledger.Entry{
		postedEntry(100, "2024-02-05", "500", "0"),
		postedEntry(100, "2024-03-20", "25", "0"),
	}
	f := baseFilter()
	f.DateFrom = day("2024-03-01")

	aggs, err := AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	require.True(t, aggs[0].InitialBalance.IsZero())
	require.True(t, aggs[0].PeriodBalance.Equal(dec("25")))
	require.True(t, aggs[0].EndingBalance.Equal(dec("25")))
}

func TestAggregateEntriesSelectionPredicate(t *testing.T) {
	store := newMemoryLedger()
	store.accounts[1] = ledger.Account{ID: 1, Code: "1000", Name: "Cash"}
	store.accounts[2] = ledger.Account{ID: 2, Code: "2000", Name: "Payables"}

	otherCompany := postedEntry(1, "2024-03-01", "10", "0")
	otherCompany.CompanyID = 2

	draft := postedEntry(1, "2024-03-02", "20", "0")
	draft.State = ledger.PostingStateDraft

	section := postedEntry(1, "2024-03-03", "30", "0")
	section.Kind = ledger.LineKindSection

	otherJournal := postedEntry(2, "2024-03-04", "40", "0")
	otherJournal.JournalID = 9

	tagged := postedEntry(1, "2024-03-05", "50", "0")
	tagged.AnalyticDistribution = map[int64]float64{7: 100}

	entries := []ledger.Entry{otherCompany, draft, section, otherJournal, tagged}

	f := baseFilter()
	f.JournalIDs = []int64{1}
	f.AnalyticAccountIDs = []int64{7}

	aggs, err := AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	require.Equal(t, int64(1), aggs[0].AccountID)
	require.True(t, aggs[0].PeriodDebit.Equal(dec("50")))

	// Including unposted picks up the draft entry too, but it lacks the
	// analytic tag, so the result is unchanged.
	f.IncludeUnposted = true
	aggs, err = AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	// Without the analytic restriction the draft joins the total.
	f.AnalyticAccountIDs = nil
	aggs, err = AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	require.True(t, aggs[0].PeriodDebit.Equal(dec("70")))
}

func TestAggregateEntriesCodePrefixFilter(t *testing.T) {
	store := newMemoryLedger()
	store.accounts[1] = ledger.Account{ID: 1, Code: "1001", Name: "Cash"}
	store.accounts[2] = ledger.Account{ID: 2, Code: "2001", Name: "Payables"}
	store.accounts[3] = ledger.Account{ID: 3, Code: "1002", Name: "Bank"}

	entries := []ledger.Entry{
		postedEntry(1, "2024-03-01", "10", "0"),
		postedEntry(2, "2024-03-01", "20", "0"),
		postedEntry(3, "2024-03-01", "30", "0"),
	}
	f := baseFilter()
	f.AccountCodePrefixes = []string{"100"}

	aggs, err := AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	require.Equal(t, int64(1), aggs[0].AccountID)
	require.Equal(t, int64(3), aggs[1].AccountID)
}

func TestAggregateEntriesSplitByCurrency(t *testing.T) {
	store := newMemoryLedger()
	store.accounts[1] = ledger.Account{ID: 1, Code: "1000", Name: "Cash"}
	store.currency[10] = ledger.Currency{ID: 10, Name: "USD"}
	store.currency[20] = ledger.Currency{ID: 20, Name: "EUR"}

	usd, eur := int64(10), int64(20)
	e1 := postedEntry(1, "2024-03-01", "10", "0")
	e1.CurrencyID = &usd
	e1.AmountCurrency = dec("11")
	e2 := postedEntry(1, "2024-03-02", "20", "0")
	e2.CurrencyID = &eur
	e2.AmountCurrency = dec("18")
	e3 := postedEntry(1, "2024-03-03", "5", "0")

	entries := []ledger.Entry{e1, e2, e3}
	f := baseFilter()
	f.SplitByCurrency = true

	aggs, err := AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 3)

	// Null currency sorts first, then ascending currency id.
	require.Nil(t, aggs[0].CurrencyID)
	require.Equal(t, usd, *aggs[1].CurrencyID)
	require.Equal(t, eur, *aggs[2].CurrencyID)
	require.True(t, aggs[1].PeriodAmountCurrency.Equal(dec("11")))
	require.True(t, aggs[2].PeriodAmountCurrency.Equal(dec("18")))

	// Without splitting everything folds into one row.
	f.SplitByCurrency = false
	aggs, err = AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	require.True(t, aggs[0].PeriodDebit.Equal(dec("35")))
}

func TestAggregateEndingEqualsInitialPlusPeriod(t *testing.T) {
	store := newMemoryLedger()
	for id := int64(1); id <= 5; id++ {
		store.accounts[id] = ledger.Account{ID: id, Code: "A" + string(rune('0'+id))}
	}

	rng := rand.New(rand.NewSource(42))
	var entries []ledger.Entry
	for i := 0; i < 500; i++ {
		accountID := int64(rng.Intn(5) + 1)
		offset := rng.Intn(700)
		date := dayOffset("2023-01-01", offset)
		debit := decimal.New(int64(rng.Intn(100000)), -2)
		credit := decimal.New(int64(rng.Intn(100000)), -2)
		e := ledger.Entry{
			AccountID: accountID,
			CompanyID: 1,
			JournalID: 1,
			Date:      date,
			Debit:     debit,
			Credit:    credit,
			Balance:   debit.Sub(credit),
			State:     ledger.PostingStatePosted,
			Kind:      ledger.LineKindNormal,
		}
		entries = append(entries, e)
	}

	f := baseFilter()
	aggs, err := AggregateEntries(entries, f, indexFor(entries, store))
	require.NoError(t, err)
	require.NotEmpty(t, aggs)

	for _, agg := range aggs {
		require.True(t, agg.EndingDebit.Equal(agg.InitialDebit.Add(agg.PeriodDebit)))
		require.True(t, agg.EndingCredit.Equal(agg.InitialCredit.Add(agg.PeriodCredit)))
		require.True(t, agg.EndingBalance.Equal(agg.InitialBalance.Add(agg.PeriodBalance)))
		require.True(t, agg.EndingBalance.Equal(agg.EndingDebit.Sub(agg.EndingCredit)))
	}
}

func TestAggregateEntriesOverflow(t *testing.T) {
	store := newMemoryLedger()
	store.accounts[1] = ledger.Account{ID: 1, Code: "1000"}

	huge := postedEntry(1, "2024-03-01", "999999999999999999", "0")
	_, err := AggregateEntries([]ledger.Entry{huge}, baseFilter(), indexFor([]ledger.Entry{huge}, store))
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestShouldSkipZeroActivity(t *testing.T) {
	f := baseFilter()
	f.SkipZeroBalance = true

	var zero Amounts
	require.True(t, ShouldSkip(zero, f))

	f.SkipZeroBalance = false
	require.False(t, ShouldSkip(zero, f))

	// Offsetting period movement must stay visible.
	churn := Amounts{PeriodDebit: dec("100"), PeriodCredit: dec("100")}
	f.SkipZeroBalance = true
	require.False(t, ShouldSkip(churn, f))
}
