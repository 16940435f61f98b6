package report

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// ValueFormatter renders an amount for display. The currency name may be
// empty, meaning the company currency. Implementations must be locale aware;
// the engine treats them as a black box.
type ValueFormatter interface {
	Format(value decimal.Decimal, currency string) string
}

// Column is one formatted report cell. Text is empty when the raw value is
// zero, matching standard trial balance presentation.
type Column struct {
	Text string          `json:"text"`
	Raw  decimal.Decimal `json:"raw"`
}

// Line is one renderer-neutral report row. IDs are deterministic for a given
// filter so expand/collapse state survives refreshes.
type Line struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Level         int      `json:"level"`
	Columns       []Column `json:"columns"`
	IsGroupHeader bool     `json:"is_group_header"`
	Expandable    bool     `json:"expandable"`
	Expanded      bool     `json:"expanded"`
}

const accountLineLevel = 2

func accountLineID(accountID int64, currencyID *int64) string {
	id := "account_" + strconv.FormatInt(accountID, 10)
	if currencyID != nil {
		id += "_cur_" + strconv.FormatInt(*currencyID, 10)
	}
	return id
}

func groupLineID(groupID int64) string {
	return "group_" + strconv.FormatInt(groupID, 10)
}

// formatColumns emits the nine fixed columns and, when splitting by currency,
// the three amount-in-currency columns.
func formatColumns(a Amounts, f Filter, vf ValueFormatter, currency string) []Column {
	cols := make([]Column, 0, 12)
	for _, v := range []decimal.Decimal{
		a.InitialDebit, a.InitialCredit, a.InitialBalance,
		a.PeriodDebit, a.PeriodCredit, a.PeriodBalance,
		a.EndingDebit, a.EndingCredit, a.EndingBalance,
	} {
		cols = append(cols, formatColumn(v, vf, ""))
	}
	if f.SplitByCurrency {
		cols = append(cols,
			formatColumn(a.InitialAmountCurrency, vf, currency),
			formatColumn(a.PeriodAmountCurrency, vf, currency),
			formatColumn(a.EndingAmountCurrency, vf, currency),
		)
	}
	return cols
}

func formatColumn(v decimal.Decimal, vf ValueFormatter, currency string) Column {
	col := Column{Raw: v}
	if !v.IsZero() {
		col.Text = vf.Format(v, currency)
	}
	return col
}

func accountLine(agg Aggregate, acct ledger.Account, f Filter, vf ValueFormatter, currency string) Line {
	name := acct.Code + " " + acct.Name
	if f.SplitByCurrency && currency != "" {
		name += " [" + currency + "]"
	}
	return Line{
		ID:      accountLineID(agg.AccountID, agg.CurrencyID),
		Name:    name,
		Level:   accountLineLevel,
		Columns: formatColumns(agg.Amounts, f, vf, currency),
	}
}

func groupLine(total GroupTotal, g ledger.Group, f Filter, vf ValueFormatter, unfolded map[string]struct{}) Line {
	id := groupLineID(total.GroupID)
	name := g.Name
	if g.CodePrefix != "" {
		name = g.CodePrefix + " " + g.Name
	}
	_, expanded := unfolded[id]
	return Line{
		ID:            id,
		Name:          name,
		Level:         g.Level + 1,
		Columns:       formatColumns(total.Amounts, f, vf, ""),
		IsGroupHeader: true,
		Expandable:    true,
		Expanded:      expanded,
	}
}

func totalLine(total Amounts, f Filter, vf ValueFormatter) Line {
	// The grand total sums company-currency columns only; mixing foreign
	// currency amounts across rows would be meaningless.
	cols := make([]Column, 0, 12)
	for _, v := range []decimal.Decimal{
		total.InitialDebit, total.InitialCredit, total.InitialBalance,
		total.PeriodDebit, total.PeriodCredit, total.PeriodBalance,
		total.EndingDebit, total.EndingCredit, total.EndingBalance,
	} {
		cols = append(cols, formatColumn(v, vf, ""))
	}
	if f.SplitByCurrency {
		cols = append(cols, Column{}, Column{}, Column{})
	}
	return Line{
		ID:      "total",
		Name:    "Total",
		Level:   0,
		Columns: cols,
	}
}
