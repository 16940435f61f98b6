package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// BuildLines assembles the ordered line sequence for a set of aggregates,
// either flat or grouped under the account-group hierarchy. The unfolded set
// carries the caller's expand state through untouched.
func BuildLines(aggs []Aggregate, idx *Index, f Filter, unfolded map[string]struct{}, vf ValueFormatter) ([]Line, error) {
	if unfolded == nil {
		unfolded = map[string]struct{}{}
	}

	rows, err := resolveRows(aggs, idx)
	if err != nil {
		return nil, err
	}

	var lines []Line
	if f.HierarchyEnabled {
		lines, err = hierarchyLines(rows, idx, f, unfolded, vf)
		if err != nil {
			return nil, err
		}
	} else {
		sortRows(rows)
		for _, r := range rows {
			if ShouldSkip(r.agg.Amounts, f) {
				continue
			}
			lines = append(lines, accountLine(r.agg, r.acct, f, vf, idx.CurrencyName(r.agg.CurrencyID)))
		}
	}

	var grand Amounts
	for _, r := range rows {
		grand.Add(r.agg.Amounts)
	}
	// Foreign currency sums never belong on the grand total.
	grand.InitialAmountCurrency = decimal.Zero
	grand.PeriodAmountCurrency = decimal.Zero
	grand.EndingAmountCurrency = decimal.Zero
	lines = append(lines, totalLine(grand, f, vf))

	return lines, nil
}

type row struct {
	agg  Aggregate
	acct ledger.Account
}

// resolveRows attaches account metadata to every aggregate up front, failing
// fast on dangling references instead of corrupting subtotals later.
func resolveRows(aggs []Aggregate, idx *Index) ([]row, error) {
	rows := make([]row, 0, len(aggs))
	for _, agg := range aggs {
		acct, ok := idx.AccountByID(agg.AccountID)
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrUnresolvedAccount, agg.AccountID)
		}
		rows = append(rows, row{agg: agg, acct: acct})
	}
	return rows, nil
}

func sortRows(rows []row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].acct.Code != rows[j].acct.Code {
			return rows[i].acct.Code < rows[j].acct.Code
		}
		return currencyOrdinal(rows[i].agg.CurrencyID) < currencyOrdinal(rows[j].agg.CurrencyID)
	})
}

func hierarchyLines(rows []row, idx *Index, f Filter, unfolded map[string]struct{}, vf ValueFormatter) ([]Line, error) {
	sortRows(rows)

	grouped := make(map[int64][]row)
	totals := make(map[int64]*GroupTotal)
	var lines []Line

	for _, r := range rows {
		if r.acct.GroupID == nil {
			// Groupless accounts surface as flat lines at the root.
			if ShouldSkip(r.agg.Amounts, f) {
				continue
			}
			lines = append(lines, accountLine(r.agg, r.acct, f, vf, idx.CurrencyName(r.agg.CurrencyID)))
			continue
		}
		gid := *r.acct.GroupID
		if _, ok := idx.GroupByID(gid); !ok {
			return nil, fmt.Errorf("%w: id %d", ErrUnresolvedGroup, gid)
		}
		grouped[gid] = append(grouped[gid], r)
		total, ok := totals[gid]
		if !ok {
			total = &GroupTotal{GroupID: gid}
			totals[gid] = total
		}
		total.Add(r.agg.Amounts)
	}

	for _, gid := range idx.groupOrder {
		members, ok := grouped[gid]
		if !ok {
			continue
		}
		g, _ := idx.GroupByID(gid)

		groupLevel := g.Level + 1
		if f.HierarchyOnlyParents && f.HierarchyMaxLevel > 0 && groupLevel > f.HierarchyMaxLevel {
			// Past the level ceiling the whole subtree is omitted, header
			// and member accounts alike.
			continue
		}

		// An all-zero subtotal suppresses only the header; members with
		// activity of their own (offsetting balances inside the group) are
		// still dropped individually below.
		total := totals[gid]
		if !ShouldSkip(total.Amounts, f) {
			lines = append(lines, groupLine(*total, g, f, vf, unfolded))
		}

		for _, r := range members {
			if ShouldSkip(r.agg.Amounts, f) {
				continue
			}
			line := accountLine(r.agg, r.acct, f, vf, idx.CurrencyName(r.agg.CurrencyID))
			line.Level = groupLevel + 1
			lines = append(lines, line)
		}
	}

	return lines, nil
}
