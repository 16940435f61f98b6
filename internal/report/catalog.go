package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// Catalog exposes the account and account-group metadata the engine needs.
// Implementations may be backed by Postgres or an in-memory snapshot.
type Catalog interface {
	AccountsByIDs(ctx context.Context, ids []int64) ([]ledger.Account, error)
	GroupsByIDs(ctx context.Context, ids []int64) ([]ledger.Group, error)
	CurrenciesByIDs(ctx context.Context, ids []int64) ([]ledger.Currency, error)
}

// AccountLookup resolves account metadata during aggregation.
type AccountLookup interface {
	AccountByID(id int64) (ledger.Account, bool)
}

// Index is an id-indexed snapshot of the catalog slice a single report run
// touches. It is built once per invocation so the hierarchy builder never
// goes back to the catalog per row.
type Index struct {
	accounts   map[int64]ledger.Account
	groups     map[int64]ledger.Group
	currencies map[int64]ledger.Currency
	// groupOrder holds group ids sorted by code prefix, the emit order for
	// hierarchy subtotal lines.
	groupOrder []int64
}

// BuildIndex loads every account referenced by the entries, the groups those
// accounts belong to, and any referenced currencies.
func BuildIndex(ctx context.Context, cat Catalog, entries []ledger.Entry) (*Index, error) {
	accountIDs := make(map[int64]struct{})
	currencyIDs := make(map[int64]struct{})
	for _, e := range entries {
		accountIDs[e.AccountID] = struct{}{}
		if e.CurrencyID != nil {
			currencyIDs[*e.CurrencyID] = struct{}{}
		}
	}

	idx := &Index{
		accounts:   make(map[int64]ledger.Account, len(accountIDs)),
		groups:     make(map[int64]ledger.Group),
		currencies: make(map[int64]ledger.Currency, len(currencyIDs)),
	}

	accounts, err := cat.AccountsByIDs(ctx, keysOf(accountIDs))
	if err != nil {
		return nil, fmt.Errorf("report: load accounts: %w", err)
	}
	groupIDs := make(map[int64]struct{})
	for _, a := range accounts {
		idx.accounts[a.ID] = a
		if a.GroupID != nil {
			groupIDs[*a.GroupID] = struct{}{}
		}
	}

	if len(groupIDs) > 0 {
		groups, err := cat.GroupsByIDs(ctx, keysOf(groupIDs))
		if err != nil {
			return nil, fmt.Errorf("report: load groups: %w", err)
		}
		for _, g := range groups {
			idx.groups[g.ID] = g
			idx.groupOrder = append(idx.groupOrder, g.ID)
		}
		sort.Slice(idx.groupOrder, func(i, j int) bool {
			gi, gj := idx.groups[idx.groupOrder[i]], idx.groups[idx.groupOrder[j]]
			if gi.CodePrefix != gj.CodePrefix {
				return gi.CodePrefix < gj.CodePrefix
			}
			return gi.ID < gj.ID
		})
	}

	if len(currencyIDs) > 0 {
		currencies, err := cat.CurrenciesByIDs(ctx, keysOf(currencyIDs))
		if err != nil {
			return nil, fmt.Errorf("report: load currencies: %w", err)
		}
		for _, c := range currencies {
			idx.currencies[c.ID] = c
		}
	}

	return idx, nil
}

// AccountByID resolves an account from the snapshot.
func (ix *Index) AccountByID(id int64) (ledger.Account, bool) {
	a, ok := ix.accounts[id]
	return a, ok
}

// GroupByID resolves a group from the snapshot.
func (ix *Index) GroupByID(id int64) (ledger.Group, bool) {
	g, ok := ix.groups[id]
	return g, ok
}

// CurrencyName returns the display name for a currency id, empty when the id
// is unknown or nil.
func (ix *Index) CurrencyName(id *int64) string {
	if id == nil {
		return ""
	}
	if c, ok := ix.currencies[*id]; ok {
		return c.Name
	}
	return ""
}

func keysOf(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
