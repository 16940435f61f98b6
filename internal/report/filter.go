package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filter describes which ledger entries qualify for a trial balance run and
// how the resulting lines are organised. It is immutable once validated; the
// engine only ever reads it.
type Filter struct {
	DateFrom time.Time
	DateTo   time.Time
	// FiscalYearStart is the opening-balance cutoff. It is resolved from the
	// company's fiscal calendar by the caller, never computed here.
	FiscalYearStart time.Time
	CompanyID       int64

	IncludeUnposted bool
	// JournalIDs restricts entries to the listed journals. Empty means all.
	JournalIDs []int64
	// AccountCodePrefixes keeps only accounts whose code starts with at least
	// one prefix. Case sensitive, empty means all.
	AccountCodePrefixes []string
	// AnalyticAccountIDs keeps only entries tagged with at least one of the
	// listed analytic accounts. Empty means all.
	AnalyticAccountIDs []int64

	SplitByCurrency bool
	SkipZeroBalance bool

	HierarchyEnabled     bool
	HierarchyOnlyParents bool
	// HierarchyMaxLevel truncates the group tree when HierarchyOnlyParents is
	// set. Zero means unlimited.
	HierarchyMaxLevel int
}

// Validate rejects inconsistent filter combinations before aggregation.
func (f Filter) Validate() error {
	if f.CompanyID <= 0 {
		return fmt.Errorf("%w: company id is required", ErrInvalidFilter)
	}
	if f.DateFrom.IsZero() || f.DateTo.IsZero() {
		return fmt.Errorf("%w: date range is required", ErrInvalidFilter)
	}
	if f.DateFrom.After(f.DateTo) {
		return fmt.Errorf("%w: date_from %s is after date_to %s", ErrInvalidFilter,
			f.DateFrom.Format("2006-01-02"), f.DateTo.Format("2006-01-02"))
	}
	if f.HierarchyMaxLevel < 0 {
		return fmt.Errorf("%w: hierarchy level must not be negative", ErrInvalidFilter)
	}
	if f.HierarchyOnlyParents && !f.HierarchyEnabled {
		return fmt.Errorf("%w: hierarchy_only_parents requires hierarchy", ErrInvalidFilter)
	}
	return nil
}

// Normalize sorts the id and prefix sets so that equal filters produce equal
// fingerprints and byte-identical reports.
func (f *Filter) Normalize() {
	sort.Slice(f.JournalIDs, func(i, j int) bool { return f.JournalIDs[i] < f.JournalIDs[j] })
	sort.Strings(f.AccountCodePrefixes)
	sort.Slice(f.AnalyticAccountIDs, func(i, j int) bool { return f.AnalyticAccountIDs[i] < f.AnalyticAccountIDs[j] })
}

// Fingerprint returns a deterministic cache key for the filter.
func (f Filter) Fingerprint() string {
	var b strings.Builder
	b.WriteString("tb:")
	b.WriteString(strconv.FormatInt(f.CompanyID, 10))
	b.WriteString(":")
	b.WriteString(f.DateFrom.Format("20060102"))
	b.WriteString("-")
	b.WriteString(f.DateTo.Format("20060102"))
	b.WriteString("-fy")
	b.WriteString(f.FiscalYearStart.Format("20060102"))
	b.WriteString(":j=")
	b.WriteString(joinInt64s(f.JournalIDs))
	b.WriteString(":a=")
	b.WriteString(joinInt64s(f.AnalyticAccountIDs))
	b.WriteString(":c=")
	prefixes := append([]string(nil), f.AccountCodePrefixes...)
	sort.Strings(prefixes)
	b.WriteString(strings.Join(prefixes, ","))
	b.WriteString(":")
	for _, flag := range []bool{f.IncludeUnposted, f.SplitByCurrency, f.SkipZeroBalance, f.HierarchyEnabled, f.HierarchyOnlyParents} {
		if flag {
			b.WriteString("1")
		} else {
			b.WriteString("0")
		}
	}
	b.WriteString(":l=")
	b.WriteString(strconv.Itoa(f.HierarchyMaxLevel))
	return b.String()
}

func joinInt64s(ids []int64) string {
	if len(ids) == 0 {
		return "all"
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
