package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// ErrCompanyNotFound indicates the requested company is missing.
var ErrCompanyNotFound = errors.New("report: company not found")

// Repository reads ledger entries and catalog metadata from Postgres. It
// implements EntrySource, Catalog, and Directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchEntries loads every entry that can contribute to either report
// window. Predicates Postgres can apply cheaply are pushed down; prefix and
// analytic filtering are re-checked by the aggregator.
func (r *Repository) FetchEntries(ctx context.Context, f Filter) ([]ledger.Entry, error) {
	query := `SELECT id, account_id, company_id, journal_id, entry_date, debit, credit, balance,
	       currency_id, amount_currency, state, kind, analytic_distribution
	FROM ledger_entries
	WHERE company_id = $1 AND entry_date <= $2 AND kind = $3`
	args := []any{f.CompanyID, f.DateTo, string(ledger.LineKindNormal)}

	if f.IncludeUnposted {
		args = append(args, []string{string(ledger.PostingStatePosted), string(ledger.PostingStateDraft)})
	} else {
		args = append(args, []string{string(ledger.PostingStatePosted)})
	}
	query += ` AND state = ANY($` + strconv.Itoa(len(args)) + `)`

	if len(f.JournalIDs) > 0 {
		args = append(args, f.JournalIDs)
		query += ` AND journal_id = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("report: query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e        ledger.Entry
			state    string
			kind     string
			analytic []byte
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.CompanyID, &e.JournalID, &e.Date,
			&e.Debit, &e.Credit, &e.Balance, &e.CurrencyID, &e.AmountCurrency,
			&state, &kind, &analytic); err != nil {
			return nil, fmt.Errorf("report: scan entry: %w", err)
		}
		e.State = ledger.PostingState(state)
		e.Kind = ledger.LineKind(kind)
		if len(analytic) > 0 {
			dist, err := decodeAnalyticDistribution(analytic)
			if err != nil {
				return nil, fmt.Errorf("report: entry %d: %w", e.ID, err)
			}
			e.AnalyticDistribution = dist
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// decodeAnalyticDistribution parses the jsonb analytic map. Keys arrive as
// strings and are converted back to ids.
func decodeAnalyticDistribution(raw []byte) (map[int64]float64, error) {
	var byKey map[string]float64
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, fmt.Errorf("decode analytic distribution: %w", err)
	}
	dist := make(map[int64]float64, len(byKey))
	for key, weight := range byKey {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode analytic distribution: bad key %q", key)
		}
		dist[id] = weight
	}
	return dist, nil
}

// AccountsByIDs loads account metadata for the given ids.
func (r *Repository) AccountsByIDs(ctx context.Context, ids []int64) ([]ledger.Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, type, group_id FROM accounts WHERE id = ANY($1) ORDER BY code`, ids)
	if err != nil {
		return nil, fmt.Errorf("report: query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.GroupID); err != nil {
			return nil, fmt.Errorf("report: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GroupsByIDs loads account groups ordered by code prefix.
func (r *Repository) GroupsByIDs(ctx context.Context, ids []int64) ([]ledger.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code_prefix, parent_id, level FROM account_groups WHERE id = ANY($1) ORDER BY code_prefix`, ids)
	if err != nil {
		return nil, fmt.Errorf("report: query groups: %w", err)
	}
	defer rows.Close()

	var groups []ledger.Group
	for rows.Next() {
		var g ledger.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CodePrefix, &g.ParentID, &g.Level); err != nil {
			return nil, fmt.Errorf("report: scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CurrenciesByIDs loads currency labels for the given ids.
func (r *Repository) CurrenciesByIDs(ctx context.Context, ids []int64) ([]ledger.Currency, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM currencies WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("report: query currencies: %w", err)
	}
	defer rows.Close()

	var currencies []ledger.Currency
	for rows.Next() {
		var c ledger.Currency
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("report: scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// CompanyByID loads a company and its fiscal calendar.
func (r *Repository) CompanyByID(ctx context.Context, id int64) (ledger.Company, error) {
	var (
		c     ledger.Company
		month int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, currency_id, fiscal_year_month, fiscal_year_day FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CurrencyID, &month, &c.FiscalYearDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Company{}, ErrCompanyNotFound
		}
		return ledger.Company{}, fmt.Errorf("report: query company: %w", err)
	}
	c.FiscalYearMonth = timeMonth(month)
	return c, nil
}

func timeMonth(m int) time.Month {
	if m < 1 || m > 12 {
		return time.January
	}
	return time.Month(m)
}

// JournalsByCompany lists the journals of a company ordered by code.
func (r *Repository) JournalsByCompany(ctx context.Context, companyID int64) ([]ledger.Journal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, code, name FROM journals WHERE company_id = $1 ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("report: query journals: %w", err)
	}
	defer rows.Close()

	var journals []ledger.Journal
	for rows.Next() {
		var j ledger.Journal
		if err := rows.Scan(&j.ID, &j.CompanyID, &j.Code, &j.Name); err != nil {
			return nil, fmt.Errorf("report: scan journal: %w", err)
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

// AnalyticAccountsByCompany lists analytic accounts ordered by name.
func (r *Repository) AnalyticAccountsByCompany(ctx context.Context, companyID int64) ([]ledger.AnalyticAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, name FROM analytic_accounts WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("report: query analytic accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.AnalyticAccount
	for rows.Next() {
		var a ledger.AnalyticAccount
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Name); err != nil {
			return nil, fmt.Errorf("report: scan analytic account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
