package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/trialbalance/internal/ledger"
)

// EntrySource yields raw ledger entries matching a filter. Sources are
// expected to apply company/date/state/journal predicates server side where
// they can; the engine re-validates what it cannot trust.
type EntrySource interface {
	FetchEntries(ctx context.Context, f Filter) ([]ledger.Entry, error)
}

// Directory resolves companies and the lookup sets the filter UI offers.
type Directory interface {
	CompanyByID(ctx context.Context, id int64) (ledger.Company, error)
	JournalsByCompany(ctx context.Context, companyID int64) ([]ledger.Journal, error)
	AnalyticAccountsByCompany(ctx context.Context, companyID int64) ([]ledger.AnalyticAccount, error)
}

// Result is a fully computed trial balance.
type Result struct {
	Lines       []Line    `json:"lines"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Service computes trial balance reports. Each invocation reads its own
// entry slice and catalog snapshot, so concurrent runs never share state;
// identical concurrent requests are collapsed through singleflight and
// served from Redis for a short TTL.
type Service struct {
	source    EntrySource
	catalog   Catalog
	directory Directory
	formatter ValueFormatter
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    *slog.Logger
	flight    singleflight.Group
	now       func() time.Time
}

// NewService wires the report service. The cache client may be nil, which
// disables result caching.
func NewService(source EntrySource, catalog Catalog, directory Directory, formatter ValueFormatter, cache *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:    source,
		catalog:   catalog,
		directory: directory,
		formatter: formatter,
		cache:     cache,
		cacheTTL:  5 * time.Minute,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// TrialBalance computes the report for the filter. When the filter carries no
// fiscal year start it is resolved from the company's fiscal calendar first.
func (s *Service) TrialBalance(ctx context.Context, f Filter, unfolded []string) (Result, error) {
	if f.FiscalYearStart.IsZero() {
		if f.CompanyID <= 0 {
			return Result{}, fmt.Errorf("%w: company id is required", ErrInvalidFilter)
		}
		company, err := s.directory.CompanyByID(ctx, f.CompanyID)
		if err != nil {
			return Result{}, fmt.Errorf("report: resolve company %d: %w", f.CompanyID, err)
		}
		f.FiscalYearStart = company.FiscalYearStart(f.DateFrom)
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	key := cacheKey(f, unfolded)
	if cached, ok := s.cachedResult(ctx, key); ok {
		return cached, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		return s.compute(ctx, f, unfolded)
	})
	if err != nil {
		return Result{}, err
	}
	result := value.(Result)
	s.storeResult(ctx, key, result)
	return result, nil
}

func (s *Service) compute(ctx context.Context, f Filter, unfolded []string) (Result, error) {
	runID := uuid.NewString()
	started := s.now()

	entries, err := s.source.FetchEntries(ctx, f)
	if err != nil {
		return Result{}, fmt.Errorf("report: fetch entries: %w", err)
	}
	idx, err := BuildIndex(ctx, s.catalog, entries)
	if err != nil {
		return Result{}, err
	}
	aggs, err := AggregateEntries(entries, f, idx)
	if err != nil {
		return Result{}, err
	}

	unfoldedSet := make(map[string]struct{}, len(unfolded))
	for _, id := range unfolded {
		unfoldedSet[id] = struct{}{}
	}
	lines, err := BuildLines(aggs, idx, f, unfoldedSet, s.formatter)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("trial balance computed",
		slog.String("run_id", runID),
		slog.Int64("company_id", f.CompanyID),
		slog.String("window", windowLabel(f.DateFrom, f.DateTo)),
		slog.Int("entries", len(entries)),
		slog.Int("lines", len(lines)),
		slog.Duration("took", s.now().Sub(started)),
	)
	return Result{Lines: lines, GeneratedAt: started.UTC()}, nil
}

// Journals lists the journals available as filter choices for a company.
func (s *Service) Journals(ctx context.Context, companyID int64) ([]ledger.Journal, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("%w: company id is required", ErrInvalidFilter)
	}
	return s.directory.JournalsByCompany(ctx, companyID)
}

// AnalyticAccounts lists the analytic accounts available as filter choices.
func (s *Service) AnalyticAccounts(ctx context.Context, companyID int64) ([]ledger.AnalyticAccount, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("%w: company id is required", ErrInvalidFilter)
	}
	return s.directory.AnalyticAccountsByCompany(ctx, companyID)
}

func cacheKey(f Filter, unfolded []string) string {
	key := f.Fingerprint()
	if len(unfolded) == 0 {
		return key
	}
	sorted := append([]string(nil), unfolded...)
	sort.Strings(sorted)
	return key + ":u=" + strings.Join(sorted, ",")
}

func (s *Service) cachedResult(ctx context.Context, key string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.Warn("drop undecodable cached report", slog.String("key", key), slog.Any("error", err))
		return Result{}, false
	}
	return result, true
}

func (s *Service) storeResult(ctx context.Context, key string, result Result) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("cache report", slog.String("key", key), slog.Any("error", err))
	}
}
