package http

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/trialbalance/internal/platform/httpx"
	"github.com/odyssey-erp/trialbalance/internal/report"
)

// Handler wires the trial balance HTTP surface.
type Handler struct {
	logger    *slog.Logger
	service   *report.Service
	validate  *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the report handler.
func NewHandler(logger *slog.Logger, service *report.Service) *Handler {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		validate:  validator.New(),
		rateLimit: limiter,
	}
}

// MountRoutes registers the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/reports/trial-balance", h.handleGetReport)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/api/reports/trial-balance/export.csv", h.handleExportCSV)
	})
	r.Get("/api/journals", h.handleJournals)
	r.Get("/api/analytic-accounts", h.handleAnalyticAccounts)
}

// reportQuery is the decoded query string of a report request.
type reportQuery struct {
	CompanyID       int64     `validate:"required,gt=0"`
	DateFrom        time.Time `validate:"required"`
	DateTo          time.Time `validate:"required"`
	IncludeUnposted bool
	SkipZero        bool
	Hierarchy       bool
	OnlyParents     bool
	MaxLevel        int `validate:"gte=0,lte=5"`
	SplitCurrency   bool
	JournalIDs      []int64
	AccountCodes    []string
	AnalyticIDs     []int64
	Unfolded        []string
}

func (q reportQuery) filter() report.Filter {
	return report.Filter{
		DateFrom:             q.DateFrom,
		DateTo:               q.DateTo,
		CompanyID:            q.CompanyID,
		IncludeUnposted:      q.IncludeUnposted,
		JournalIDs:           q.JournalIDs,
		AccountCodePrefixes:  q.AccountCodes,
		AnalyticAccountIDs:   q.AnalyticIDs,
		SplitByCurrency:      q.SplitCurrency,
		SkipZeroBalance:      q.SkipZero,
		HierarchyEnabled:     q.Hierarchy,
		HierarchyOnlyParents: q.OnlyParents,
		HierarchyMaxLevel:    q.MaxLevel,
	}
}

// parseReportQuery decodes query parameters, applying the wizard defaults:
// posted entries only, skip zero rows, no hierarchy, no currency split.
func parseReportQuery(r *http.Request) (reportQuery, error) {
	values := r.URL.Query()
	q := reportQuery{SkipZero: true}

	var err error
	if q.CompanyID, err = parseInt64Param(values.Get("company_id")); err != nil {
		return q, errors.New("company_id must be an integer")
	}
	if q.DateFrom, err = parseDateParam(values.Get("date_from")); err != nil {
		return q, errors.New("date_from must be a YYYY-MM-DD date")
	}
	if q.DateTo, err = parseDateParam(values.Get("date_to")); err != nil {
		return q, errors.New("date_to must be a YYYY-MM-DD date")
	}

	q.IncludeUnposted = parseBoolParam(values.Get("include_unposted"), false)
	q.SkipZero = parseBoolParam(values.Get("skip_zero"), true)
	q.Hierarchy = parseBoolParam(values.Get("hierarchy"), false)
	q.OnlyParents = parseBoolParam(values.Get("only_parents"), false)
	q.SplitCurrency = parseBoolParam(values.Get("split_currency"), false)

	if raw := values.Get("max_level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("max_level must be an integer")
		}
		q.MaxLevel = level
	}

	if q.JournalIDs, err = parseInt64List(values.Get("journal_ids")); err != nil {
		return q, errors.New("journal_ids must be comma-separated integers")
	}
	if q.AnalyticIDs, err = parseInt64List(values.Get("analytic_ids")); err != nil {
		return q, errors.New("analytic_ids must be comma-separated integers")
	}
	q.AccountCodes = parseStringList(values.Get("account_codes"))
	q.Unfolded = parseStringList(values.Get("unfolded"))
	return q, nil
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(q); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	result, err := h.service.TrialBalance(r.Context(), q.filter(), q.Unfolded)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleJournals(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseInt64Param(r.URL.Query().Get("company_id"))
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "company_id must be a positive integer")
		return
	}
	journals, err := h.service.Journals(r.Context(), companyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": journals})
}

func (h *Handler) handleAnalyticAccounts(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseInt64Param(r.URL.Query().Get("company_id"))
	if err != nil || companyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "company_id must be a positive integer")
		return
	}
	accounts, err := h.service.AnalyticAccounts(r.Context(), companyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"analytic_accounts": accounts})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidFilter):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
	case errors.Is(err, report.ErrCompanyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, report.ErrUnresolvedAccount), errors.Is(err, report.ErrUnresolvedGroup):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unresolved Reference", err.Error())
	case errors.Is(err, report.ErrAmountOverflow):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Amount Overflow", err.Error())
	default:
		h.logger.Error("trial balance request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseInt64Param(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

func parseBoolParam(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseInt64List(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseStringList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
