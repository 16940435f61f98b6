package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/trialbalance/internal/report"
)

// ReportWarmupJob precomputes the current-month trial balance for a company
// with the default filter (posted entries only, zero rows skipped), priming
// the Redis cache used by interactive requests.
type ReportWarmupJob struct {
	Service *report.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(service *report.Service, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.CompanyID <= 0 {
		return asynq.SkipRetry
	}

	now := j.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	filter := report.Filter{
		CompanyID:       payload.CompanyID,
		DateFrom:        monthStart,
		DateTo:          monthEnd,
		SkipZeroBalance: true,
	}
	result, err := j.Service.TrialBalance(ctx, filter, nil)
	if err != nil {
		if errors.Is(err, report.ErrCompanyNotFound) {
			return asynq.SkipRetry
		}
		return err
	}
	j.logger().Info("report cache warmed",
		slog.Int64("company_id", payload.CompanyID),
		slog.Int("lines", len(result.Lines)),
	)
	return nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
