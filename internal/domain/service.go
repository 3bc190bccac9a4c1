// Package domain holds the business logic tying the ACWR engine to the
// persistence layer.
package domain

import (
	"context"
	"fmt"
	"time"

	"example.com/trainingload/internal/acwr"
	"example.com/trainingload/internal/observability"
)

// Repository captures the persistence operations the service depends on.
type Repository interface {
	// ActivityWindow returns activity rows for [from, to] ordered ascending
	// by date. Days without activity have no row.
	ActivityWindow(ctx context.Context, tenantID, userID string, from, to time.Time) ([]ActivityRecord, error)
	// UpsertDailyMetrics writes results keyed by (tenant, user, date).
	UpsertDailyMetrics(ctx context.Context, tenantID string, rows []DailyMetrics) error
	// DailyMetricsRange returns stored results for [from, to] ascending.
	DailyMetricsRange(ctx context.Context, tenantID, userID string, from, to time.Time) ([]DailyMetrics, error)
	// UsersWithActivitySince lists users with at least one activity on or
	// after the given date.
	UsersWithActivitySince(ctx context.Context, tenantID string, since time.Time) ([]string, error)
}

// Config carries the engine parameters the service applies when the caller
// does not override them.
type Config struct {
	DecayRate         float64
	ChronicPeriodDays int
	AcuteWindowDays   int
	MinChronicDays    int
	BatchSize         int
	UseCaching        bool
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() Config {
	return Config{
		DecayRate:         acwr.DefaultDecayRate,
		ChronicPeriodDays: acwr.DefaultChronicPeriodDays,
		AcuteWindowDays:   7,
		MinChronicDays:    acwr.DefaultMinChronicDays,
		BatchSize:         acwr.DefaultBatchSize,
		UseCaching:        true,
	}
}

// Service orchestrates training-load workflows.
type Service struct {
	repo Repository
	cfg  Config
}

// NewService constructs a Service.
func NewService(repo Repository, cfg Config) *Service {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Service{repo: repo, cfg: cfg}
}

// AssessmentParams are per-request engine overrides; zero values fall back to
// the service configuration.
type AssessmentParams struct {
	DecayRate         float64
	ChronicPeriodDays int
}

// Assess loads the acute and chronic activity windows ending at refDate and
// runs the optimized engine over them. Data gaps come back inside the report;
// parameter problems are errors.
func (s *Service) Assess(ctx context.Context, tenantID, userID string, refDate time.Time, params AssessmentParams) (acwr.Report, error) {
	opts := s.options(params)
	if !acwr.ValidateDecayRate(opts.DecayRate) {
		return acwr.Report{}, fmt.Errorf("%w: got %g", acwr.ErrInvalidDecayRate, opts.DecayRate)
	}
	if !acwr.ValidateChronicPeriod(opts.ChronicPeriodDays) {
		return acwr.Report{}, fmt.Errorf("%w: got %d", acwr.ErrInvalidChronicPeriod, opts.ChronicPeriodDays)
	}

	day := acwr.Day(refDate)
	from := day.AddDate(0, 0, -(opts.ChronicPeriodDays - 1))

	rows, err := s.repo.ActivityWindow(ctx, tenantID, userID, from, day)
	if err != nil {
		return acwr.Report{}, fmt.Errorf("load activity window: %w", err)
	}

	acute, chronic := splitWindows(rows, day, s.cfg.AcuteWindowDays, opts.ChronicPeriodDays)
	report, err := acwr.EnhancedACWROptimized(acute, chronic, day, opts)
	if err != nil {
		return acwr.Report{}, err
	}

	s.record(report)
	return report, nil
}

// RecomputeResult summarises a recompute pass over a date range.
type RecomputeResult struct {
	Computed int
	Skipped  int
}

// RecomputeRange recomputes and persists daily metrics for every day in
// [from, to]. Days whose report is a data gap are skipped, not persisted and
// not errors.
func (s *Service) RecomputeRange(ctx context.Context, tenantID, userID string, from, to time.Time) (RecomputeResult, error) {
	var result RecomputeResult

	first := acwr.Day(from)
	last := acwr.Day(to)
	if first.After(last) {
		return result, fmt.Errorf("invalid range: %s is after %s", first.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	opts := s.options(AssessmentParams{})
	windowStart := first.AddDate(0, 0, -(opts.ChronicPeriodDays - 1))
	rows, err := s.repo.ActivityWindow(ctx, tenantID, userID, windowStart, last)
	if err != nil {
		return result, fmt.Errorf("load activity window: %w", err)
	}

	now := time.Now().UTC()
	metrics := make([]DailyMetrics, 0, acwr.DaysBetween(first, last)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		acute, chronic := splitWindows(rows, day, s.cfg.AcuteWindowDays, opts.ChronicPeriodDays)
		report, err := acwr.EnhancedACWROptimized(acute, chronic, day, opts)
		if err != nil {
			return result, err
		}
		s.record(report)

		if report.Gap != nil {
			result.Skipped++
			continue
		}

		m := report.Computed
		metrics = append(metrics, DailyMetrics{
			UserID:               userID,
			Date:                 day,
			AcuteLoadAvg:         m.AcuteLoadAvg,
			AcuteTRIMPAvg:        m.AcuteTRIMPAvg,
			ChronicLoad:          m.ChronicLoad,
			ChronicTRIMP:         m.ChronicTRIMP,
			LoadRatio:            m.LoadRatio,
			TRIMPRatio:           m.TRIMPRatio,
			NormalizedDivergence: m.NormalizedDivergence,
			DecayRate:            m.DecayRate,
			Method:               m.Method,
			DataQuality:          m.DataQuality,
			UpdatedAt:            now,
		})
		result.Computed++
	}

	if len(metrics) > 0 {
		if err := s.repo.UpsertDailyMetrics(ctx, tenantID, metrics); err != nil {
			return result, fmt.Errorf("persist daily metrics: %w", err)
		}
	}

	return result, nil
}

// History returns stored daily metrics for the range.
func (s *Service) History(ctx context.Context, tenantID, userID string, from, to time.Time) ([]DailyMetrics, error) {
	return s.repo.DailyMetricsRange(ctx, tenantID, userID, acwr.Day(from), acwr.Day(to))
}

// UsersWithActivitySince exposes the user discovery read for batch jobs.
func (s *Service) UsersWithActivitySince(ctx context.Context, tenantID string, since time.Time) ([]string, error) {
	return s.repo.UsersWithActivitySince(ctx, tenantID, since)
}

func (s *Service) options(params AssessmentParams) acwr.OptimizeOptions {
	opts := acwr.OptimizeOptions{
		DecayRate:         s.cfg.DecayRate,
		ChronicPeriodDays: s.cfg.ChronicPeriodDays,
		UseCaching:        s.cfg.UseCaching,
		BatchSize:         s.cfg.BatchSize,
		MinChronicDays:    s.cfg.MinChronicDays,
	}
	if params.DecayRate != 0 {
		opts.DecayRate = params.DecayRate
	}
	if params.ChronicPeriodDays != 0 {
		opts.ChronicPeriodDays = params.ChronicPeriodDays
	}
	return opts
}

func (s *Service) record(report acwr.Report) {
	if report.Gap != nil {
		observability.RecordDataGap(string(report.Gap.Kind))
		return
	}
	observability.RecordCalculation(report.Computed.Optimization)
}

// splitWindows partitions raw rows into the engine's acute and chronic sets
// relative to refDate. The chronic set is the superset covering the full
// lookback; the acute set covers the most recent acuteDays. Rows outside the
// chronic window or after refDate are dropped.
func splitWindows(rows []ActivityRecord, refDate time.Time, acuteDays, chronicDays int) (acute, chronic []acwr.Activity) {
	for _, row := range rows {
		ago := acwr.DaysBetween(row.Date, refDate)
		if ago < 0 || ago >= chronicDays {
			continue
		}
		a := acwr.Activity{Date: acwr.Day(row.Date), LoadMiles: row.LoadMiles, TRIMP: row.TRIMP}
		chronic = append(chronic, a)
		if ago < acuteDays {
			acute = append(acute, a)
		}
	}
	return acute, chronic
}
