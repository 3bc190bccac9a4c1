// Package batch implements the bulk multi-user recompute path used by
// scheduled jobs. It is an independent, simpler ACWR computation than the
// enhanced engine: the acute average keeps a fixed divisor of 7 regardless of
// missing days, while the chronic average normalizes by the weight of days
// actually present. The asymmetry is inherited product behavior; do not
// unify the two policies here.
package batch

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"example.com/trainingload/internal/acwr"
	"example.com/trainingload/internal/domain"
	"example.com/trainingload/internal/observability"
)

// acuteWindowDays is the fixed acute divisor for the bulk path.
const acuteWindowDays = 7

// Store is the slice of the persistence layer the bulk service needs.
type Store interface {
	ActivityWindow(ctx context.Context, tenantID, userID string, from, to time.Time) ([]domain.ActivityRecord, error)
	UpsertDailyMetrics(ctx context.Context, tenantID string, rows []domain.DailyMetrics) error
}

// Config tunes the bulk recompute run.
type Config struct {
	ChronicWindowDays int     // lookback for the chronic average, default 28
	DecayRate         float64 // default 0.1
	Concurrency       int     // bound on in-flight user partitions, default 4
}

func (c Config) withDefaults() Config {
	if c.ChronicWindowDays <= 0 {
		c.ChronicWindowDays = acwr.DefaultChronicPeriodDays
	}
	if c.DecayRate <= 0 {
		c.DecayRate = acwr.DefaultDecayRate
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// Request names one user partition: the dates to recompute for that user.
type Request struct {
	UserID string
	Dates  []time.Time
}

// UserFailure records a partition that could not be completed. The partition
// is independently retryable; the upsert write-back makes re-runs safe.
type UserFailure struct {
	UserID string
	Err    error
}

// Summary describes one bulk run.
type Summary struct {
	RunID    string
	Users    int
	Rows     int
	Failures []UserFailure
	Elapsed  time.Duration
}

// BulkService recomputes daily metrics for many users against the store.
type BulkService struct {
	store Store
	cfg   Config
}

// NewBulkService constructs a BulkService.
func NewBulkService(store Store, cfg Config) *BulkService {
	return &BulkService{store: store, cfg: cfg.withDefaults()}
}

// Recompute processes the user partitions with bounded concurrency. Failures
// are collected per user instead of aborting the run; the engine cost is
// negligible next to the data loading, so the bound mainly protects the
// store.
func (s *BulkService) Recompute(ctx context.Context, tenantID string, requests []Request) Summary {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString(), Users: len(requests)}

	jobs := make(chan Request)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range jobs {
				rows, err := s.recomputeUser(ctx, tenantID, req)
				mu.Lock()
				if err != nil {
					summary.Failures = append(summary.Failures, UserFailure{UserID: req.UserID, Err: err})
				} else {
					summary.Rows += rows
				}
				mu.Unlock()
				if err != nil {
					observability.RecordBulkUserFailure()
					log.Errorf("bulk recompute failed for user %s: %s", req.UserID, err)
				}
			}
		}()
	}

	for _, req := range requests {
		select {
		case <-ctx.Done():
			mu.Lock()
			summary.Failures = append(summary.Failures, UserFailure{UserID: req.UserID, Err: ctx.Err()})
			mu.Unlock()
		case jobs <- req:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Elapsed = time.Since(start)
	observability.ObserveBulkRun(summary.Elapsed)
	log.Printf("bulk recompute run %s: %d users, %d rows, %d failures in %s",
		summary.RunID, summary.Users, summary.Rows, len(summary.Failures), summary.Elapsed)
	return summary
}

type dayLoad struct {
	load  float64
	trimp float64
}

func (s *BulkService) recomputeUser(ctx context.Context, tenantID string, req Request) (int, error) {
	if len(req.Dates) == 0 {
		return 0, nil
	}

	first := acwr.Day(req.Dates[0])
	last := first
	for _, d := range req.Dates[1:] {
		day := acwr.Day(d)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	from := first.AddDate(0, 0, -(s.cfg.ChronicWindowDays - 1))
	records, err := s.store.ActivityWindow(ctx, tenantID, req.UserID, from, last)
	if err != nil {
		return 0, fmt.Errorf("load activity window: %w", err)
	}

	// Multiple activities on one day are summed into a single daily total.
	lookup := make(map[time.Time]dayLoad, len(records))
	for _, r := range records {
		day := acwr.Day(r.Date)
		v := lookup[day]
		v.load += r.LoadMiles
		v.trimp += r.TRIMP
		lookup[day] = v
	}

	now := time.Now().UTC()
	metrics := make([]domain.DailyMetrics, 0, len(req.Dates))
	for _, d := range req.Dates {
		row := s.computeDay(lookup, acwr.Day(d))
		row.UserID = req.UserID
		row.UpdatedAt = now
		metrics = append(metrics, row)
	}

	if err := s.store.UpsertDailyMetrics(ctx, tenantID, metrics); err != nil {
		return 0, fmt.Errorf("persist daily metrics: %w", err)
	}
	return len(metrics), nil
}

func (s *BulkService) computeDay(lookup map[time.Time]dayLoad, day time.Time) domain.DailyMetrics {
	// Acute: simple mean over the last 7 calendar days including the day
	// itself. The divisor stays 7 even when days are missing, so sparse
	// weeks pull the average down.
	var acuteLoad, acuteTRIMP float64
	for ago := 0; ago < acuteWindowDays; ago++ {
		if v, ok := lookup[day.AddDate(0, 0, -ago)]; ok {
			acuteLoad += v.load
			acuteTRIMP += v.trimp
		}
	}
	acuteLoad /= acuteWindowDays
	acuteTRIMP /= acuteWindowDays

	// Chronic: decay-weighted mean over the window, with missing days
	// excluded from both numerator and denominator.
	var loadSum, trimpSum, weightSum float64
	for ago := 0; ago < s.cfg.ChronicWindowDays; ago++ {
		v, ok := lookup[day.AddDate(0, 0, -ago)]
		if !ok {
			continue
		}
		w := math.Exp(-s.cfg.DecayRate * float64(ago))
		loadSum += w * v.load
		trimpSum += w * v.trimp
		weightSum += w
	}

	var chronicLoad, chronicTRIMP float64
	if weightSum > 0 {
		chronicLoad = loadSum / weightSum
		chronicTRIMP = trimpSum / weightSum
	}

	loadRatio := acwr.SafeRatio(acuteLoad, chronicLoad)
	trimpRatio := acwr.SafeRatio(acuteTRIMP, chronicTRIMP)

	return domain.DailyMetrics{
		Date:                 day,
		AcuteLoadAvg:         acwr.Round3(acuteLoad),
		AcuteTRIMPAvg:        acwr.Round3(acuteTRIMP),
		ChronicLoad:          acwr.Round3(chronicLoad),
		ChronicTRIMP:         acwr.Round3(chronicTRIMP),
		LoadRatio:            acwr.Round3(loadRatio),
		TRIMPRatio:           acwr.Round3(trimpRatio),
		NormalizedDivergence: acwr.Round3(acwr.Divergence(loadRatio, trimpRatio)),
		DecayRate:            s.cfg.DecayRate,
		Method:               acwr.MethodExponentialDecay,
	}
}
