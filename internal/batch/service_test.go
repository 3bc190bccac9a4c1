package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/trainingload/internal/acwr"
	"example.com/trainingload/internal/domain"
)

var refDay = time.Date(2025, time.September, 7, 0, 0, 0, 0, time.UTC)

type stubStore struct {
	mu        sync.Mutex
	records   map[string][]domain.ActivityRecord
	upserts   map[string][]domain.DailyMetrics
	failUsers map[string]error
}

func newStubStore() *stubStore {
	return &stubStore{
		records:   make(map[string][]domain.ActivityRecord),
		upserts:   make(map[string][]domain.DailyMetrics),
		failUsers: make(map[string]error),
	}
}

func (s *stubStore) ActivityWindow(_ context.Context, _, userID string, from, to time.Time) ([]domain.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failUsers[userID]; ok {
		return nil, err
	}
	var out []domain.ActivityRecord
	for _, r := range s.records[userID] {
		day := acwr.Day(r.Date)
		if !day.Before(from) && !day.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) UpsertDailyMetrics(_ context.Context, _ string, rows []domain.DailyMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.upserts[row.UserID] = append(s.upserts[row.UserID], row)
	}
	return nil
}

func (s *stubStore) addDaily(userID string, days int, load, trimp float64) {
	for d := 0; d < days; d++ {
		s.records[userID] = append(s.records[userID], domain.ActivityRecord{
			UserID:    userID,
			Date:      refDay.AddDate(0, 0, -d),
			LoadMiles: load,
			TRIMP:     trimp,
		})
	}
}

func TestBulkUniformHistoryYieldsRatioOne(t *testing.T) {
	store := newStubStore()
	store.addDaily("user-1", 28, 10.0, 8.0)

	svc := NewBulkService(store, Config{})
	summary := svc.Recompute(context.Background(), "tenant-1", []Request{
		{UserID: "user-1", Dates: []time.Time{refDay}},
	})

	require.Empty(t, summary.Failures)
	require.Equal(t, 1, summary.Rows)
	require.NotEmpty(t, summary.RunID)

	rows := store.upserts["user-1"]
	require.Len(t, rows, 1)
	row := rows[0]
	require.InDelta(t, 10.0, row.AcuteLoadAvg, 1e-9)
	require.InDelta(t, 10.0, row.ChronicLoad, 1e-9)
	require.InDelta(t, 1.0, row.LoadRatio, 1e-9)
	require.InDelta(t, 1.0, row.TRIMPRatio, 1e-9)
	require.InDelta(t, 0.0, row.NormalizedDivergence, 1e-9)
	require.Equal(t, acwr.MethodExponentialDecay, row.Method)
}

func TestBulkAcutePolicyPenalizesMissingDays(t *testing.T) {
	// One activity in the whole lookback. The acute mean divides by 7
	// regardless, while the chronic mean normalizes by the weight of days
	// present, so the two policies diverge on sparse data.
	store := newStubStore()
	store.records["user-1"] = []domain.ActivityRecord{
		{UserID: "user-1", Date: refDay, LoadMiles: 7.0, TRIMP: 7.0},
	}

	svc := NewBulkService(store, Config{})
	svc.Recompute(context.Background(), "tenant-1", []Request{
		{UserID: "user-1", Dates: []time.Time{refDay}},
	})

	rows := store.upserts["user-1"]
	require.Len(t, rows, 1)
	row := rows[0]
	require.InDelta(t, 1.0, row.AcuteLoadAvg, 1e-9)
	require.InDelta(t, 7.0, row.ChronicLoad, 1e-9)
	require.InDelta(t, 0.143, row.LoadRatio, 1e-9)
}

func TestBulkZeroHistoryProducesZeros(t *testing.T) {
	store := newStubStore()

	svc := NewBulkService(store, Config{})
	svc.Recompute(context.Background(), "tenant-1", []Request{
		{UserID: "user-1", Dates: []time.Time{refDay}},
	})

	rows := store.upserts["user-1"]
	require.Len(t, rows, 1)
	row := rows[0]
	require.Zero(t, row.AcuteLoadAvg)
	require.Zero(t, row.ChronicLoad)
	require.Zero(t, row.LoadRatio)
	require.Zero(t, row.TRIMPRatio)
	require.Zero(t, row.NormalizedDivergence)
}

func TestBulkSumsMultipleActivitiesPerDay(t *testing.T) {
	store := newStubStore()
	store.records["user-1"] = []domain.ActivityRecord{
		{UserID: "user-1", Date: refDay, LoadMiles: 3.5, TRIMP: 2.0},
		{UserID: "user-1", Date: refDay.Add(8 * time.Hour), LoadMiles: 3.5, TRIMP: 2.0},
	}

	svc := NewBulkService(store, Config{})
	svc.Recompute(context.Background(), "tenant-1", []Request{
		{UserID: "user-1", Dates: []time.Time{refDay}},
	})

	rows := store.upserts["user-1"]
	require.Len(t, rows, 1)
	require.InDelta(t, 7.0, rows[0].ChronicLoad, 1e-9)
	require.InDelta(t, 1.0, rows[0].AcuteLoadAvg, 1e-9)
}

func TestBulkIsolatesUserFailures(t *testing.T) {
	store := newStubStore()
	store.addDaily("user-ok", 28, 10.0, 8.0)
	store.failUsers["user-bad"] = errors.New("connection reset")

	svc := NewBulkService(store, Config{Concurrency: 2})
	summary := svc.Recompute(context.Background(), "tenant-1", []Request{
		{UserID: "user-ok", Dates: []time.Time{refDay, refDay.AddDate(0, 0, -1)}},
		{UserID: "user-bad", Dates: []time.Time{refDay}},
	})

	require.Equal(t, 2, summary.Users)
	require.Equal(t, 2, summary.Rows)
	require.Len(t, summary.Failures, 1)
	require.Equal(t, "user-bad", summary.Failures[0].UserID)
	require.Empty(t, store.upserts["user-bad"])
	require.Len(t, store.upserts["user-ok"], 2)
}

func TestBulkRerunIsIdempotentShape(t *testing.T) {
	store := newStubStore()
	store.addDaily("user-1", 28, 10.0, 8.0)

	svc := NewBulkService(store, Config{})
	req := []Request{{UserID: "user-1", Dates: []time.Time{refDay}}}

	first := svc.Recompute(context.Background(), "tenant-1", req)
	second := svc.Recompute(context.Background(), "tenant-1", req)

	require.Equal(t, first.Rows, second.Rows)
	rows := store.upserts["user-1"]
	require.Len(t, rows, 2)
	require.Equal(t, rows[0].LoadRatio, rows[1].LoadRatio)
	require.Equal(t, rows[0].Date, rows[1].Date)
}
