package domain

import "time"

// ActivityRecord is one raw activity row loaded from the persistence layer.
// Rest days have no row at all; absence means "no activity that day", which
// is distinct from an activity with zero load.
type ActivityRecord struct {
	ActivityID string
	UserID     string
	Date       time.Time
	LoadMiles  float64
	TRIMP      float64
}

// DailyMetrics is the persisted training-load result for one user and day,
// upserted by (tenant, user, date) so recomputes are idempotent.
type DailyMetrics struct {
	UserID               string
	Date                 time.Time
	AcuteLoadAvg         float64
	AcuteTRIMPAvg        float64
	ChronicLoad          float64
	ChronicTRIMP         float64
	LoadRatio            float64
	TRIMPRatio           float64
	NormalizedDivergence float64
	DecayRate            float64
	Method               string
	DataQuality          string
	UpdatedAt            time.Time
}
