// Package events defines the event payloads this service consumes and emits.
package events

import "time"

// Topics and event types on the wire.
const (
	TopicActivityEvents      = "activity_events"
	TopicTrainingLoadUpdated = "training_load_updated"

	TypeActivityCreated     = "activity.created"
	TypeTrainingLoadUpdated = "training_load.updated"
)

// ActivityCreated is the upstream message emitted when a new activity is
// accepted; it triggers a recompute of that user's training-load metrics.
type ActivityCreated struct {
	ActivityID   string    `json:"activity_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	StartedAt    time.Time `json:"started_at"`
	Source       string    `json:"source"`
}

// TrainingLoadUpdated is emitted after daily metrics are upserted, so
// downstream coaching and alerting flows can react to fresh ratios.
type TrainingLoadUpdated struct {
	TenantID             string    `json:"tenant_id"`
	UserID               string    `json:"user_id"`
	Date                 string    `json:"date"`
	LoadRatio            float64   `json:"acute_chronic_ratio"`
	TRIMPRatio           float64   `json:"trimp_acute_chronic_ratio"`
	NormalizedDivergence float64   `json:"normalized_divergence"`
	DataQuality          string    `json:"data_quality,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}
