package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"example.com/trainingload/internal/acwr"
	"example.com/trainingload/internal/domain"
	"example.com/trainingload/internal/events"
)

// RecomputeHandler reacts to activity events by recomputing the affected
// user's training-load metrics for the day the activity occurred.
type RecomputeHandler struct {
	service *domain.Service
	logger  log.FieldLogger
}

// NewRecomputeHandler wires a handler to the training-load service.
func NewRecomputeHandler(service *domain.Service) *RecomputeHandler {
	return &RecomputeHandler{
		service: service,
		logger:  log.StandardLogger(),
	}
}

// Handle processes a single decoded Kafka message. Event types other than
// activity.created are ignored.
func (h *RecomputeHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeActivityCreated {
		return nil
	}

	var event events.ActivityCreated
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal activity event: %w", err)
	}
	if event.TenantID == "" || event.UserID == "" {
		return fmt.Errorf("activity event missing tenant or user (tenant=%q, user=%q)", event.TenantID, event.UserID)
	}
	if event.StartedAt.IsZero() {
		return fmt.Errorf("activity event %s has no started_at", event.ActivityID)
	}

	day := acwr.Day(event.StartedAt)
	result, err := h.service.RecomputeRange(ctx, event.TenantID, event.UserID, day, day)
	if err != nil {
		return fmt.Errorf("recompute user %s for %s: %w", event.UserID, day.Format("2006-01-02"), err)
	}

	h.logger.Printf("recomputed user %s for %s (computed=%d, skipped=%d)",
		event.UserID, day.Format("2006-01-02"), result.Computed, result.Skipped)
	return nil
}
