package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"activity_events"}, cfg.ConsumerTopics)
	require.Equal(t, 0.1, cfg.DecayRate)
	require.Equal(t, 28, cfg.ChronicPeriodDays)
	require.True(t, cfg.UseCaching)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")
	t.Setenv("ACWR_DECAY_RATE", "0.05")
	t.Setenv("ACWR_CHRONIC_PERIOD_DAYS", "42")
	t.Setenv("ACWR_USE_CACHING", "false")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	t.Setenv("BULK_CONCURRENCY", "8")

	cfg := Load()

	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 0.05, cfg.DecayRate)
	require.Equal(t, 42, cfg.ChronicPeriodDays)
	require.False(t, cfg.UseCaching)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, 8, cfg.BulkConcurrency)
}

func TestLoadIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("ACWR_DECAY_RATE", "not-a-number")
	t.Setenv("OUTBOX_BATCH_SIZE", "lots")

	cfg := Load()

	require.Equal(t, 0.1, cfg.DecayRate)
	require.Equal(t, 25, cfg.OutboxBatchSize)
}
