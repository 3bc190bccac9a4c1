// Package postgres provides pgx-backed persistence for activity history and
// computed training-load metrics.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/trainingload/internal/domain"
	"example.com/trainingload/internal/events"
	"example.com/trainingload/internal/observability"
)

// Repository reads activity rows and writes daily metrics plus outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ActivityWindow returns activity rows for the user in [from, to], ordered
// ascending by date. Rest days simply have no row; the query never fabricates
// zero rows.
func (r *Repository) ActivityWindow(ctx context.Context, tenantID, userID string, from, to time.Time) ([]domain.ActivityRecord, error) {
	const query = `SELECT activity_id, user_id, activity_date, load_miles, trimp
        FROM activities
        WHERE tenant_id=$1 AND user_id=$2 AND activity_date BETWEEN $3 AND $4
        ORDER BY activity_date ASC`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, tenantID, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ActivityRecord
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.ActivityID, &rec.UserID, &rec.Date, &rec.LoadMiles, &rec.TRIMP); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

// UpsertDailyMetrics writes the rows keyed by (tenant, user, date) and
// records a training_load.updated outbox event per row inside the same
// transaction, so a partial failure never leaves metrics without their
// event or vice versa.
func (r *Repository) UpsertDailyMetrics(ctx context.Context, tenantID string, rows []domain.DailyMetrics) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	const upsert = `INSERT INTO training_load_metrics
        (tenant_id, user_id, metric_date, acute_load_avg, acute_trimp_avg, chronic_load, chronic_trimp,
         acute_chronic_ratio, trimp_acute_chronic_ratio, normalized_divergence, decay_rate, calculation_method, data_quality, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (tenant_id, user_id, metric_date) DO UPDATE SET
            acute_load_avg=EXCLUDED.acute_load_avg,
            acute_trimp_avg=EXCLUDED.acute_trimp_avg,
            chronic_load=EXCLUDED.chronic_load,
            chronic_trimp=EXCLUDED.chronic_trimp,
            acute_chronic_ratio=EXCLUDED.acute_chronic_ratio,
            trimp_acute_chronic_ratio=EXCLUDED.trimp_acute_chronic_ratio,
            normalized_divergence=EXCLUDED.normalized_divergence,
            decay_rate=EXCLUDED.decay_rate,
            calculation_method=EXCLUDED.calculation_method,
            data_quality=EXCLUDED.data_quality,
            updated_at=EXCLUDED.updated_at`

	var latest time.Time
	for _, row := range rows {
		_, err = tx.Exec(ctx, upsert,
			tenantID,
			row.UserID,
			row.Date,
			row.AcuteLoadAvg,
			row.AcuteTRIMPAvg,
			row.ChronicLoad,
			row.ChronicTRIMP,
			row.LoadRatio,
			row.TRIMPRatio,
			row.NormalizedDivergence,
			row.DecayRate,
			row.Method,
			nullIfEmpty(row.DataQuality),
			row.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if err = r.insertOutbox(ctx, tx, tenantID, row); err != nil {
			return err
		}
		if row.UpdatedAt.After(latest) {
			latest = row.UpdatedAt
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordMetricsPersisted(latest)
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, tenantID string, row domain.DailyMetrics) error {
	date := row.Date.Format("2006-01-02")
	payload, err := json.Marshal(events.TrainingLoadUpdated{
		TenantID:             tenantID,
		UserID:               row.UserID,
		Date:                 date,
		LoadRatio:            row.LoadRatio,
		TRIMPRatio:           row.TRIMPRatio,
		NormalizedDivergence: row.NormalizedDivergence,
		DataQuality:          row.DataQuality,
		UpdatedAt:            row.UpdatedAt,
	})
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO UPDATE SET payload=EXCLUDED.payload, published_at=NULL`

	_, err = tx.Exec(ctx, stmt,
		tenantID,
		"training_load",
		fmt.Sprintf("%s:%s", row.UserID, date),
		events.TypeTrainingLoadUpdated,
		events.TopicTrainingLoadUpdated,
		fmt.Sprintf("%s:%s", tenantID, row.UserID),
		payload,
		fmt.Sprintf("%s:%s:%s", tenantID, row.UserID, date),
	)
	return err
}

// DailyMetricsRange returns stored metrics rows for [from, to] ascending.
func (r *Repository) DailyMetricsRange(ctx context.Context, tenantID, userID string, from, to time.Time) ([]domain.DailyMetrics, error) {
	const query = `SELECT user_id, metric_date, acute_load_avg, acute_trimp_avg, chronic_load, chronic_trimp,
            acute_chronic_ratio, trimp_acute_chronic_ratio, normalized_divergence, decay_rate, calculation_method, COALESCE(data_quality, ''), updated_at
        FROM training_load_metrics
        WHERE tenant_id=$1 AND user_id=$2 AND metric_date BETWEEN $3 AND $4
        ORDER BY metric_date ASC`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, tenantID, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyMetrics
	for rows.Next() {
		var m domain.DailyMetrics
		if err := rows.Scan(&m.UserID, &m.Date, &m.AcuteLoadAvg, &m.AcuteTRIMPAvg, &m.ChronicLoad, &m.ChronicTRIMP,
			&m.LoadRatio, &m.TRIMPRatio, &m.NormalizedDivergence, &m.DecayRate, &m.Method, &m.DataQuality, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// UsersWithActivitySince lists users with at least one activity on or after
// the given date; the bulk recompute job partitions its work by this list.
func (r *Repository) UsersWithActivitySince(ctx context.Context, tenantID string, since time.Time) ([]string, error) {
	const query = `SELECT DISTINCT user_id FROM activities WHERE tenant_id=$1 AND activity_date >= $2 ORDER BY user_id`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return users, nil
}

// InsertActivity stores one raw activity row; used by ingestion tooling and
// the integration tests.
func (r *Repository) InsertActivity(ctx context.Context, tenantID string, rec domain.ActivityRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	const stmt = `INSERT INTO activities (activity_id, tenant_id, user_id, activity_date, load_miles, trimp)
        VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err = tx.Exec(ctx, stmt, rec.ActivityID, tenantID, rec.UserID, rec.Date, rec.LoadMiles, rec.TRIMP); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
