package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

type ScalingEventRepository struct {
	db *sql.DB
}

func NewScalingEventRepository(db *sql.DB) *ScalingEventRepository {
	return &ScalingEventRepository{db: db}
}

func (r *ScalingEventRepository) Insert(ctx context.Context, event *models.ScalingEvent) error {
	metricsJSON, err := json.Marshal(event.Metrics)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scaling_events
			(id, service, action, instances_before, instances_after, timestamp, reason, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.Service,
		string(event.Action),
		event.InstancesBefore,
		event.InstancesAfter,
		event.Timestamp,
		event.Reason,
		metricsJSON,
	)
	return err
}

func (r *ScalingEventRepository) GetRecent(ctx context.Context, limit int) ([]*models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, service, action, instances_before, instances_after, timestamp, reason, metrics
		FROM scaling_events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *ScalingEventRepository) GetByService(ctx context.Context, service string, from, to time.Time, limit int) ([]*models.ScalingEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, service, action, instances_before, instances_after, timestamp, reason, metrics
		FROM scaling_events
		WHERE service = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, service, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

type ScalingStats struct {
	Service        string    `json:"service"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	ScaleUpCount   int       `json:"scale_up_count"`
	ScaleDownCount int       `json:"scale_down_count"`
}

func (r *ScalingEventRepository) GetStats(ctx context.Context, service string, from, to time.Time) (*ScalingStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE action = 'UP') AS scale_up_count,
			COUNT(*) FILTER (WHERE action = 'DOWN') AS scale_down_count
		FROM scaling_events
		WHERE service = $1 AND timestamp >= $2 AND timestamp <= $3`

	stats := ScalingStats{Service: service, From: from, To: to}
	err := r.db.QueryRowContext(ctx, query, service, from, to).Scan(
		&stats.ScaleUpCount, &stats.ScaleDownCount,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func scanEvents(rows *sql.Rows) ([]*models.ScalingEvent, error) {
	var events []*models.ScalingEvent
	for rows.Next() {
		var (
			e           models.ScalingEvent
			action      string
			metricsJSON []byte
		)
		err := rows.Scan(
			&e.ID, &e.Service, &action,
			&e.InstancesBefore, &e.InstancesAfter,
			&e.Timestamp, &e.Reason, &metricsJSON,
		)
		if err != nil {
			return nil, err
		}
		e.Action = models.ScaleDirection(action)
		if err := json.Unmarshal(metricsJSON, &e.Metrics); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
