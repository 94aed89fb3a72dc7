package collector

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/config"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

// PostgresShardSource queries each configured shard for its active
// connection count. One unreachable shard is reported as such and skipped;
// the source only errors when every shard is down.
type PostgresShardSource struct {
	shards map[string]*sql.DB
	order  []string
}

func NewPostgresShardSource(shards []config.ShardConfig) (*PostgresShardSource, error) {
	s := &PostgresShardSource{shards: make(map[string]*sql.DB, len(shards))}

	for _, shard := range shards {
		db, err := sql.Open("postgres", shard.DSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("shard %s: %w", shard.ID, err)
		}
		db.SetMaxOpenConns(2)
		db.SetMaxIdleConns(1)
		s.shards[shard.ID] = db
		s.order = append(s.order, shard.ID)
	}

	return s, nil
}

func (s *PostgresShardSource) CheckHealth(ctx context.Context) (map[string]models.ShardHealth, error) {
	if len(s.shards) == 0 {
		return map[string]models.ShardHealth{}, nil
	}

	report := make(map[string]models.ShardHealth, len(s.shards))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, id := range s.order {
		wg.Add(1)
		go func(shardID string, db *sql.DB) {
			defer wg.Done()

			health := models.ShardHealth{ShardID: shardID}

			var count int
			row := db.QueryRowContext(ctx,
				`SELECT count(*) FROM pg_stat_activity WHERE state = 'active'`)
			if err := row.Scan(&count); err != nil {
				logger.WithSource(SourceStorage).Warnf("Shard %s unreachable: %v", shardID, err)
			} else {
				health.Reachable = true
				health.ActiveConnections = count
			}

			mu.Lock()
			report[shardID] = health
			mu.Unlock()
		}(id, s.shards[id])
	}

	wg.Wait()

	reachable := 0
	for _, h := range report {
		if h.Reachable {
			reachable++
		}
	}
	if reachable == 0 {
		return nil, fmt.Errorf("%w: all %d shards unreachable", ErrCollectionFailed, len(s.shards))
	}

	return report, nil
}

func (s *PostgresShardSource) Close() error {
	var firstErr error
	for _, db := range s.shards {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
