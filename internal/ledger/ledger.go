package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

const defaultCapacity = 1000

// Repository persists events beyond the in-memory window. Optional; a nil
// repository keeps the ledger purely in-memory.
type Repository interface {
	Insert(ctx context.Context, event *models.ScalingEvent) error
}

// Ledger is the append-only record of executed scaling events, held in a
// bounded ring buffer that evicts the oldest entry when full. Reads copy
// so they never block appends for long.
type Ledger struct {
	mu       sync.RWMutex
	events   []*models.ScalingEvent
	capacity int
	total    int64
	repo     Repository
}

func New(capacity int, repo Repository) *Ledger {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ledger{
		events:   make([]*models.ScalingEvent, 0, capacity),
		capacity: capacity,
		repo:     repo,
	}
}

// Append records an executed scaling event. Persistence failures are
// logged and do not affect the in-memory record.
func (l *Ledger) Append(event *models.ScalingEvent) {
	l.mu.Lock()
	if len(l.events) == l.capacity {
		l.events = l.events[1:]
	}
	l.events = append(l.events, event)
	l.total++
	l.mu.Unlock()

	if l.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.repo.Insert(ctx, event); err != nil {
			logger.WithService(event.Service).Errorf("Failed to persist scaling event: %v", err)
		}
	}
}

// Recent returns up to limit events, most recent first.
func (l *Ledger) Recent(limit int) []*models.ScalingEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.events)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*models.ScalingEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		copied := *l.events[i]
		out = append(out, &copied)
	}
	return out
}

// Len returns the number of events currently held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Total returns the number of appends since start, including evicted ones.
func (l *Ledger) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// LastFor returns the most recent event for a service, nil if none.
func (l *Ledger) LastFor(service string) *models.ScalingEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Service == service {
			copied := *l.events[i]
			return &copied
		}
	}
	return nil
}
