package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/fleet-autoscaler/pkg/models"
)

func testEvent(service, reason string) *models.ScalingEvent {
	return models.NewScalingEvent(service, models.ScaleUp, 2, 3, reason, *models.NewSystemMetrics())
}

type recordingRepo struct {
	mu       sync.Mutex
	inserted []*models.ScalingEvent
	err      error
}

func (r *recordingRepo) Insert(ctx context.Context, event *models.ScalingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, event)
	return nil
}

func TestLedger_RecentMostRecentFirst(t *testing.T) {
	l := New(10, nil)

	l.Append(testEvent("api", "first"))
	l.Append(testEvent("api", "second"))
	l.Append(testEvent("api", "third"))

	recent := l.Recent(2)
	assert.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Reason)
	assert.Equal(t, "second", recent[1].Reason)
}

func TestLedger_RecentLimitLargerThanLen(t *testing.T) {
	l := New(10, nil)
	l.Append(testEvent("api", "only"))

	recent := l.Recent(100)
	assert.Len(t, recent, 1)
}

func TestLedger_EvictsOldestAtCapacity(t *testing.T) {
	l := New(3, nil)

	for i := 0; i < 5; i++ {
		l.Append(testEvent("api", fmt.Sprintf("event-%d", i)))
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, int64(5), l.Total())

	recent := l.Recent(0)
	assert.Len(t, recent, 3)
	assert.Equal(t, "event-4", recent[0].Reason)
	assert.Equal(t, "event-2", recent[2].Reason)
}

func TestLedger_RecentReturnsCopies(t *testing.T) {
	l := New(10, nil)
	l.Append(testEvent("api", "original"))

	recent := l.Recent(1)
	recent[0].Reason = "mutated"

	assert.Equal(t, "original", l.Recent(1)[0].Reason)
}

func TestLedger_LastFor(t *testing.T) {
	l := New(10, nil)

	l.Append(testEvent("api", "api-old"))
	l.Append(testEvent("worker", "worker-only"))
	l.Append(testEvent("api", "api-new"))

	last := l.LastFor("api")
	assert.NotNil(t, last)
	assert.Equal(t, "api-new", last.Reason)

	assert.Nil(t, l.LastFor("edge"))
}

func TestLedger_PersistsThroughRepository(t *testing.T) {
	repo := &recordingRepo{}
	l := New(10, repo)

	event := testEvent("api", "persisted")
	l.Append(event)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.inserted, 1)
	assert.Equal(t, event.ID, repo.inserted[0].ID)
}

func TestLedger_RepositoryFailureKeepsInMemoryRecord(t *testing.T) {
	repo := &recordingRepo{err: errors.New("db down")}
	l := New(10, repo)

	l.Append(testEvent("api", "unpersisted"))

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "unpersisted", l.Recent(1)[0].Reason)
}
