package background

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coffee-backend/infra"
	"coffee-backend/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	loc      *time.Location
	now      time.Time
	counts   []model.UserCount
	err      error
	from, to time.Time
}

func (f *fakeCounter) CountPerUserBetween(ctx context.Context, from, to time.Time) ([]model.UserCount, error) {
	f.from, f.to = from, to
	return f.counts, f.err
}

func (f *fakeCounter) Location() *time.Location { return f.loc }
func (f *fakeCounter) Now() time.Time           { return f.now }

type capturePublisher struct {
	mu     sync.Mutex
	events []*infra.CupEvent
}

func (p *capturePublisher) Publish(event *infra.CupEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func TestDailySummary_Run(t *testing.T) {
	taipei := time.FixedZone("CST", 8*3600)
	counter := &fakeCounter{
		loc: taipei,
		now: time.Date(2024, 3, 10, 0, 5, 0, 0, taipei),
		counts: []model.UserCount{
			{Username: "alice", Count: 3},
			{Username: "bob", Count: 1},
		},
	}
	publisher := &capturePublisher{}
	ds := NewDailySummary(zerolog.Nop(), counter, publisher, "")

	event, err := ds.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, infra.CupEventDailySummary, event.Type)
	assert.Equal(t, map[string]int64{"alice": 3, "bob": 1}, event.Counts)
	assert.True(t, counter.from.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, taipei)))
	assert.True(t, counter.to.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, taipei)))

	require.Len(t, publisher.events, 1)
	assert.Same(t, event, publisher.events[0])
}

func TestDailySummary_RunError(t *testing.T) {
	counter := &fakeCounter{loc: time.UTC, now: time.Now(), err: errors.New("db down")}
	publisher := &capturePublisher{}
	ds := NewDailySummary(zerolog.Nop(), counter, publisher, "")

	_, err := ds.Run(context.Background())

	assert.Error(t, err)
	assert.Empty(t, publisher.events)
}

func TestDailySummary_InvalidSchedule(t *testing.T) {
	counter := &fakeCounter{loc: time.UTC}
	ds := NewDailySummary(zerolog.Nop(), counter, nil, "not a cron")

	assert.Error(t, ds.Start())
}

func TestDailySummary_StartStop(t *testing.T) {
	counter := &fakeCounter{loc: time.UTC}
	ds := NewDailySummary(zerolog.Nop(), counter, nil, DefaultDailySummarySpec)

	require.NoError(t, ds.Start())
	ds.Stop()
}
