package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fastygo/tikshop/domain"
)

type memLog struct {
	mu     sync.Mutex
	events []domain.ViewEvent
	err    error
}

func (m *memLog) Append(_ context.Context, event domain.ViewEvent, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	if over := len(m.events) - capacity; over > 0 {
		m.events = append([]domain.ViewEvent(nil), m.events[over:]...)
	}
	return nil
}

func (m *memLog) List(context.Context) ([]domain.ViewEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.ViewEvent(nil), m.events...), nil
}

func (m *memLog) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	kept := m.events[:0]
	removed := 0
	for _, e := range m.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return removed, nil
}

func (m *memLog) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = nil
	return nil
}

var baseNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestAggregator(log *memLog, capacity int) (*Aggregator, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(baseNow)
	agg := New(log, Config{Capacity: capacity, Location: time.UTC}, clock, nil)
	return agg, clock
}

func event(at time.Time, subject string) domain.ViewEvent {
	return domain.NewViewEvent(at, time.UTC, subject)
}

func TestRecordView_TotalCappedAtCapacity(t *testing.T) {
	tests := []struct {
		name     string
		calls    int
		capacity int
		want     int
	}{
		{name: "below capacity", calls: 7, capacity: 10, want: 7},
		{name: "exactly capacity", calls: 10, capacity: 10, want: 10},
		{name: "above capacity", calls: 25, capacity: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, _ := newTestAggregator(&memLog{}, tt.capacity)
			ctx := context.Background()
			for i := 0; i < tt.calls; i++ {
				agg.RecordView(ctx, ViewInput{})
			}
			if got := agg.ComputeStats(ctx).Total; got != tt.want {
				t.Errorf("ComputeStats().Total = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecordView_Kinds(t *testing.T) {
	log := &memLog{}
	agg, _ := newTestAggregator(log, 10)
	ctx := context.Background()

	agg.RecordView(ctx, ViewInput{Path: "/"})
	agg.RecordView(ctx, ViewInput{SubjectID: "p1", Path: "/products/p1"})

	if log.events[0].Kind != domain.KindPageView {
		t.Errorf("first event kind = %q, want %q", log.events[0].Kind, domain.KindPageView)
	}
	if log.events[1].Kind != domain.KindProductView {
		t.Errorf("second event kind = %q, want %q", log.events[1].Kind, domain.KindProductView)
	}
	if log.events[1].Date != "2024-03-15" {
		t.Errorf("event date = %q, want 2024-03-15", log.events[1].Date)
	}
}

func TestRecordView_SwallowsStorageErrors(t *testing.T) {
	log := &memLog{err: errors.New("disk full")}
	agg, _ := newTestAggregator(log, 10)
	ctx := context.Background()

	agg.RecordView(ctx, ViewInput{SubjectID: "p1"})

	stats := agg.ComputeStats(ctx)
	if stats.Total != 0 || stats.Today != 0 {
		t.Errorf("ComputeStats() = %+v, want zero counters", stats)
	}
	if got := agg.ViewsForSubject(ctx, "p1"); got != 0 {
		t.Errorf("ViewsForSubject() = %d, want 0", got)
	}
	if agg.ClearAll(ctx) {
		t.Error("ClearAll() = true, want false on failure")
	}
}

func TestBucketLast7Days_Empty(t *testing.T) {
	agg, _ := newTestAggregator(&memLog{}, 10)

	got := agg.BucketLast7Days(nil)
	if len(got) != 7 {
		t.Fatalf("len(BucketLast7Days(nil)) = %d, want 7", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("bucket[%d] = %d, want 0", i, v)
		}
	}

	labels := agg.Last7DayLabels()
	if labels[0] != "09/03" || labels[6] != "15/03" {
		t.Errorf("Last7DayLabels() = %v, want 09/03 .. 15/03", labels)
	}
}

func TestBucketLast7Days_Placement(t *testing.T) {
	agg, _ := newTestAggregator(&memLog{}, 10)

	events := []domain.ViewEvent{
		event(baseNow, ""),
		event(baseNow.Add(-time.Hour), "p1"),
		event(baseNow.AddDate(0, 0, -6), ""),
		event(baseNow.AddDate(0, 0, -7), ""),
		event(baseNow.AddDate(0, 0, -20), ""),
	}

	got := agg.BucketLast7Days(events)
	want := []int{1, 0, 0, 0, 0, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BucketLast7Days() = %v, want %v", got, want)
			break
		}
	}

	trend := agg.Trend(events)
	if trend[6].Date != "2024-03-15" || trend[6].Count != 2 || trend[6].Label != "15/03" {
		t.Errorf("Trend()[6] = %+v", trend[6])
	}
}

func TestComputeStats_Windows(t *testing.T) {
	log := &memLog{events: []domain.ViewEvent{
		event(baseNow.Add(-time.Minute), "p1"),
		event(baseNow.Add(-2*time.Hour), ""),
		event(baseNow.AddDate(0, 0, -3), "p1"),
		event(baseNow.AddDate(0, 0, -10), ""),
		event(baseNow.AddDate(0, 0, -45), "p2"),
	}}
	agg, _ := newTestAggregator(log, 10)

	stats := agg.ComputeStats(context.Background())

	if stats.Today != 2 {
		t.Errorf("Today = %d, want 2", stats.Today)
	}
	if stats.ThisWeek != 3 {
		t.Errorf("ThisWeek = %d, want 3", stats.ThisWeek)
	}
	if stats.ThisMonth != 4 {
		t.Errorf("ThisMonth = %d, want 4", stats.ThisMonth)
	}
	if stats.Total != 5 {
		t.Errorf("Total = %d, want 5", stats.Total)
	}
	if stats.UniqueDays != 4 {
		t.Errorf("UniqueDays = %d, want 4", stats.UniqueDays)
	}
	if got := agg.ViewsForSubject(context.Background(), "p1"); got != 2 {
		t.Errorf("ViewsForSubject(p1) = %d, want 2", got)
	}
}

func TestComputeStats_OldEventsOnlyCountTowardTotal(t *testing.T) {
	log := &memLog{events: []domain.ViewEvent{
		event(baseNow.AddDate(0, 0, -8), ""),
		event(baseNow.AddDate(0, 0, -40), ""),
	}}
	agg, _ := newTestAggregator(log, 10)

	stats := agg.ComputeStats(context.Background())
	if stats.Today != 0 || stats.ThisWeek != 0 {
		t.Errorf("Today/ThisWeek = %d/%d, want 0/0", stats.Today, stats.ThisWeek)
	}
	if stats.ThisMonth != 1 || stats.Total != 2 {
		t.Errorf("ThisMonth/Total = %d/%d, want 1/2", stats.ThisMonth, stats.Total)
	}
	for i, v := range agg.BucketLast7Days(stats.Events) {
		if v != 0 {
			t.Errorf("bucket[%d] = %d, want 0", i, v)
		}
	}
}

func TestComputeStats_SlidingWindowFollowsClock(t *testing.T) {
	log := &memLog{}
	agg, clock := newTestAggregator(log, 10)
	ctx := context.Background()

	agg.RecordView(ctx, ViewInput{})
	clock.Advance(8 * 24 * time.Hour)

	stats := agg.ComputeStats(ctx)
	if stats.Today != 0 || stats.ThisWeek != 0 || stats.ThisMonth != 1 {
		t.Errorf("ComputeStats() = %+v, want week 0, month 1", stats)
	}
}

func TestPurgeOlderThan30Days(t *testing.T) {
	log := &memLog{events: []domain.ViewEvent{
		event(baseNow.AddDate(0, 0, -31), ""),
		event(baseNow.AddDate(0, 0, -29), ""),
		event(baseNow, ""),
	}}
	agg, _ := newTestAggregator(log, 10)
	ctx := context.Background()

	if removed := agg.PurgeOlderThan30Days(ctx); removed != 1 {
		t.Errorf("PurgeOlderThan30Days() = %d, want 1", removed)
	}
	if got := agg.ComputeStats(ctx).Total; got != 2 {
		t.Errorf("Total after purge = %d, want 2", got)
	}
	if !agg.ClearAll(ctx) {
		t.Fatal("ClearAll() = false, want true")
	}
	if got := agg.ComputeStats(ctx).Total; got != 0 {
		t.Errorf("Total after clear = %d, want 0", got)
	}
}
