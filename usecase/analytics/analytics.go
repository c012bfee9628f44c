package analytics

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

const (
	DefaultCapacity  = 1000
	DefaultRetention = 30 * 24 * time.Hour

	weekWindow  = 7 * 24 * time.Hour
	monthWindow = 30 * 24 * time.Hour
	trendDays   = 7
	labelLayout = "02/01"
)

// Config tunes the aggregator. Zero values fall back to defaults.
type Config struct {
	Capacity  int
	Retention time.Duration
	Location  *time.Location
}

// ViewInput describes one view to record. An empty SubjectID is a page view.
type ViewInput struct {
	SubjectID string
	Path      string
	UserAgent string
}

// Aggregator derives visit counters from the event log. Every operation is
// best-effort: storage failures are logged and never reach the caller.
type Aggregator struct {
	events    repository.EventLog
	clock     clockwork.Clock
	loc       *time.Location
	capacity  int
	retention time.Duration
	logger    *zap.Logger
}

func New(events repository.EventLog, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Aggregator{
		events:    events,
		clock:     clock,
		loc:       cfg.Location,
		capacity:  cfg.Capacity,
		retention: cfg.Retention,
		logger:    logger,
	}
}

// RecordView appends a view event stamped with the current calendar day.
func (a *Aggregator) RecordView(ctx context.Context, in ViewInput) {
	event := domain.NewViewEvent(a.clock.Now(), a.loc, in.SubjectID)
	event.Path = in.Path
	event.UserAgent = in.UserAgent

	if err := a.events.Append(ctx, event, a.capacity); err != nil {
		a.logger.Warn("record view failed",
			zap.String("kind", string(event.Kind)),
			zap.String("subject_id", in.SubjectID),
			zap.Error(err),
		)
	}
}

// ComputeStats recomputes every counter from the full log.
func (a *Aggregator) ComputeStats(ctx context.Context) domain.VisitStats {
	events, err := a.events.List(ctx)
	if err != nil {
		a.logger.Warn("compute stats failed", zap.Error(err))
		return domain.VisitStats{Events: []domain.ViewEvent{}}
	}
	return a.statsFor(events)
}

func (a *Aggregator) statsFor(events []domain.ViewEvent) domain.VisitStats {
	now := a.clock.Now()
	today := now.In(a.loc).Format(domain.DateLayout)
	weekStart := now.Add(-weekWindow)
	monthStart := now.Add(-monthWindow)

	stats := domain.VisitStats{Total: len(events), Events: events}
	days := make(map[string]struct{})
	for _, e := range events {
		if e.Date == today {
			stats.Today++
		}
		if !e.Timestamp.Before(weekStart) {
			stats.ThisWeek++
		}
		if !e.Timestamp.Before(monthStart) {
			stats.ThisMonth++
		}
		days[e.Date] = struct{}{}
	}
	stats.UniqueDays = len(days)
	return stats
}

// BucketLast7Days counts events per calendar day for the seven days ending
// today, oldest first. Events outside the window are ignored.
func (a *Aggregator) BucketLast7Days(events []domain.ViewEvent) []int {
	keys := a.lastDays()
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k.Format(domain.DateLayout)] = i
	}

	buckets := make([]int, trendDays)
	for _, e := range events {
		if i, ok := index[e.Date]; ok {
			buckets[i]++
		}
	}
	return buckets
}

// Last7DayLabels returns the dd/mm labels matching BucketLast7Days.
func (a *Aggregator) Last7DayLabels() []string {
	days := a.lastDays()
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Format(labelLayout)
	}
	return labels
}

// Trend joins the buckets with their day keys and labels.
func (a *Aggregator) Trend(events []domain.ViewEvent) []domain.DayCount {
	days := a.lastDays()
	counts := a.BucketLast7Days(events)
	out := make([]domain.DayCount, len(days))
	for i, d := range days {
		out[i] = domain.DayCount{
			Date:  d.Format(domain.DateLayout),
			Label: d.Format(labelLayout),
			Count: counts[i],
		}
	}
	return out
}

// ViewsForSubject counts the product views recorded for id.
func (a *Aggregator) ViewsForSubject(ctx context.Context, id string) int {
	if id == "" {
		return 0
	}
	events, err := a.events.List(ctx)
	if err != nil {
		a.logger.Warn("views for subject failed", zap.String("subject_id", id), zap.Error(err))
		return 0
	}
	count := 0
	for _, e := range events {
		if e.SubjectID == id {
			count++
		}
	}
	return count
}

// PurgeOlderThan30Days drops events older than the retention window and
// returns how many were removed.
func (a *Aggregator) PurgeOlderThan30Days(ctx context.Context) int {
	cutoff := a.clock.Now().Add(-a.retention)
	removed, err := a.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		a.logger.Warn("retention sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0
	}
	if removed > 0 {
		a.logger.Info("retention sweep", zap.Int("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed
}

// ClearAll empties the event log.
func (a *Aggregator) ClearAll(ctx context.Context) bool {
	if err := a.events.Clear(ctx); err != nil {
		a.logger.Warn("clear analytics failed", zap.Error(err))
		return false
	}
	return true
}

func (a *Aggregator) lastDays() []time.Time {
	now := a.clock.Now().In(a.loc)
	y, m, d := now.Date()
	days := make([]time.Time, trendDays)
	for i := 0; i < trendDays; i++ {
		days[i] = time.Date(y, m, d-(trendDays-1-i), 0, 0, 0, 0, a.loc)
	}
	return days
}
