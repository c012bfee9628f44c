package dashboard

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
)

// Catalog exposes the live product mirror. A failed mirror is recovered by
// re-applying its filter.
type Catalog interface {
	Mirror() []domain.Product
	Err() error
	Filter() domain.ProductFilter
	ApplyFilter(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
}

// Visits is the part of the visit aggregator the dashboard reads.
type Visits interface {
	ComputeStats(ctx context.Context) domain.VisitStats
	Trend(events []domain.ViewEvent) []domain.DayCount
}

// Service builds the admin dashboard. Visit counters are cached between
// refresh ticks; catalog counters are always read from the live mirror.
type Service struct {
	catalog Catalog
	visits  Visits
	clock   clockwork.Clock
	logger  *zap.Logger

	mu        sync.RWMutex
	stats     domain.VisitStats
	trend     []domain.DayCount
	refreshed bool
}

func New(catalog Catalog, visits Visits, clock clockwork.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		catalog: catalog,
		visits:  visits,
		clock:   clock,
		logger:  logger,
	}
}

// Summary returns catalog counters, revenue from sold products and the
// cached visit analytics.
func (s *Service) Summary(ctx context.Context) domain.DashboardSummary {
	s.mu.RLock()
	refreshed := s.refreshed
	s.mu.RUnlock()
	if !refreshed {
		s.RefreshVisits(ctx)
	}

	summary := domain.DashboardSummary{GeneratedAt: s.clock.Now()}
	for _, p := range s.products(ctx) {
		summary.TotalProducts++
		switch p.Status {
		case domain.StatusSold:
			summary.Sold++
			summary.Revenue += p.Price
		case domain.StatusAvailable:
			summary.Available++
		case domain.StatusReserved:
			summary.Reserved++
		}
	}

	s.mu.RLock()
	summary.Visits = s.stats
	summary.Trend = append([]domain.DayCount(nil), s.trend...)
	s.mu.RUnlock()
	return summary
}

// products returns the mirror, or a fresh unfiltered load when the mirror
// has failed.
func (s *Service) products(ctx context.Context) []domain.Product {
	if s.catalog.Err() == nil {
		return s.catalog.Mirror()
	}
	recovered, err := s.catalog.ApplyFilter(ctx, s.catalog.Filter())
	if err != nil {
		s.logger.Warn("dashboard catalog unavailable", zap.Error(err))
		return s.catalog.Mirror()
	}
	return recovered
}

// RefreshVisits recomputes the cached visit counters and trend.
func (s *Service) RefreshVisits(ctx context.Context) domain.VisitStats {
	stats := s.visits.ComputeStats(ctx)
	trend := s.visits.Trend(stats.Events)

	s.mu.Lock()
	s.stats = stats
	s.trend = trend
	s.refreshed = true
	s.mu.Unlock()

	s.logger.Debug("dashboard visits refreshed", zap.Int("total", stats.Total), zap.Int("today", stats.Today))
	return stats
}
