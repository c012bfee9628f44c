package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	postgresProbeTimeout = 3 * time.Second
	redisProbeTimeout    = 2 * time.Second
)

// EventLogSizer reports how many view events are held locally.
type EventLogSizer interface {
	Size() (int, error)
}

// Monitor probes the catalog store, the session store and the local event
// log on a fixed interval and keeps the last result for the health endpoint.
// Dependency transitions are logged once, not on every probe.
type Monitor struct {
	pg     *pgxpool.Pool
	redis  *redislib.Client
	events EventLogSizer

	mu       sync.RWMutex
	status   Status
	probed   bool
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(pg *pgxpool.Pool, redis *redislib.Client, events EventLogSizer, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		events:   events,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Refresh runs one round of probes synchronously.
func (m *Monitor) Refresh() {
	m.probe(context.Background())
}

// IsOnline reports whether both remote stores answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.PostgreSQL && m.status.Redis
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-m.stopCh
		cancel()
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	var next Status
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		next.PostgreSQL = m.pingPostgres(gctx)
		return nil
	})
	g.Go(func() error {
		next.Redis = m.pingRedis(gctx)
		return nil
	})
	g.Go(func() error {
		next.EventLog, next.Events = m.countEvents()
		return nil
	})
	_ = g.Wait()
	next.LastCheck = time.Now()

	m.mu.Lock()
	prev, probed := m.status, m.probed
	m.status = next
	m.probed = true
	m.mu.Unlock()

	m.logTransition("postgresql", probed, prev.PostgreSQL, next.PostgreSQL)
	m.logTransition("redis", probed, prev.Redis, next.Redis)
	m.logTransition("event_log", probed, prev.EventLog, next.EventLog)
}

func (m *Monitor) logTransition(name string, probed, was, is bool) {
	switch {
	case !is && (was || !probed):
		m.logger.Warn("dependency unavailable", zap.String("dependency", name))
	case is && probed && !was:
		m.logger.Info("dependency recovered", zap.String("dependency", name))
	}
}

func (m *Monitor) pingPostgres(ctx context.Context) bool {
	if m.pg == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, postgresProbeTimeout)
	defer cancel()
	return m.pg.Ping(ctx) == nil
}

func (m *Monitor) pingRedis(ctx context.Context) bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisProbeTimeout)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) countEvents() (bool, int) {
	if m.events == nil {
		return false, 0
	}
	size, err := m.events.Size()
	if err != nil {
		m.logger.Debug("event log size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
