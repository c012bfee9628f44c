package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

// State is the lifecycle position of a Synchronizer.
type State string

const (
	StateInitial   State = "initial"
	StateLoading   State = "loading"
	StateLive      State = "live"
	StateFiltering State = "filtering"
	StateError     State = "error"
	StateClosed    State = "closed"
)

var (
	errLoad        = domain.NewError(domain.ErrCodeInternal, "could not load products")
	errFeedStopped = domain.NewError(domain.ErrCodeInternal, "live updates stopped")
	errNotInitial  = errors.New("synchronizer already started")
	errClosed      = errors.New("synchronizer closed")
)

// UpdateFunc receives every new view, or the error that interrupted updates.
// Calls are serialized.
type UpdateFunc func(view []domain.Product, err error)

type Option func(*Synchronizer)

func WithOnUpdate(fn UpdateFunc) Option {
	return func(s *Synchronizer) { s.onUpdate = fn }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Synchronizer keeps a filtered view of the catalog in step with the store.
// Change notifications replace the whole mirror and the current filter is
// re-applied in memory; explicit filter changes go back to the store.
type Synchronizer struct {
	products repository.ProductRepository
	feed     repository.ChangeFeed
	logger   *zap.Logger
	onUpdate UpdateFunc

	mu      sync.RWMutex
	state   State
	filter  domain.ProductFilter
	mirror  []domain.Product
	view    []domain.Product
	err     error
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	feeding bool

	notifyMu sync.Mutex
}

func NewSynchronizer(products repository.ProductRepository, feed repository.ChangeFeed, filter domain.ProductFilter, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		products: products,
		feed:     feed,
		logger:   zap.NewNop(),
		state:    StateInitial,
		filter:   filter.Normalize(),
		view:     []domain.Product{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the initial fetch and subscribes to the change feed. The
// subscription lives until ctx ends or Close is called. A failed start is
// not retried; a later successful ApplyFilter recovers the synchronizer.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateInitial {
		s.mu.Unlock()
		return errNotInitial
	}
	s.state = StateLoading
	s.runCtx = ctx
	filter := s.filter
	s.mu.Unlock()

	result, err := s.products.List(ctx, filter)
	if err != nil {
		s.logger.Error("catalog load failed", zap.Error(err))
		return s.fail(wrapStoreError(err, errLoad), true)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return errClosed
	}
	s.mirror = result
	s.view = copyProducts(result)
	view := copyProducts(s.view)
	s.mu.Unlock()
	s.notify(view, nil)

	if err := s.subscribe(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if s.state == StateLoading {
		s.state = StateLive
	}
	s.mu.Unlock()
	return nil
}

// ApplyFilter stores the filter and replaces the view with the store's
// answer to it. The mirror is left as the feed last delivered it. A
// successful query clears any earlier failure, returns the synchronizer to
// live and resubscribes when no feed consumer is running.
func (s *Synchronizer) ApplyFilter(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter = filter.Normalize()

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil, errClosed
	}
	prev := s.state
	if prev == StateFiltering || prev == StateLoading {
		prev = StateLive
	}
	s.filter = filter
	s.state = StateFiltering
	s.mu.Unlock()

	result, err := s.products.List(ctx, filter)

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil, errClosed
	}
	if err != nil {
		s.state = prev
		s.mu.Unlock()
		s.logger.Warn("catalog filter query failed", zap.Error(err))
		return nil, wrapStoreError(err, errLoad)
	}
	started := s.runCtx != nil
	if started {
		s.state = StateLive
		s.err = nil
	} else {
		s.state = prev
	}
	s.view = result
	view := copyProducts(result)
	resubscribe := started && s.runCtx.Err() == nil && !s.consuming()
	runCtx := s.runCtx
	s.mu.Unlock()

	s.notify(view, nil)
	if resubscribe {
		if err := s.subscribe(runCtx); err != nil && !errors.Is(err, errClosed) {
			return copyProducts(view), err
		}
	}
	return copyProducts(view), nil
}

// subscribe attaches a consumer to the change feed. Any finished consumer is
// replaced.
func (s *Synchronizer) subscribe(ctx context.Context) error {
	if s.feed == nil {
		return nil
	}
	feedCtx, cancel := context.WithCancel(ctx)
	updates, err := s.feed.Subscribe(feedCtx)
	if err != nil {
		cancel()
		s.logger.Error("catalog subscription failed", zap.Error(err))
		return s.fail(domain.WrapError(domain.ErrCodeInternal, errFeedStopped.Message, err), false)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		cancel()
		return errClosed
	}
	if s.consuming() {
		s.mu.Unlock()
		cancel()
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.done = done
	s.feeding = true
	s.mu.Unlock()

	go s.consume(feedCtx, updates, done)
	return nil
}

// consuming reports whether a feed consumer is still reading. Callers hold mu.
func (s *Synchronizer) consuming() bool {
	return s.feeding
}

// View returns a copy of the filtered, sorted product list.
func (s *Synchronizer) View() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProducts(s.view)
}

// Mirror returns a copy of the last full snapshot.
func (s *Synchronizer) Mirror() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProducts(s.mirror)
}

func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Synchronizer) Filter() domain.ProductFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Err returns the last load or feed failure.
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close tears the subscription down and waits for the consumer to exit.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Synchronizer) consume(ctx context.Context, updates <-chan domain.CatalogSnapshot, done chan struct{}) {
	defer close(done)
	for snap := range updates {
		if snap.Err != nil {
			s.logger.Warn("catalog feed error", zap.Error(snap.Err))
			_ = s.fail(snap.Err, false)
			continue
		}
		s.apply(snap.Products)
	}

	s.mu.Lock()
	if s.done == done {
		s.feeding = false
	}
	s.mu.Unlock()

	if ctx.Err() == nil && s.State() != StateClosed && s.Err() == nil {
		s.logger.Warn("catalog feed closed")
		_ = s.fail(errFeedStopped, false)
	}
}

func (s *Synchronizer) apply(products []domain.Product) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.mirror = copyProducts(products)
	s.view = domain.ApplyFilter(s.mirror, s.filter)
	view := copyProducts(s.view)
	s.mu.Unlock()

	s.notify(view, nil)
}

// fail records err and moves to the error state. The current view is kept
// unless clearView is set.
func (s *Synchronizer) fail(err error, clearView bool) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return errClosed
	}
	s.state = StateError
	s.err = err
	if clearView {
		s.view = []domain.Product{}
	}
	view := copyProducts(s.view)
	s.mu.Unlock()

	s.notify(view, err)
	return err
}

func (s *Synchronizer) notify(view []domain.Product, err error) {
	if s.onUpdate == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.onUpdate(view, err)
}

func wrapStoreError(err error, fallback *domain.Error) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	return domain.WrapError(fallback.Code, fallback.Message, err)
}

func copyProducts(src []domain.Product) []domain.Product {
	out := make([]domain.Product, len(src))
	copy(out, src)
	return out
}
