package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

// ErrClosed is returned by Subscribe once the hub stopped.
var ErrClosed = errors.New("change feed closed")

const defaultBuffer = 16

// Listener produces full collection snapshots, one call to deliver per change,
// until ctx ends or the source fails.
type Listener interface {
	Listen(ctx context.Context, deliver func([]domain.Product)) error
}

// Hub runs a single listener and fans its snapshots out to subscribers.
// Snapshots are shared between subscribers and must be treated as read-only.
type Hub struct {
	listener Listener
	buffer   int
	logger   *zap.Logger

	mu     sync.Mutex
	subs   map[uint64]chan domain.CatalogSnapshot
	nextID uint64
	latest *domain.CatalogSnapshot
	closed bool
}

var _ repository.ChangeFeed = (*Hub)(nil)

func NewHub(listener Listener, buffer int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		listener: listener,
		buffer:   buffer,
		logger:   logger,
		subs:     make(map[uint64]chan domain.CatalogSnapshot),
	}
}

// Run blocks until ctx ends or the listener fails. A listener failure is
// delivered to every subscriber as an error snapshot. All subscriber channels
// are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	err := h.listener.Listen(ctx, func(products []domain.Product) {
		h.publish(domain.CatalogSnapshot{Products: products})
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Error("change feed listener stopped", zap.Error(err))
		h.publish(domain.CatalogSnapshot{Err: domain.WrapError(domain.ErrCodeInternal, "live updates unavailable", err)})
		return err
	}
	return nil
}

// Subscribe registers a subscriber. The latest snapshot, if any, is delivered
// first. The channel closes when ctx ends, when the hub stops or when the
// subscriber falls behind by more than the buffer.
func (h *Hub) Subscribe(ctx context.Context) (<-chan domain.CatalogSnapshot, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	id := h.nextID
	h.nextID++
	ch := make(chan domain.CatalogSnapshot, h.buffer)
	if h.latest != nil {
		ch <- *h.latest
	}
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(id)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(snap domain.CatalogSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if snap.Err == nil {
		h.latest = &snap
	}
	for id, ch := range h.subs {
		select {
		case ch <- snap:
		default:
			h.logger.Warn("dropping slow change feed subscriber", zap.Uint64("subscriber", id))
			close(ch)
			delete(h.subs, id)
		}
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}
