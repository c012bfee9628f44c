package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
)

// CommandHandler executes one named admin action.
type CommandHandler func(ctx context.Context, payload interface{}) (interface{}, error)

// ErrUnknownCommand is returned for names nothing registered.
var ErrUnknownCommand = domain.NewError(domain.ErrCodeInvalid, "unknown command")

// Dispatcher routes named admin commands, such as product status
// transitions, to their handlers and logs every execution.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		commands: make(map[string]CommandHandler),
		logger:   logger,
	}
}

// Register binds name to handler. Registering a name twice is a programming
// error and panics.
func (d *Dispatcher) Register(name string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.commands[name]; exists {
		panic(fmt.Sprintf("command %s registered twice", name))
	}
	d.commands[name] = handler
}

func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.commands[name]
	return ok
}

// Commands lists the registered names in order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) Execute(ctx context.Context, name string, payload interface{}) (interface{}, error) {
	d.mu.RLock()
	handler, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(ErrUnknownCommand.Code, ErrUnknownCommand.Message, fmt.Errorf("%q", name))
	}

	start := time.Now()
	result, err := handler(ctx, payload)
	fields := []zap.Field{zap.String("command", name), zap.Duration("took", time.Since(start))}
	if err != nil {
		d.logger.Debug("command failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	d.logger.Debug("command executed", fields...)
	return result, nil
}
