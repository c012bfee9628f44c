package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

// ChangeChannel is the NOTIFY channel fed by the products trigger.
const ChangeChannel = "products_changed"

// ProductFeed turns LISTEN/NOTIFY on the products table into full collection snapshots.
type ProductFeed struct {
	pool     *pgxpool.Pool
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewProductFeed(pool *pgxpool.Pool, products repository.ProductRepository, logger *zap.Logger) *ProductFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductFeed{pool: pool, products: products, logger: logger}
}

// Listen delivers one snapshot right away and a fresh one after every
// notification, sequentially, until ctx ends. A nil error means ctx ended.
func (f *ProductFeed) Listen(ctx context.Context, deliver func([]domain.Product)) error {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	if err := f.snapshot(ctx, deliver); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		f.logger.Debug("catalog change received", zap.String("operation", notification.Payload))

		if err := f.snapshot(ctx, deliver); err != nil {
			return err
		}
	}
}

func (f *ProductFeed) snapshot(ctx context.Context, deliver func([]domain.Product)) error {
	products, err := f.products.List(ctx, domain.DefaultFilter())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("load catalog snapshot: %w", err)
	}
	deliver(products)
	return nil
}
