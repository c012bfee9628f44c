package repository

import (
	"context"

	"github.com/fastygo/tikshop/domain"
)

// ProductRepository is the backing store contract of the catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// List pushes the filter predicates and sort order down to the store.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	// Create assigns the id and timestamps.
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	// Update merges the product over the stored document and bumps updated_at.
	Update(ctx context.Context, product *domain.Product) error
	UpdateStatus(ctx context.Context, id string, status domain.ProductStatus) error
	Delete(ctx context.Context, id string) error
}

// ChangeFeed pushes the full collection every time it changes. Deliveries on a
// channel follow the store's emission order; the channel is closed when ctx ends
// or the subscriber is dropped.
type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.CatalogSnapshot, error)
}
