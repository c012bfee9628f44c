package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a Postgres-backed implementation of ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query, args, err := psql.Select(productColumns...).From("products").Where("id = ?", id).ToSql()
	if err != nil {
		return nil, err
	}
	return scanProduct(r.pool.QueryRow(ctx, query, args...))
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, domain.ErrInvalidPayload
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO products (id, title, price, followers, status, description, whatsapp_number,
		likes, videos, bio, main_image, images, views)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.Title,
		product.Price,
		product.Followers,
		string(product.Status),
		product.Description,
		product.WhatsAppNumber,
		product.Stats.Likes,
		product.Stats.Videos,
		product.Stats.Bio,
		product.MainImage,
		images(product.Images),
		product.Views,
	).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		return nil, err
	}

	return product, nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE products
	SET title = $2,
		price = $3,
		followers = $4,
		status = $5,
		description = $6,
		whatsapp_number = $7,
		likes = $8,
		videos = $9,
		bio = $10,
		main_image = $11,
		images = $12,
		views = $13,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.Title,
		product.Price,
		product.Followers,
		string(product.Status),
		product.Description,
		product.WhatsAppNumber,
		product.Stats.Likes,
		product.Stats.Videos,
		product.Stats.Bio,
		product.MainImage,
		images(product.Images),
		product.Views,
	).Scan(&product.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		return err
	}

	return nil
}

func (r *productRepository) UpdateStatus(ctx context.Context, id string, status domain.ProductStatus) error {
	const query = `UPDATE products SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func scanProduct(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Product, error) {
	var (
		product domain.Product
		status  string
	)

	if err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Price,
		&product.Followers,
		&status,
		&product.Description,
		&product.WhatsAppNumber,
		&product.Stats.Likes,
		&product.Stats.Videos,
		&product.Stats.Bio,
		&product.MainImage,
		&product.Images,
		&product.Views,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	product.Status = domain.ProductStatus(status)
	return &product, nil
}

func images(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
