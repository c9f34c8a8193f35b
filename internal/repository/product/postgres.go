package product

import (
	"context"
	"errors"
	"fmt"

	"cartsync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "product").Logger()}
}

const selectProduct = `
SELECT id, key, name, COALESCE(description, ''), price_cents, COALESCE(image, ''), created_at
FROM products
`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+`ORDER BY name ASC, id ASC`)
	if err != nil {
		r.logger.Error().Err(err).Msg("list products")
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("list products rows")
		return nil, err
	}
	r.logger.Debug().Int("count", len(result)).Msg("listed products")
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, selectProduct+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("get product")
		return nil, err
	}
	return &p, nil
}

// Upsert inserts or updates by key. An empty ID gets a fresh UUID.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, key, name, description, price_cents, image)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''))
ON CONFLICT (key) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    image = EXCLUDED.image
RETURNING id, created_at
`
	id := product.ID
	if id == "" {
		id = uuid.NewString()
	}
	res := product
	err := r.pool.QueryRow(ctx, q,
		id,
		product.Key,
		product.Name,
		product.Description,
		domain.PriceCents(product.Price),
		product.Image,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("key", product.Key).Msg("upsert product")
		return nil, err
	}
	if product.ID != "" && res.ID != product.ID {
		return nil, fmt.Errorf("product repo: id mismatch for key=%s existing_id=%s import_id=%s", product.Key, res.ID, product.ID)
	}
	res.Price = domain.PriceFromCents(domain.PriceCents(product.Price))
	r.logger.Debug().Str("key", res.Key).Str("product_id", res.ID).Msg("upserted product")
	return &res, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		cents int64
	)
	if err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Description, &cents, &p.Image, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	p.Price = domain.PriceFromCents(cents)
	return p, nil
}
