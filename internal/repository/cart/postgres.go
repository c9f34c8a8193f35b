package cart

import (
	"context"
	"errors"
	"fmt"

	"cartsync/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, identityID string) (domain.Cart, error) {
	const q = `
SELECT l.product_id, p.name, l.unit_price_cents, COALESCE(p.description, ''), COALESCE(p.image, ''), l.quantity
FROM cart_lines l
JOIN carts c ON c.id = l.cart_id
JOIN products p ON p.id = l.product_id
WHERE c.identity_id = $1
ORDER BY l.created_at ASC, l.id ASC
`
	rows, err := r.pool.Query(ctx, q, identityID)
	if err != nil {
		return domain.Cart{}, err
	}
	defer rows.Close()

	cart := domain.Cart{Lines: []domain.CartLine{}}
	for rows.Next() {
		var (
			line  domain.CartLine
			cents int64
		)
		if err := rows.Scan(&line.ProductID, &line.Name, &cents, &line.Description, &line.ImageRef, &line.Quantity); err != nil {
			return domain.Cart{}, err
		}
		line.UnitPrice = domain.PriceFromCents(cents)
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (r *postgresRepo) AddLine(ctx context.Context, identityID string, product domain.Product, quantity int) error {
	return r.inTx(ctx, identityID, func(tx pgx.Tx, cartID int64) error {
		_, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_id, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity
`, cartID, product.ID, quantity, domain.PriceCents(product.Price))
		return err
	})
}

func (r *postgresRepo) SetQuantity(ctx context.Context, identityID, productID string, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	return r.inTx(ctx, identityID, func(tx pgx.Tx, cartID int64) error {
		cmd, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1
WHERE cart_id = $2 AND product_id = $3
`, quantity, cartID, productID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *postgresRepo) RemoveLine(ctx context.Context, identityID, productID string) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines l
USING carts c
WHERE c.id = l.cart_id AND c.identity_id = $1 AND l.product_id = $2
`, identityID, productID)
	return err
}

func (r *postgresRepo) Clear(ctx context.Context, identityID string) error {
	_, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines l
USING carts c
WHERE c.id = l.cart_id AND c.identity_id = $1
`, identityID)
	return err
}

func (r *postgresRepo) Merge(ctx context.Context, identityID string, lines []MergeLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.inTx(ctx, identityID, func(tx pgx.Tx, cartID int64) error {
		batch := &pgx.Batch{}
		for _, line := range lines {
			batch.Queue(`
INSERT INTO cart_lines (cart_id, product_id, quantity, unit_price_cents)
SELECT $1::bigint, p.id, $3::integer, p.price_cents
FROM products p
WHERE p.id = $2
ON CONFLICT (cart_id, product_id) DO NOTHING
`, cartID, line.ProductID, line.Quantity)
		}
		results := tx.SendBatch(ctx, batch)
		for _, line := range lines {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("merge line %s: %w", line.ProductID, err)
			}
		}
		return results.Close()
	})
}

// inTx runs fn inside a transaction with the identity's cart created if needed.
func (r *postgresRepo) inTx(ctx context.Context, identityID string, fn func(tx pgx.Tx, cartID int64) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cartID, err := ensureCart(ctx, tx, identityID)
	if err != nil {
		return err
	}
	if err := fn(tx, cartID); err != nil {
		return err
	}
	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func ensureCart(ctx context.Context, tx pgx.Tx, identityID string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE identity_id = $1`, identityID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = tx.QueryRow(ctx, `
INSERT INTO carts (identity_id)
VALUES ($1)
ON CONFLICT (identity_id) DO UPDATE SET updated_at = now()
RETURNING id
`, identityID).Scan(&id)
	return id, err
}

func touchCart(ctx context.Context, tx pgx.Tx, cartID int64) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}
