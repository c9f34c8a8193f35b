package cart

import (
	"context"
	"os"
	"testing"

	"cartsync/internal/domain"
	"cartsync/internal/logging"
	"cartsync/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_LineLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, logging.Discard()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	insertProduct(ctx, t, pool, "p1", 1299)
	insertProduct(ctx, t, pool, "p2", 500)

	repo := NewPostgres(pool)

	empty, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get empty: %v", err)
	}
	if !empty.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", empty)
	}

	p1 := domain.Product{ID: "p1", Price: domain.PriceFromCents(1299)}
	if err := repo.AddLine(ctx, "u1", p1, 1); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if err := repo.AddLine(ctx, "u1", p1, 2); err != nil {
		t.Fatalf("AddLine increment: %v", err)
	}
	if err := repo.SetQuantity(ctx, "u1", "p2", 4); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing line, got %v", err)
	}

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if q := got.Quantities(); len(q) != 1 || q["p1"] != 3 {
		t.Fatalf("unexpected quantities %v", q)
	}
	if got.Lines[0].Name != "Product p1" || domain.PriceCents(got.Lines[0].UnitPrice) != 1299 {
		t.Fatalf("unexpected line %+v", got.Lines[0])
	}

	if err := repo.SetQuantity(ctx, "u1", "p1", 7); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if err := repo.RemoveLine(ctx, "u1", "p1"); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if err := repo.RemoveLine(ctx, "u1", "p1"); err != nil {
		t.Fatalf("RemoveLine twice: %v", err)
	}
	got, _ = repo.Get(ctx, "u1")
	if !got.IsEmpty() {
		t.Fatalf("expected empty cart after remove, got %+v", got)
	}
}

func TestPostgres_MergeKeepsServerQuantities(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, logging.Discard()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	insertProduct(ctx, t, pool, "a", 100)
	insertProduct(ctx, t, pool, "c", 100)

	repo := NewPostgres(pool)
	if err := repo.AddLine(ctx, "u1", domain.Product{ID: "a", Price: domain.PriceFromCents(100)}, 2); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	err := repo.Merge(ctx, "u1", []MergeLine{
		{ProductID: "a", Quantity: 5},
		{ProductID: "c", Quantity: 3},
		{ProductID: "ghost", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	q := got.Quantities()
	if len(q) != 2 || q["a"] != 2 || q["c"] != 3 {
		t.Fatalf("unexpected quantities %v", q)
	}

	if err := repo.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = repo.Get(ctx, "u1")
	if !got.IsEmpty() {
		t.Fatalf("expected empty cart after clear")
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE cart_lines, carts, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func insertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id string, cents int64) {
	t.Helper()
	_, err := pool.Exec(ctx, `
INSERT INTO products (id, key, name, price_cents)
VALUES ($1, $1, 'Product ' || $1::text, $2)
`, id, cents)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
}
