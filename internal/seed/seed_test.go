package seed

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"cartsync/internal/domain"
)

type recordingWriter struct {
	keys   []string
	failOn string
}

func (w *recordingWriter) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	if p.Key == w.failOn {
		return nil, errors.New("db down")
	}
	w.keys = append(w.keys, p.Key)
	return &p, nil
}

func TestApplyWritesEveryProduct(t *testing.T) {
	w := &recordingWriter{}
	n, err := Apply(context.Background(), w)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != len(DemoProducts()) {
		t.Fatalf("expected %d products, got %d", len(DemoProducts()), n)
	}
	want := []string{"demo-shirt", "demo-mug", "demo-tote"}
	if !slices.Equal(w.keys, want) {
		t.Fatalf("unexpected keys: %v", w.keys)
	}
}

func TestApplyStopsOnError(t *testing.T) {
	w := &recordingWriter{failOn: "demo-mug"}
	n, err := Apply(context.Background(), w)
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 1 {
		t.Fatalf("expected 1 product written before failure, got %d", n)
	}
	if !strings.Contains(err.Error(), "demo-mug") {
		t.Fatalf("error should name the failing product: %v", err)
	}
}
