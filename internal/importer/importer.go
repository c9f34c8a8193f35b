// Package importer loads a product catalog from CSV.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"cartsync/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads rows with the columns id, key, name, description, price
// and image. Only key, name and price are required; column order is free.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, productRepo: repo}
}

var requiredColumns = []string{"key", "name", "price"}

// Run upserts every valid row. Invalid rows are skipped and reported together
// in the returned error; a write failure stops the run.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	var (
		imported int
		rowErrs  error
		line     = 1
	)
	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		product, err := parseRow(record, index)
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		if _, err := i.productRepo.Upsert(ctx, product); err != nil {
			return imported, multierr.Append(rowErrs, fmt.Errorf("upsert product %q: %w", product.Key, err))
		}
		imported++
	}
	return imported, rowErrs
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		ID:          pick(record, index, "id"),
		Key:         pick(record, index, "key"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Image:       pick(record, index, "image"),
	}
	if p.Key == "" || p.Name == "" {
		return domain.Product{}, fmt.Errorf("key and name are required (key %q)", p.Key)
	}
	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price for key %q: %w", p.Key, err)
	}
	if price.IsNegative() {
		return domain.Product{}, fmt.Errorf("negative price for key %q", p.Key)
	}
	p.Price = price
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
