package cartsync

import (
	"context"
	"fmt"
	"sync"

	"cartsync/internal/domain"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// reconcile runs one merge pass for a session transition. The server wins
// on overlapping products; lines only known locally are pushed. A fetch
// failure returns before touching the store.
func (e *Engine) reconcile(ctx context.Context, gen uint64, id domain.Identity) error {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	local := e.store.Get()
	if e.batchSync && !local.IsEmpty() {
		return e.reconcileBatch(ctx, gen, id, local)
	}

	server, err := e.fetch(ctx, id.Token)
	if err != nil {
		return fmt.Errorf("fetch server cart: %w", err)
	}

	_, snapshotOnly := Merge(server, local)
	localOnly := stillPresent(snapshotOnly, e.store.Get())
	pushErr := e.pushLines(ctx, id.Token, localOnly)

	merged, _ := Merge(server, e.store.Get())
	if !e.commit(gen, merged) {
		return nil
	}
	e.logger.Info().
		Str("identity_id", id.ID).
		Int("server_lines", len(server.Lines)).
		Int("pushed_lines", len(localOnly)).
		Msg("cart reconciled")

	if len(localOnly) > 0 {
		e.publish(ctx, id.ID)
	}
	if pushErr != nil {
		return fmt.Errorf("push local lines: %w", pushErr)
	}
	return nil
}

func (e *Engine) reconcileBatch(ctx context.Context, gen uint64, id domain.Identity, local domain.Cart) error {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	started := e.now()
	merged, err := e.remote.Sync(callCtx, id.Token, local)
	e.metrics.observeCall("sync_cart", e.now().Sub(started), err)
	if err != nil {
		return fmt.Errorf("sync cart: %w", err)
	}

	// the server answer lacks anything added locally since the snapshot
	merged, _ = Merge(merged, e.store.Get())
	if !e.commit(gen, merged) {
		return nil
	}
	e.logger.Info().Str("identity_id", id.ID).Int("lines", len(merged.Lines)).Msg("cart reconciled in batch")
	e.publish(ctx, id.ID)
	return nil
}

// stillPresent keeps the lines the store still holds, at their current
// quantity. Edits made while the fetch was in flight were propagated on their
// own: a removed line must not come back and an added one must not be pushed
// twice.
func stillPresent(lines []domain.CartLine, live domain.Cart) []domain.CartLine {
	var out []domain.CartLine
	for _, l := range lines {
		if cur, ok := live.Find(l.ProductID); ok {
			out = append(out, cur)
		}
	}
	return out
}

// pushLines creates each line on the server with its local quantity. Every
// line is attempted; failures are combined.
func (e *Engine) pushLines(ctx context.Context, token string, lines []domain.CartLine) error {
	if len(lines) == 0 {
		return nil
	}
	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for _, line := range lines {
		line := line
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, e.callTimeout)
			defer cancel()
			started := e.now()
			err := e.remote.AddLine(callCtx, token, line.ProductID, line.Quantity)
			e.metrics.observeCall("add_line", e.now().Sub(started), err)
			if err != nil {
				e.logger.Warn().Err(err).Str("product_id", line.ProductID).Msg("push local line")
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", line.ProductID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
