package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"cartsync/internal/cartsync"
	"cartsync/internal/config"
	"cartsync/internal/domain"
	"cartsync/internal/livesync"
	"cartsync/internal/localstore"
	"cartsync/internal/remote"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is one wired client: slot, store, channel and engine.
type app struct {
	engine  *cartsync.Engine
	remote  *remote.Client
	redis   *redis.Client
	channel livesync.Channel
}

func newApp(ctx context.Context, cfg config.ClientConfig, redisURL string, reg prometheus.Registerer, logger zerolog.Logger) (*app, error) {
	a := &app{remote: remote.New(cfg.APIBaseURL, cfg.CallTimeout)}

	needRedis := cfg.SlotBackend == config.SlotRedis || cfg.LiveUpdates
	if needRedis && redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			if cfg.SlotBackend == config.SlotRedis {
				return nil, fmt.Errorf("ping redis: %w", err)
			}
			logger.Warn().Err(err).Msg("redis unavailable; live updates limited to this process")
		} else {
			a.redis = client
		}
	}

	slot, err := buildSlot(cfg, a.redis)
	if err != nil {
		a.close()
		return nil, err
	}

	switch {
	case !cfg.LiveUpdates:
	case a.redis != nil:
		a.channel = livesync.NewRedisChannel(a.redis, cfg.ChannelPrefix, logger)
	default:
		// updates stay within this process
		a.channel = livesync.NewMemoryHub()
	}

	engine, err := cartsync.New(cartsync.Options{
		Store:       localstore.New(slot, logger),
		Remote:      a.remote,
		Channel:     a.channel,
		CallTimeout: cfg.CallTimeout,
		BatchSync:   cfg.BatchSync,
		Metrics:     cartsync.NewMetrics(reg),
		Logger:      logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func buildSlot(cfg config.ClientConfig, client *redis.Client) (localstore.Slot, error) {
	switch cfg.SlotBackend {
	case config.SlotMemory:
		return localstore.NewMemorySlot(), nil
	case config.SlotRedis:
		if client == nil {
			return nil, fmt.Errorf("redis slot selected but no redis client")
		}
		return localstore.NewRedisSlot(client, cfg.Profile, cfg.CallTimeout), nil
	default:
		return localstore.NewFileSlot(filepath.Join(cfg.StateDir, cfg.Profile))
	}
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// renderCart prints the cart as a table with its total and line count.
func renderCart(w io.Writer, cart domain.Cart) {
	if cart.IsEmpty() {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tUNIT\tSUBTOTAL")
	for _, line := range cart.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			line.ProductID, line.Name, line.Quantity,
			line.UnitPrice.StringFixed(2), line.Subtotal().StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(w, "lines: %d  items: %d  total: %s\n", cart.ItemCount(), cart.TotalQuantity(), cart.Total().StringFixed(2))
}
