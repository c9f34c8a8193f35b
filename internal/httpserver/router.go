package httpserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"cartsync/internal/cartapi"
	"cartsync/internal/domain"
	"cartsync/internal/session"
	cartsvc "cartsync/internal/service/cart"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Get(ctx context.Context, identityID string) (domain.Cart, error)
	AddItem(ctx context.Context, identityID string, in cartsvc.LineInput) (domain.Cart, error)
	UpdateQuantity(ctx context.Context, identityID string, in cartsvc.LineInput) (domain.Cart, error)
	RemoveItem(ctx context.Context, identityID, productID string) (domain.Cart, error)
	Clear(ctx context.Context, identityID string) error
	Sync(ctx context.Context, identityID string, lines []cartsvc.LineInput) (domain.Cart, error)
}

type tokenVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// Deps are the collaborators the router needs.
type Deps struct {
	ProductSvc productService
	CartSvc    cartService
	Tokens     tokenVerifier

	// Registry and Gatherer back the request metrics and /metrics. Both may be nil.
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer

	CORSOrigins []string
	UploadsDir  string
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.ProductSvc == nil || deps.CartSvc == nil {
		return nil, errors.New("product and cart services are required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token verifier is required")
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.Use(requestMetrics(newHTTPMetrics(deps.Registry)))
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.UploadsDir != "" {
		router.Static(strings.TrimSuffix(cartapi.UploadsPath, "/"), deps.UploadsDir)
	}

	products := router.Group("/products")
	products.GET("", listProductsHandler(deps.ProductSvc))
	products.GET("/:id", getProductHandler(deps.ProductSvc))

	cart := router.Group(cartapi.PathCart, authMiddleware(deps.Tokens))
	cart.GET("", getCartHandler(deps.CartSvc))
	cart.DELETE("", clearCartHandler(deps.CartSvc))
	cart.POST("/items", addItemHandler(deps.CartSvc))
	cart.PUT("/items/:productId", updateItemHandler(deps.CartSvc))
	cart.DELETE("/items/:productId", removeItemHandler(deps.CartSvc))
	cart.POST("/sync", syncCartHandler(deps.CartSvc))

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
