package server

import (
	"net/http"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/metrics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Paths served without the API key so probes and scrapers keep working
var publicPaths = map[string]bool{
	"/v1/health": true,
	"/metrics":   true,
}

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, m *metrics.Metrics, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler(h.logger(), cfg.DevMode)

	e.Use(SetNoCacheHeaders)

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Skipper: func(c echo.Context) bool {
				return publicPaths[c.Path()]
			},
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// Prometheus exposition keeps its own content type
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	v1 := e.Group("/v1", SetJSONContentType)
	v1.GET("/health", h.Health)
	v1.GET("/prices/native", h.NativePrice)

	// Previews hit the RPC node several times each, keep them slow
	preview := v1.Group("/preview")
	preview.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	preview.GET("/:signature", h.PreviewListing)

	// Feature flags CRUD endpoints
	flagGroup := v1.Group("/flags")
	flagGroup.GET("", h.FlagsList)
	flagGroup.POST("", h.FlagsUpsert)
	flagGroup.GET("/:key", h.FlagsGet)
	flagGroup.PUT("/:key", h.FlagsUpdate)
	flagGroup.DELETE("/:key", h.FlagsDelete)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
