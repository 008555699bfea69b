package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/constants"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/flags"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"
	"github.com/aman-zulfiqar/raydium-listing-notifier/internal/pipeline"
	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// FlagStore is the subset of flags.Store the handlers use
type FlagStore interface {
	Upsert(ctx context.Context, key string, value bool) (*flags.Flag, error)
	Get(ctx context.Context, key string) (*flags.Flag, error)
	Muted(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]*flags.Flag, error)
	Delete(ctx context.Context, key string) error
}

// NativePricer returns the current SOL fiat price
type NativePricer interface {
	NativePrice(ctx context.Context) (float64, error)
}

// Previewer runs the pipeline for one signature without dispatching
type Previewer interface {
	Build(ctx context.Context, signature string) (*models.EnrichmentReport, models.NotificationMessage, error)
}

// Handlers contains all dependencies for API endpoint handlers.
// Flags, Prices and Preview are optional; their endpoints answer 400 when unset.
type Handlers struct {
	Flags   FlagStore
	Prices  NativePricer
	Preview Previewer
	DevMode bool           // Enable detailed error responses in development
	Logger  *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		h.Logger = logrus.New()
	}
	return h.Logger
}

// Health reports liveness and whether dispatch is currently muted
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{OK: true}
	if h.Flags != nil {
		ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		muted, err := h.Flags.Muted(ctx)
		if err != nil {
			h.logger().WithError(err).Warn("health: failed to read mute flag")
		}
		resp.Muted = muted
	}
	return c.JSON(http.StatusOK, resp)
}

// NativePrice returns the SOL price through the same breaker-guarded sources the enricher uses
func (h *Handlers) NativePrice(c echo.Context) error {
	if h.Prices == nil {
		return h.err(c, http.StatusBadRequest, "price service is not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	price, err := h.Prices.NativePrice(ctx)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "price lookup failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, NativePriceResponse{Symbol: constants.NativeSymbol, Price: price})
}

// PreviewListing enriches and renders a pool-creation transaction without sending it
func (h *Handlers) PreviewListing(c echo.Context) error {
	if h.Preview == nil {
		return h.err(c, http.StatusBadRequest, "preview is not configured", nil)
	}

	sig := strings.TrimSpace(c.Param("signature"))
	if raw, err := base58.Decode(sig); err != nil || len(raw) != 64 {
		return h.err(c, http.StatusBadRequest, "invalid signature", map[string]any{"signature": "must be a base58 transaction signature"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()
	report, msg, err := h.Preview.Build(ctx, sig)
	if err != nil {
		if pipeline.IsAbandon(err) {
			return h.err(c, http.StatusUnprocessableEntity, "not a pool creation", map[string]any{"err": err.Error()})
		}
		return h.err(c, http.StatusInternalServerError, "preview failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, PreviewResponse{
		Signature: sig,
		Report:    report,
		Message:   msg,
		TookMs:    time.Since(start).Milliseconds(),
	})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.logger().WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("🚩 Flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.logger().WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("🚩 Flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
