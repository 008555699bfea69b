package server

import "github.com/aman-zulfiqar/raydium-listing-notifier/internal/models"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK    bool `json:"ok"`    // Service health status
	Muted bool `json:"muted"` // Dispatch suppressed by the notifier.muted flag
}

// NativePriceResponse is the current fiat price of SOL as seen by the enricher
type NativePriceResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// PreviewResponse holds the enrichment and rendered message for one signature
type PreviewResponse struct {
	Signature string                     `json:"signature"`
	Report    *models.EnrichmentReport   `json:"report"`
	Message   models.NotificationMessage `json:"message"`
	TookMs    int64                      `json:"took_ms"`
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}
