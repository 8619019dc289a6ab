package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"smartats/internal/errors"
)

// rootHandler reports basic service status. The payload shape is fixed
// and backward compatible with existing clients.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, map[string]string{
		"status":  "healthy",
		"message": "Smart ATS API is running",
		"version": s.Version,
	}, http.StatusOK)
}

// healthHandler provides a deep health check covering the AI model, the
// circuit breakers and the review store. Any degraded component turns the
// overall status degraded and the response into a 503.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.Version,
		"service":   s.AppConfig.Observability.ServiceName,
	}
	healthy := true

	checkTimeout := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	modelInfo := s.AIService.GetModelInfo(ctx)
	aiStatus := map[string]any{
		"model":     modelInfo.Name,
		"available": modelInfo.Available,
	}
	if modelInfo.Error != "" {
		aiStatus["error"] = modelInfo.Error
	}
	if !modelInfo.Available {
		healthy = false
	}

	if statsProvider, ok := s.AIService.Provider.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
		if cbStats := statsProvider.GetCircuitBreakerStats(); cbStats != nil {
			aiStatus["circuit_breakers"] = cbStats
			if ok, present := cbStats["overall_healthy"].(bool); present && !ok {
				healthy = false
			}
		}
	}
	response["ai"] = aiStatus

	if s.Store.Enabled() {
		storeStatus := map[string]any{"enabled": true, "reachable": true}
		if err := s.Store.Ping(ctx); err != nil {
			storeStatus["reachable"] = false
			storeStatus["error"] = err.Error()
			healthy = false
		}
		response["store"] = storeStatus
	} else {
		response["store"] = map[string]any{"enabled": false}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, response, status)
}

// statsHandler reports server configuration and runtime statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"version": s.Version,
		"server": map[string]any{
			"auth_enabled":     len(s.APIKeys) > 0,
			"api_keys_count":   len(s.APIKeys),
			"max_request_size": s.MaxRequestSize,
			"tls_mode":         s.TLSConfig.Mode,
		},
	}

	rateLimitInfo := map[string]any{
		"enabled": s.RateLimit != nil && s.RateLimit.Enabled,
	}
	if s.RateLimiter != nil {
		rateLimitInfo["stats"] = s.RateLimiter.GetStats()
		rateLimitInfo["by_ip"] = s.RateLimit.ByIP
		rateLimitInfo["by_api_key"] = s.RateLimit.ByAPIKey
	}
	response["rate_limiting"] = rateLimitInfo

	if s.Store.Enabled() {
		reviewStats, err := s.Store.Stats(r.Context())
		if err != nil {
			s.Logger.LogError(err, "Failed to load review statistics")
			response["reviews"] = map[string]any{"error": "statistics unavailable"}
		} else {
			response["reviews"] = reviewStats
		}
	}

	writeJSONResponse(w, response, http.StatusOK)
}

// listReviewsHandler returns one page of persisted reviews, newest first
func (s *Server) listReviewsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.Store.Enabled() {
		writeErrorResponse(w, "Review store disabled", "Review persistence is not enabled on this server", http.StatusNotFound)
		return
	}

	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", 20)

	reviews, total, err := s.Store.ListReviews(r.Context(), page, limit)
	if err != nil {
		s.Logger.LogError(err, "Failed to list reviews")
		writeErrorResponse(w, "Failed to list reviews", "Review store query failed", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, map[string]any{
		"reviews": reviews,
		"total":   total,
		"page":    page,
		"limit":   limit,
	}, http.StatusOK)
}

// getReviewHandler returns a single persisted review by ID
func (s *Server) getReviewHandler(w http.ResponseWriter, r *http.Request) {
	if !s.Store.Enabled() {
		writeErrorResponse(w, "Review store disabled", "Review persistence is not enabled on this server", http.StatusNotFound)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, "Invalid review ID", "Review ID must be a valid UUID", http.StatusBadRequest)
		return
	}

	review, err := s.Store.GetReview(r.Context(), id)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			writeErrorResponse(w, "Review not found", "No review exists with the given ID", http.StatusNotFound)
			return
		}
		s.Logger.LogError(err, "Failed to load review", "review_id", id.String())
		writeErrorResponse(w, "Failed to load review", "Review store query failed", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, review, http.StatusOK)
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeErrorResponse writes a JSON error response
func writeErrorResponse(w http.ResponseWriter, errorMsg, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorMsg,
		Message: message,
	})
}
