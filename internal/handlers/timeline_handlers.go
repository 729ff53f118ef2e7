package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"timeline-platform/internal/models"
	"timeline-platform/internal/repository"
	"timeline-platform/internal/services"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

// TimelineHandler handles timeline API endpoints
type TimelineHandler struct {
	timelineService *services.TimelineService
	logger          *logging.StructuredLogger
	metrics         *metrics.Collector
}

// NewTimelineHandler creates a new timeline handler
func NewTimelineHandler(
	timelineService *services.TimelineService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *TimelineHandler {
	return &TimelineHandler{
		timelineService: timelineService,
		logger:          logger,
		metrics:         metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetRecords handles GET /api/records
func (h *TimelineHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/records").Observe(duration.Seconds())
	}()

	// Parse query parameters
	chunkID := r.URL.Query().Get("chunk_id")
	startStr := r.URL.Query().Get("start_utc")
	endStr := r.URL.Query().Get("end_utc")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	// Build filter
	filter := repository.CorrectedFilter{
		Limit:  limit,
		Offset: offset,
	}

	if chunkID != "" {
		filter.ChunkID = &chunkID
	}

	if startStr != "" {
		startUTC, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			h.sendError(w, r, "invalid start_utc format, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.StartUTC = &startUTC
	}

	if endStr != "" {
		endUTC, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			h.sendError(w, r, "invalid end_utc format, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.EndUTC = &endUTC
	}

	// Get corrected records
	records, total, err := h.timelineService.GetCorrected(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RECORDS_ERROR] Failed to get corrected records", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/records")
		h.sendError(w, r, "failed to retrieve corrected records", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/records", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetChunks handles GET /api/chunks
func (h *TimelineHandler) GetChunks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/chunks").Observe(duration.Seconds())
	}()

	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	chunks, err := h.timelineService.GetChunks(ctx, limit, offset)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_CHUNKS_ERROR] Failed to get chunks", logging.Fields{
			"page":  page,
			"limit": limit,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/chunks")
		h.sendError(w, r, "failed to retrieve chunks", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/chunks", "GET", "200")
	h.sendJSON(w, chunks, http.StatusOK)
}

// GetChunk handles GET /api/chunks/{chunk_id}
func (h *TimelineHandler) GetChunk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/chunks/{chunk_id}").Observe(duration.Seconds())
	}()

	chunkID := mux.Vars(r)["chunk_id"]

	chunk, err := h.timelineService.GetChunk(ctx, chunkID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, "chunk not found", http.StatusNotFound)
			return
		}
		h.logger.Error(ctx, "[API_GET_CHUNK_ERROR] Failed to get chunk", logging.Fields{
			"chunk_id": chunkID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/chunks/{chunk_id}")
		h.sendError(w, r, "failed to retrieve chunk", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/chunks/{chunk_id}", "GET", "200")
	h.sendJSON(w, chunk, http.StatusOK)
}

// GetAnomalies handles GET /api/anomalies
func (h *TimelineHandler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/anomalies").Observe(duration.Seconds())
	}()

	chunkID := r.URL.Query().Get("chunk_id")
	kindStr := r.URL.Query().Get("kind")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	filter := repository.AnomalyFilter{
		Limit:  limit,
		Offset: offset,
	}

	if chunkID != "" {
		filter.ChunkID = &chunkID
	}

	if kindStr != "" {
		switch models.AnomalyKind(kindStr) {
		case models.AnomalyMissingHours, models.AnomalyDuplicateHours,
			models.AnomalyBoundaryMismatch, models.AnomalyContinuityGap:
			filter.Kind = &kindStr
		default:
			h.sendError(w, r, "invalid kind, expected one of missing_hours, duplicate_hours, boundary_mismatch, continuity_gap", http.StatusBadRequest)
			return
		}
	}

	anomalies, total, err := h.timelineService.GetAnomalies(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_ANOMALIES_ERROR] Failed to get anomalies", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/anomalies")
		h.sendError(w, r, "failed to retrieve anomalies", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       anomalies,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/anomalies", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *TimelineHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.timelineService.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Health check failed", logging.Fields{}, err)
		h.sendError(w, r, "storage unavailable", http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *TimelineHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *TimelineHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all timeline API routes
func (h *TimelineHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/chunks", h.GetChunks).Methods("GET")
	router.HandleFunc("/api/chunks/{chunk_id}", h.GetChunk).Methods("GET")
	router.HandleFunc("/api/anomalies", h.GetAnomalies).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
