package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"nestegg/internal/domain/sync"
)

// ReportPublisher forwards completed batch reports to an external sink.
// Implemented by the Kafka publisher; nil disables publishing.
type ReportPublisher interface {
	Publish(ctx context.Context, result *sync.BatchResult) error
}

// SyncHandler serves the manual batch sync triggers. Both endpoints sit
// behind the API-key middleware.
type SyncHandler struct {
	batch     *sync.BatchService
	publisher ReportPublisher
}

// NewSyncHandler creates a new sync handler. publisher may be nil.
func NewSyncHandler(batch *sync.BatchService, publisher ReportPublisher) *SyncHandler {
	return &SyncHandler{batch: batch, publisher: publisher}
}

// HandleSyncAllUsers runs the full batch synchronously and returns the report.
// The report is also published to Kafka when a publisher is configured.
func (h *SyncHandler) HandleSyncAllUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := h.batch.SyncAllUsers(r.Context())

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), result); err != nil {
			log.Printf("Failed to publish batch report: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !result.Success {
		w.WriteHeader(http.StatusMultiStatus)
	}
	json.NewEncoder(w).Encode(result)
}

// HandleSyncUser syncs a single user's accounts and returns the per-user result
func (h *SyncHandler) HandleSyncUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.PathValue("id")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	result := h.batch.SyncUser(r.Context(), userID)

	w.Header().Set("Content-Type", "application/json")
	if len(result.Errors) > 0 {
		w.WriteHeader(http.StatusMultiStatus)
	}
	json.NewEncoder(w).Encode(result)
}
