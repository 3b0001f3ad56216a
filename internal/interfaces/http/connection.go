// Package http exposes the engine over a plain net/http mux: link flow,
// connection management, device registration and the batch sync triggers.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"nestegg/internal/aggregator"
	"nestegg/internal/domain/connection"
)

// userIDHeader carries the caller's identity. Authentication happens at the
// gateway in front of this service; the gateway strips any client-supplied
// value and injects the verified one.
const userIDHeader = "X-User-ID"

func callerID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

// ConnectionHandler serves the connection lifecycle endpoints
type ConnectionHandler struct {
	connections *connection.Service
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connections *connection.Service) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// HTTP request/response types (transport layer concerns)
type CreateLinkTokenRequest struct {
	InstitutionName string `json:"institutionName"`
}

type LinkSessionResponse struct {
	Provider   string  `json:"provider"`
	LinkToken  string  `json:"linkToken,omitempty"`
	ConnectURL string  `json:"connectUrl,omitempty"`
	Expiration *string `json:"expiration,omitempty"`
}

type ExchangeTokenRequest struct {
	PublicToken string `json:"publicToken"`
	Provider    string `json:"provider"`
}

// HandleCreateLinkToken starts a link flow for the caller
func (h *ConnectionHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := callerID(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateLinkTokenRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	session, err := h.connections.CreateLinkSession(r.Context(), userID, req.InstitutionName)
	if err != nil {
		log.Printf("Error creating link session for user %s: %v", userID, err)
		http.Error(w, "Failed to create link session", http.StatusInternalServerError)
		return
	}

	resp := LinkSessionResponse{
		Provider:   string(session.Provider),
		LinkToken:  session.LinkToken,
		ConnectURL: session.ConnectURL,
	}
	if session.Expiration != nil {
		formatted := session.Expiration.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.Expiration = &formatted
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleExchangeToken trades a public token for connected accounts
func (h *ConnectionHandler) HandleExchangeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := callerID(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ExchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		http.Error(w, "publicToken is required", http.StatusBadRequest)
		return
	}

	providerType := aggregator.Type(req.Provider)
	if req.Provider == "" {
		providerType = aggregator.TypePlaid
	}

	accounts, err := h.connections.ExchangeToken(r.Context(), userID, req.PublicToken, providerType)
	if err != nil {
		if errors.Is(err, aggregator.ErrUnknownProvider) {
			http.Error(w, "Unknown provider", http.StatusBadRequest)
			return
		}
		log.Printf("Error exchanging token for user %s: %v", userID, err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(accounts)
}

// HandleListConnections returns the caller's active connected accounts
func (h *ConnectionHandler) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := callerID(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accounts, err := h.connections.ListAccounts(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing connections for user %s: %v", userID, err)
		http.Error(w, "Failed to list connections", http.StatusInternalServerError)
		return
	}

	if accounts == nil {
		accounts = []*connection.ConnectedAccount{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// HandleDisconnect removes a connection and everything synced under it
func (h *ConnectionHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := callerID(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	connectionID := r.PathValue("id")
	if connectionID == "" {
		http.Error(w, "Connection ID is required", http.StatusBadRequest)
		return
	}

	err := h.connections.Disconnect(r.Context(), userID, connectionID)
	if err != nil {
		switch {
		case errors.Is(err, connection.ErrConnectionNotFound):
			http.Error(w, "Connection not found", http.StatusNotFound)
		case errors.Is(err, connection.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			log.Printf("Error disconnecting %s: %v", connectionID, err)
			http.Error(w, "Failed to disconnect", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
