package http

import (
	"net/http"

	"nestegg/internal/shared/middleware"
)

// RouterConfig carries the handlers and the trigger key hash for route assembly
type RouterConfig struct {
	Connections    *ConnectionHandler
	Notifications  *NotificationHandler
	Sync           *SyncHandler
	SyncAPIKeyHash string
}

// NewRouter assembles the service mux. The sync triggers are wrapped with
// the API-key guard; global middleware (logging, telemetry) is applied by
// the caller.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handleHealth)

	mux.HandleFunc("/api/link/token", cfg.Connections.HandleCreateLinkToken)
	mux.HandleFunc("/api/link/exchange", cfg.Connections.HandleExchangeToken)
	mux.HandleFunc("/api/connections", cfg.Connections.HandleListConnections)
	mux.HandleFunc("/api/connections/{id}", cfg.Connections.HandleDisconnect)

	mux.HandleFunc("/api/devices", cfg.Notifications.HandleRegisterDevice)

	guard := middleware.SyncAPIKey(cfg.SyncAPIKeyHash)
	mux.Handle("/api/sync/all", guard(http.HandlerFunc(cfg.Sync.HandleSyncAllUsers)))
	mux.Handle("/api/sync/users/{id}", guard(http.HandlerFunc(cfg.Sync.HandleSyncUser)))

	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
