package middleware

import (
	"log"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const apiKeyHeader = "X-Sync-Api-Key"

// SyncAPIKey guards the batch sync trigger endpoints with a shared key.
// keyHash is a bcrypt hash of the expected key; when empty the endpoints
// are disabled entirely rather than left open.
func SyncAPIKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				http.Error(w, "Sync triggers are disabled", http.StatusForbidden)
				return
			}

			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				http.Error(w, "Missing API key", http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				log.Printf("Rejected sync trigger from %s: invalid API key", r.RemoteAddr)
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
