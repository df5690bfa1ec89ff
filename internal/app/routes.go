package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Google authorization
	r.HandleFunc("/api/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/auth/status", deps.GoogleAuth.Status).Methods("GET")

	// Synchronization
	r.HandleFunc("/api/sync/run", deps.SyncHandler.Run).Methods("POST")
}
