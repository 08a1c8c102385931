package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"sulamboard/internal/service"
	"sulamboard/internal/transport/rest/handler"
	"sulamboard/internal/transport/rest/middleware"
	"sulamboard/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService        *service.AuthService
	LeaderboardService *service.LeaderboardService
	ScoreService       *service.ScoreService
	ExportService      *service.ExportService
	WSHub              *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	rosterHandler := handler.NewRosterHandler(c.LeaderboardService)
	lbHandler := handler.NewLeaderboardHandler(c.LeaderboardService, c.ScoreService)
	exportHandler := handler.NewExportHandler(c.ExportService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (token in query param)
	v1.HandleFunc("/ws/leaderboards/{id}", wsHandler.Watch).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Authenticated routes
	authed := v1.NewRoute().Subrouter()
	authed.Use(authMW.Require)

	authed.HandleFunc("/auth/me", authHandler.Me).Methods("GET", "OPTIONS")
	authed.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	authed.HandleFunc("/roster/tree", rosterHandler.Tree).Methods("GET", "POST", "OPTIONS")
	authed.HandleFunc("/roster/selection", rosterHandler.Apply).Methods("POST", "OPTIONS")
	authed.HandleFunc("/roster/targets", rosterHandler.Targets).Methods("POST", "OPTIONS")

	authed.HandleFunc("/leaderboards", lbHandler.List).Methods("GET", "OPTIONS")
	authed.HandleFunc("/leaderboards", lbHandler.Create).Methods("POST", "OPTIONS")
	authed.HandleFunc("/leaderboards/editor/defaults", lbHandler.Editor).Methods("GET", "OPTIONS")
	authed.HandleFunc("/leaderboards/{id}", lbHandler.Get).Methods("GET", "OPTIONS")
	authed.HandleFunc("/leaderboards/{id}", lbHandler.Update).Methods("PUT", "OPTIONS")
	authed.HandleFunc("/leaderboards/{id}", lbHandler.Delete).Methods("DELETE", "OPTIONS")
	authed.HandleFunc("/leaderboards/{id}/editor", lbHandler.Editor).Methods("GET", "OPTIONS")

	authed.HandleFunc("/export/defaults", exportHandler.Defaults).Methods("GET", "OPTIONS")
	authed.HandleFunc("/export/data", exportHandler.LoadData).Methods("POST", "OPTIONS")
	authed.HandleFunc("/export/xlsx", exportHandler.Download).Methods("POST", "OPTIONS")
	authed.HandleFunc("/export/percentage", exportHandler.Percentage).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
