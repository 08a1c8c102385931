package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sulamboard/internal/backend"
	"sulamboard/internal/config"
	"sulamboard/internal/service"
	"sulamboard/internal/session"
	"sulamboard/internal/transport/rest"
	"sulamboard/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()
	log.Printf("Backend: %s", cfg.BackendBaseURL)
	log.Printf("Poll interval: %s", cfg.PollInterval)

	// Redis connection
	redisAddr := cfg.RedisAddr
	if len(redisAddr) > 8 && redisAddr[:8] == "redis://" {
		redisAddr = redisAddr[8:]
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Backend client and session layer
	client := backend.New(cfg.BackendBaseURL)
	sessions := session.NewStore(rdb, cfg.SessionTTL)
	tokens := session.NewTokenManager(cfg.JWTSecret)

	// Initialize services
	authSvc := service.NewAuthService(client, sessions, tokens)
	lbSvc := service.NewLeaderboardService(client)
	scoreSvc := service.NewScoreService(client, rdb, 2*cfg.PollInterval)
	exportSvc := service.NewExportService(client)
	poller := service.NewPoller(scoreSvc, cfg.PollInterval)

	// Initialize WebSocket hub
	wsHub := ws.NewHub(poller)
	log.Println("WebSocket hub started")

	// Create router with container
	container := &rest.Container{
		AuthService:        authSvc,
		LeaderboardService: lbSvc,
		ScoreService:       scoreSvc,
		ExportService:      exportSvc,
		WSHub:              wsHub,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  GET  /v1/auth/me")
		log.Println("  GET/POST /v1/roster/tree")
		log.Println("  POST /v1/roster/selection")
		log.Println("  GET/POST /v1/leaderboards")
		log.Println("  GET/PUT/DELETE /v1/leaderboards/{id}")
		log.Println("  POST /v1/export/data")
		log.Println("  POST /v1/export/xlsx")
		log.Println("  WS  /v1/ws/leaderboards/{id}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
