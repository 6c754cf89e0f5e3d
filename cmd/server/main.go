package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cms-collab-server/internal/cache"
	"cms-collab-server/internal/collab"
	"cms-collab-server/internal/config"
	"cms-collab-server/internal/handler"
	"cms-collab-server/internal/middleware"
	"cms-collab-server/internal/repository"
	"cms-collab-server/internal/service"
	"cms-collab-server/internal/websocket"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	redis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var store repository.Store
	if cfg.Store.Enabled {
		couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
			cfg.Store.User,
			cfg.Store.Password,
			cfg.Store.Host,
			cfg.Store.Port,
		)

		client, err := kivik.New("couch", couchURL)
		if err != nil {
			log.Fatalf("Failed to connect to CouchDB: %v", err)
		}

		exists, err := client.DBExists(context.Background(), cfg.Store.Name)
		if err != nil {
			log.Fatalf("Failed to check database existence: %v", err)
		}
		if !exists {
			if err := client.CreateDB(context.Background(), cfg.Store.Name); err != nil {
				log.Fatalf("Failed to create database: %v", err)
			}
			log.Printf("Created database: %s", cfg.Store.Name)
		}

		store = repository.NewCouchStore(client, cfg.Store.Name)
		log.Printf("Archiving to CouchDB at %s:%s", cfg.Store.Host, cfg.Store.Port)
	}

	var presenceCache cache.PresenceCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		presenceCache = cache.NewRedisPresence(rdb)
		log.Printf("Mirroring presence to Redis at %s", cfg.Redis.Addr)
	}

	hub := websocket.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	go hub.Run()

	sessionService := service.NewSessionService(
		cfg.Collab.SessionInactivityThreshold,
		cfg.Collab.PresenceStalenessWindow,
		store,
	)
	lockService := service.NewLockService()
	historyService := service.NewHistoryService(store)
	commentService := service.NewCommentService()
	conflictService := service.NewConflictService(historyService, store)

	bridge := websocket.NewBridge(cfg.WebSocket.WriteWait)

	manager := collab.NewManager(
		sessionService,
		lockService,
		historyService,
		commentService,
		conflictService,
		hub,
		bridge,
		presenceCache,
		cfg.Collab.PresenceCacheTTL,
	)

	hub.SetMessageHandler(handler.NewEnvelopeHandler(manager))

	sessionHandler := handler.NewSessionHandler(manager)
	lockHandler := handler.NewLockHandler(manager)
	changeHandler := handler.NewChangeHandler(manager)
	commentHandler := handler.NewCommentHandler(manager)
	conflictHandler := handler.NewConflictHandler(manager)
	wsHandler := handler.NewWebSocketHandler(hub, manager, cfg.JWT.Secret)
	maintenanceHandler := handler.NewMaintenanceHandler(manager)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.IdentityMiddleware(cfg.JWT.Secret))

	api.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions", sessionHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/sessions/{id}/join", sessionHandler.Join).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/leave", sessionHandler.Leave).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/presence", sessionHandler.GetPresences).Methods("GET", "OPTIONS")
	api.HandleFunc("/sessions/{id}/presence", sessionHandler.UpdatePresence).Methods("PUT", "OPTIONS")
	api.HandleFunc("/sessions/{id}/presence/cleanup", sessionHandler.CleanupPresences).Methods("POST", "OPTIONS")

	api.HandleFunc("/locks", lockHandler.Acquire).Methods("POST", "OPTIONS")
	api.HandleFunc("/locks", lockHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/locks/{id}", lockHandler.Release).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/changes", changeHandler.Record).Methods("POST", "OPTIONS")
	api.HandleFunc("/changes", changeHandler.History).Methods("GET", "OPTIONS")

	api.HandleFunc("/comments", commentHandler.Add).Methods("POST", "OPTIONS")
	api.HandleFunc("/comments", commentHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/comments/{id}", commentHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/comments/{id}/resolve", commentHandler.Resolve).Methods("POST", "OPTIONS")

	api.HandleFunc("/conflicts/detect", conflictHandler.Detect).Methods("POST", "OPTIONS")
	api.HandleFunc("/conflicts/{id}", conflictHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/conflicts/{id}/resolve", conflictHandler.Resolve).Methods("POST", "OPTIONS")

	api.HandleFunc("/maintenance/sweep", maintenanceHandler.Sweep).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", healthHandler).Methods("GET")

	// Sweep driver. The services never run their own timers; this
	// ticker is the embedding host's scheduler.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Collab.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				manager.Sweep()
			case <-sweepDone:
				return
			}
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting collaboration server on %s (env: %s)", addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	close(sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"cms-collab-server"}`))
}
