package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mnoushir/site-assistant/internal/api"
	"github.com/mnoushir/site-assistant/internal/assistant"
	"github.com/mnoushir/site-assistant/internal/backend"
	"github.com/mnoushir/site-assistant/internal/config"
	"github.com/mnoushir/site-assistant/internal/profile"
	"github.com/mnoushir/site-assistant/internal/websocket"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load .env if present (deployment environments set real variables)
	_ = godotenv.Load()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Environment override for the backend URL, mirroring the front end's
	// deployment convention
	if envURL := os.Getenv("SITE_ASSISTANT_BACKEND_URL"); envURL != "" {
		cfg.Backend.BaseURL = envURL
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting site assistant server",
		logger.String("version", Version),
		logger.String("backend_url", cfg.Backend.BaseURL),
	)

	// Load the read-only profile record
	prof, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		log.Error("Failed to load profile", logger.Error(err), logger.String("path", cfg.Profile.Path))
		os.Exit(1)
	}
	log.Info("Profile loaded", logger.String("name", prof.Name))

	// Create backend client
	backendClient := backend.NewClient(cfg.Backend, log)

	// Create WebSocket event hub
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Create session manager
	manager := assistant.NewManager(cfg.Assistant, cfg.Booking, prof, backendClient, wsServer, log)

	// Create API router
	router := api.NewRouter(manager, wsServer, cfg, log)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}
	if len(cfg.Server.AdditionalPorts) > 0 {
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Close sessions first so no new backend calls start
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down session manager", logger.Error(err))
	} else {
		log.Info("Session manager stopped.")
	}

	// Shutdown all HTTP servers
	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("Server fully stopped")
}
