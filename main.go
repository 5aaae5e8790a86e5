package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"

	"reeltrack/api"
	"reeltrack/config"
	"reeltrack/handlers"
	"reeltrack/internal/database"
	"reeltrack/services/accounts"
	"reeltrack/services/library"
	"reeltrack/services/metadata"
	"reeltrack/services/sessions"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 reeltrack Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("REELTRACK_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.Metadata.TMDBAPIKey == "" {
		log.Println("⚠️  No TMDB API key configured; catalog search will be unavailable until one is set in settings.json")
	}

	// Storage
	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Services
	metadataSvc := metadata.NewService(settings.Metadata.TMDBAPIKey, settings.Metadata.Language, nil)
	librarySvc := library.NewService(db.Media, library.NewResolver(metadataSvc))
	accountsSvc := accounts.NewService(db.Accounts)

	sessionsPath := filepath.Join(settings.Cache.Directory, "sessions.json")
	sessionsSvc, err := sessions.NewService(sessionsPath, time.Duration(settings.Auth.SessionDurationHours)*time.Hour)
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	// Handlers and routes
	r := mux.NewRouter()
	api.Register(r,
		handlers.NewSearchMediaHandler(metadataSvc, sessionsSvc),
		handlers.NewAuthHandler(accountsSvc, sessionsSvc),
		handlers.NewLibraryHandler(librarySvc),
		sessionsSvc,
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
