package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmhand/internal/api"
	"farmhand/internal/assistant"
	"farmhand/internal/auth"
	"farmhand/internal/chat"
	"farmhand/internal/config"
	"farmhand/internal/knowledge"
	"farmhand/internal/logging"
	"farmhand/internal/plant"
	"farmhand/internal/prefs"
	"farmhand/internal/store"
	"farmhand/internal/voice"
	"farmhand/internal/weather"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logging. Debug output goes to a rotating file when
	// enabled; the console stays at the configured level.
	level := logging.ParseLevel(cfg.Logging.Level)
	var output io.Writer = os.Stdout
	if cfg.Logging.DebugEnabled {
		fileWriter, err := logging.NewFileWriter(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		if err != nil {
			log.Printf("Debug log file unavailable: %v", err)
		} else {
			defer fileWriter.Close()
			output = logging.NewMultiWriter(os.Stdout, fileWriter, true)
		}
	}
	logger := logging.NewLogger("main", level, output)
	logger.Info("Starting Farmhand v%s...", version)

	newLogger := func(component string) *logging.Logger {
		return logging.NewLogger(component, level, output)
	}

	// Initialize persistence. An empty database path disables it and
	// the app runs with in-memory conversations only.
	var st *store.Store
	if cfg.Storage.DatabasePath != "" {
		st, err = store.NewStore(cfg.Storage.DatabasePath)
		if err != nil {
			logger.Error("Failed to initialize store: %v", err)
			os.Exit(1)
		}
		defer st.Close()
		logger.Info("Database initialized at %s", cfg.Storage.DatabasePath)
	} else {
		logger.Warn("No database path configured, persistence disabled")
	}

	prefStore, err := prefs.NewStore(cfg.Storage.PreferencesPath)
	if err != nil {
		logger.Error("Failed to initialize preferences: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the provider clients
	weatherClient := weather.NewClient(cfg.Weather, newLogger("weather"))
	plantClient := plant.NewClient(cfg.Plant, newLogger("plant"))
	assistantClient := assistant.NewClient(cfg.Assistant, newLogger("assistant"))
	logger.Info("Provider clients initialized")

	// Initialize the knowledge base when persistence is available
	var ingester *knowledge.Ingester
	var searcher *knowledge.Searcher
	if st != nil {
		knowledgeLogger := newLogger("knowledge")
		chunker := knowledge.NewChunker(200, 40)
		ingester = knowledge.NewIngester(st, chunker, cfg.Knowledge, knowledgeLogger)
		searcher = knowledge.NewSearcher(&searchStoreAdapter{store: st}, knowledgeLogger)

		folderWatcher, err := knowledge.NewWatcher(ingester, st, cfg.Knowledge, knowledgeLogger)
		if err != nil {
			logger.Warn("Guide folder watcher unavailable: %v", err)
		} else if err := folderWatcher.Start(ctx); err != nil {
			logger.Warn("Guide folder watcher not started: %v", err)
		}
	}

	// Initialize authentication
	var authenticator *auth.Authenticator
	if cfg.Auth.Enabled {
		if st == nil {
			logger.Error("Authentication requires a database")
			os.Exit(1)
		}
		authenticator = auth.NewAuthenticator(&authStoreAdapter{store: st}, cfg.Auth.SessionExpiryDays, newLogger("auth"))
		if cfg.Auth.AdminUser != "" && cfg.Auth.AdminPassword != "" {
			if err := authenticator.SeedAdmin(ctx, cfg.Auth.AdminUser, cfg.Auth.AdminPassword); err != nil {
				logger.Error("Failed to seed admin account: %v", err)
				os.Exit(1)
			}
		}
		logger.Info("Authentication enabled")

		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := st.CleanupExpiredTokens(ctx); err != nil {
						logger.Warn("Token cleanup failed: %v", err)
					}
				}
			}
		}()
	}

	// Initialize the websocket hub before the orchestrator so voice
	// follow-ups can be published to connected clients.
	hub := api.NewWebSocketHub()
	go hub.Run()

	// Initialize the chat orchestrator
	orchestratorOpts := []chat.Option{
		chat.WithInactivityPrompt(
			time.Duration(cfg.Voice.InactivitySecs)*time.Second,
			func(ctx context.Context, text, language string) {
				hub.Broadcast("speak", text)
			},
		),
	}
	if st != nil {
		orchestratorOpts = append(orchestratorOpts, chat.WithRecorder(&recorderAdapter{store: st, logger: newLogger("recorder")}))
	}
	if searcher != nil {
		orchestratorOpts = append(orchestratorOpts, chat.WithContextProvider(&contextAdapter{searcher: searcher}))
	}
	orchestrator := chat.NewOrchestrator(assistantClient, weatherClient, plantClient, prefStore, newLogger("chat"), orchestratorOpts...)
	defer orchestrator.Close()
	logger.Info("Chat orchestrator initialized")

	// Initialize voice. The recognizer stays nil without credentials
	// and sessions report voice input as unavailable.
	voiceLogger := newLogger("voice")
	speaker := voice.NewSpeaker(cfg.Voice, voiceLogger)
	var recognizer voice.Recognizer
	if transcriber := voice.NewTranscriber(cfg.Voice, voiceLogger); transcriber != nil {
		recognizer = transcriber
	}
	newVoice := func() *voice.Session {
		return voice.NewSession(recognizer, speaker, cfg.Voice.ContinuousSessions, voiceLogger)
	}

	// Initialize the API server with adapters
	var apiStore api.Store
	if st != nil {
		apiStore = &apiStoreAdapter{store: st}
	}
	var apiIngester api.Ingester
	if ingester != nil {
		apiIngester = ingester
	}
	apiConfig := &api.ServerConfig{
		AuthEnabled:     cfg.Auth.Enabled,
		ContinuousVoice: cfg.Voice.ContinuousSessions,
	}

	apiServer := api.NewServer(
		orchestrator,
		assistantClient,
		apiIngester,
		apiStore,
		prefStore,
		authenticator,
		newVoice,
		hub,
		apiConfig,
		newLogger("api"),
	)
	logger.Info("API server initialized")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening on http://%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
		}
	}()

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	logger.Info("Farmhand stopped")
}
