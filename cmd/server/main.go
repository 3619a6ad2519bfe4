package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/aliexpress-price-scraper/internal/api"
	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/database"
	"github.com/maltedev/aliexpress-price-scraper/internal/events"
	"github.com/maltedev/aliexpress-price-scraper/internal/jobs"
	"github.com/maltedev/aliexpress-price-scraper/internal/scraper"
	"github.com/maltedev/aliexpress-price-scraper/internal/storage"
	"github.com/maltedev/aliexpress-price-scraper/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewRecordStore(cfg.Scraper.CacheDir)
	if err != nil {
		log.Error("failed to open record store", "error", err)
		os.Exit(1)
	}

	sinks := []scraper.RecordSink{store}

	// Database and relay are optional: without them records land on disk
	// only and no events reach the stream.
	var relay *database.Relay
	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		sinks = append(sinks, events.NewPublisher(db, log))

		if cfg.Redis.Enabled {
			redisClient := redis.NewClient(&redis.Options{
				Addr: cfg.Redis.Addr,
			})
			defer redisClient.Close()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Error("failed to connect to redis", "error", err)
				os.Exit(1)
			}

			relay = database.NewRelay(db, redisClient, log, database.RelayConfig{
				PollInterval: 5 * time.Second,
				BatchSize:    100,
			})
			go func() {
				if err := relay.Start(ctx); err != nil && err != context.Canceled {
					log.Error("relay stopped with error", "error", err)
				}
			}()
		}
	}

	b, err := browser.New(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
		ProxyServer:    cfg.Browser.ProxyServer,
	})
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	jobManager := jobs.NewManager(func() (browser.Driver, error) {
		return b.NewPage()
	}, cfg, scraper.MultiSink(sinks), log)

	go jobManager.StartWorker(ctx)

	handlers := api.NewHandlers(jobManager, store, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(relay))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", handlers.CreateJob)
		r.Get("/jobs", handlers.ListJobs)
		r.Get("/jobs/{jobID}", handlers.GetJob)
		r.Post("/jobs/{jobID}/cancel", handlers.CancelJob)
		r.Post("/resume", handlers.Resume)
		r.Get("/stats", handlers.GetStats)
		r.Get("/records", handlers.ListRecords)
		r.Get("/records/{productID}", handlers.GetRecord)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// healthHandler reports liveness plus outbox backlog when the relay runs.
func healthHandler(relay *database.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		health := map[string]interface{}{"status": "ok"}
		status := http.StatusOK

		if relay != nil {
			pendingCount, _ := relay.GetPendingCount(r.Context())
			deadLetterCount, _ := relay.GetDeadLetterCount(r.Context())
			health["outbox"] = map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			}
			if pendingCount > 1000 {
				health["status"] = "warning"
				health["message"] = "high number of pending outbox events"
			}
			if deadLetterCount > 100 {
				health["status"] = "error"
				health["message"] = "high number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	}
}
