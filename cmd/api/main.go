// Package main is the entry point for the contact-form relay server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/formgate/internal/api"
	"github.com/onnwee/formgate/internal/audit"
	"github.com/onnwee/formgate/internal/config"
	"github.com/onnwee/formgate/internal/gate"
	"github.com/onnwee/formgate/internal/health"
	"github.com/onnwee/formgate/internal/middleware"
	"github.com/onnwee/formgate/internal/telegram"
	"github.com/onnwee/formgate/internal/verify"
)

func main() {
	configFile := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Formgate: contact-form relay server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	metrics := middleware.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Rate-limit store: Redis when configured, a per-process in-memory
	// fallback otherwise.
	var (
		store       middleware.RateLimitStore
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		store = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(metrics)
		logger.Info("using redis rate-limit store", "addr", opts.Addr)
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		store = memStore
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		logger.Info("using in-memory rate-limit store")
	}

	var auditLog audit.Logger = audit.NopLogger{}
	if cfg.LogFile != "" {
		fileLog := audit.NewFileLogger(cfg.LogFile, cfg.LogMaxSizeMB)
		defer func() {
			if err := fileLog.Close(); err != nil {
				logger.Error("failed to close audit log", "error", err)
			}
		}()
		auditLog = fileLog
	} else {
		logger.Warn("audit logging disabled, LOG_FILE is empty")
	}

	verifier := verify.NewClient(cfg.RecaptchaSecret, cfg.RecaptchaThreshold)
	sender := telegram.NewClient(cfg.BotToken, cfg.ChatID, cfg.MessageThreadID)
	formGate := gate.New(cfg.EffectiveAllowedDomains(), cfg.MinSubmitSeconds)

	contact := api.NewContactHandlers(formGate, verifier, sender, auditLog, metrics)

	healthConfig := api.HealthHandlersConfig{TelegramChecker: sender}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	rateLimit := middleware.RateLimiter(store, middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitRequests,
		WindowDuration:    time.Duration(cfg.RateLimitWindowMinutes) * time.Minute,
	}, middleware.IPKeyFunc(), metrics)

	mux := http.NewServeMux()
	mux.Handle("/includes/send-telegram", rateLimit(http.HandlerFunc(contact.HandleSendTelegram)))
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found.")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"formgate","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Recovery -> RequestID -> Logging -> HTTPMetrics -> mux
	handler := middleware.Recovery(logger)(
		middleware.RequestID(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(metrics)(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}

	logger.Info("server stopped")
}
