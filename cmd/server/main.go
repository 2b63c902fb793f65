package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"reviewlens/internal/analysis"
	"reviewlens/internal/app"
	"reviewlens/internal/config"
	"reviewlens/internal/server"
	"reviewlens/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	classifier := analysis.NewHuggingFaceClassifier(cfg.HuggingFaceBaseURL, cfg.HuggingFaceAPIKey, cfg.SentimentModel)
	extractor, err := analysis.NewGeminiExtractor(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("failed to init key point extractor: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:      cfg.DatabaseURL,
		Sentiment:        classifier,
		KeyPoints:        extractor,
		SentimentTimeout: cfg.SentimentTimeout(),
		KeyPointTimeout:  cfg.KeyPointTimeout(),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                       appCore,
		AllowedOrigins:            cfg.AllowedOrigins,
		TrustedProxyCIDRs:         cfg.TrustedProxyCIDRs,
		RedisAddr:                 cfg.RedisAddr,
		RedisPassword:             cfg.RedisPassword,
		AnalyzeRateLimitPerMinute: cfg.AnalyzeRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// writeTimeout leaves room for the slower capability call on a cold start,
// so an in-flight analysis is not cut off by the server itself.
func writeTimeout(cfg config.FileConfig) time.Duration {
	timeout := cfg.SentimentTimeout()
	if kp := cfg.KeyPointTimeout(); kp > timeout {
		timeout = kp
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return timeout + 15*time.Second
}
