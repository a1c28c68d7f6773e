package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mikeboe/research-assistant/pkg/clients"
	"github.com/mikeboe/research-assistant/pkg/config"
	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/llm"
	"github.com/mikeboe/research-assistant/pkg/research"
	"github.com/mikeboe/research-assistant/pkg/server"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load(config.NewViper())
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(server.NewContextHandler(cfg.LogHandler(os.Stdout)))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := clients.New(ctx, cfg.LLMOptions())
	if err != nil {
		logger.Error("Failed to init language model", "error", err)
		os.Exit(1)
	}

	searcher := literature.New(literature.Config{
		APIKey:     cfg.NCBIAPIKey,
		Email:      cfg.NCBIEmail,
		HTTPClient: &http.Client{Timeout: cfg.LiteratureTimeout},
		Logger:     logger,
	})
	engine := research.NewEngine(
		research.Config{MaxResults: cfg.MaxResults},
		llm.NewAdapter(model, logger),
		searcher,
		logger,
	)
	handler := server.NewHandler(server.NewService(engine, searcher, cfg.MaxResults, logger))

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(server.RequestID(), server.RequestLogger(logger), server.Recovery(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", server.HeaderRequestID, "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", server.HeaderRequestID, "Mcp-Session-Id"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "provider", cfg.LLMProvider, "origins", cfg.AllowedOrigins)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
}
