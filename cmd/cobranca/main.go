package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cobrancapro/cobranca-pro-go/internal/config"
	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
	"github.com/cobrancapro/cobranca-pro-go/internal/handler"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/cache"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/client"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/fiscal"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/jsonstore"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/observability"
	"github.com/cobrancapro/cobranca-pro-go/internal/infra/resilience"
	"github.com/cobrancapro/cobranca-pro-go/internal/port"
	"github.com/cobrancapro/cobranca-pro-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_dir", cfg.DataDir),
		zap.String("fiscal_api_url", cfg.FiscalAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cobranca-pro")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, err := jsonstore.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open data store", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	// --- Cache ---
	clienteCache := cache.New[domain.Cliente](cfg.CacheTTL)
	defer clienteCache.Close()

	// --- Fiscal provider ---
	var provider port.FiscalProvider
	if cfg.FiscalAPIURL != "" {
		resilienceCfg := resilience.Config{
			MaxRetries:          cfg.MaxRetries,
			InitialBackoff:      cfg.InitialBackoff,
			MaxConcurrency:      cfg.MaxConcurrency,
			BreakerWindow:       cfg.BreakerWindow,
			BreakerCooldown:     cfg.BreakerCooldown,
			BreakerMinRequests:  cfg.BreakerMinRequests,
			BreakerFailureRatio: cfg.BreakerFailureRatio,
		}
		cb := resilience.NewCircuitBreaker("fiscal-gateway", resilienceCfg)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		provider = client.NewFiscalClient(httpClient, cfg.FiscalAPIURL, cb, resilienceCfg)
		logger.Info("using fiscal gateway for authorization", zap.String("url", cfg.FiscalAPIURL))
	} else {
		provider = fiscal.NewSimulator()
		logger.Info("using local fiscal simulator")
	}

	// --- Services ---
	clientes := service.NewClienteService(store, clienteCache, metrics, logger)
	cobrancas := service.NewCobrancaService(store, metrics, logger)
	pagamentos := service.NewPagamentoService(store, metrics, logger)
	notas := service.NewNotaFiscalService(store, provider, metrics, logger)
	relatorios := service.NewRelatorioService(cobrancas, pagamentos, notas, metrics, logger)

	var authSvc *service.AuthService
	if cfg.AuthPassword != "" {
		authSvc, err = service.NewAuthService(cfg.AuthUser, cfg.AuthPassword, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		if err != nil {
			logger.Fatal("failed to init auth service", zap.Error(err))
		}
		logger.Info("auth enabled, mutating routes require a token", zap.String("user", cfg.AuthUser))
	} else {
		logger.Warn("AUTH_PASSWORD not set, API runs without authentication")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Clientes:   clientes,
		Cobrancas:  cobrancas,
		Pagamentos: pagamentos,
		Notas:      notas,
		Relatorios: relatorios,
		Auth:       authSvc,
	}, store, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
