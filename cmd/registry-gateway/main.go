package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/embeddings"
	"github.com/mcp-registry/gateway/internal/federation"
	"github.com/mcp-registry/gateway/internal/health"
	"github.com/mcp-registry/gateway/internal/httpapi"
	"github.com/mcp-registry/gateway/internal/orchestrator"
	"github.com/mcp-registry/gateway/internal/proxyconfig"
	"github.com/mcp-registry/gateway/internal/scope"
	"github.com/mcp-registry/gateway/internal/search"
	"github.com/mcp-registry/gateway/internal/security"
	"github.com/mcp-registry/gateway/internal/services"
	"github.com/mcp-registry/gateway/internal/storage"
	"github.com/mcp-registry/gateway/internal/tasks"
)

func main() {
	envFile := flag.String("env", ".env", "Path to .env file (optional)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*envFile, logger); err != nil {
		logger.Fatal("registry-gateway exited with error", zap.Error(err))
	}
}

func run(envFile string, logger *zap.Logger) error {
	envPath := ""
	if _, err := os.Stat(envFile); err == nil {
		envPath = envFile
	}

	cfg, err := config.Load(envPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Info("configuration loaded",
		zap.String("storage_backend", string(cfg.StorageBackend)),
		zap.String("namespace", cfg.Namespace))

	ctx, stop := setupSignalHandler()
	defer stop()

	repos, err := storage.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building repository set: %w", err)
	}

	embeddingClient, err := embeddings.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("building embeddings client: %w", err)
	}

	indexer := search.NewIndexer(repos.Search, embeddingClient, logger)
	searchEngine := search.NewEngine(repos.Search, embeddingClient, cfg, logger)

	scanner := security.NewScanner(security.Config{
		Binary:             cfg.SecurityScannerBinary,
		Analyzers:          cfg.SecurityScannerAnalyzers,
		MaxConcurrentScans: cfg.SecurityScannerMaxConcurrentScans,
		FailOpen:           cfg.SecurityScanFailOpen,
	}, logger)
	proxyEmitter := proxyconfig.NewEmitter(cfg, logger)

	serverService := services.NewServerService(repos.Servers, repos.ScanResults, indexer, scanner, proxyEmitter, cfg, logger)
	agentService := services.NewAgentService(repos.Agents, repos.ScanResults, indexer, scanner, cfg, logger)

	resolver := scope.NewResolver(repos.Scopes, logger)

	monitor := health.NewMonitor(repos.Servers, repos.Agents, health.NewHTTPProber(), cfg.HealthCheckIntervalSeconds, cfg.HealthCheckTimeoutSeconds, logger)

	syncTimeout := time.Duration(cfg.HealthCheckTimeoutSeconds) * time.Second
	serverProtocols := map[string]federation.ServerProtocol{
		"anthropic-discovery": federation.NewAnthropicProtocol(syncTimeout, logger),
	}
	agentProtocols := map[string]federation.AgentProtocol{
		"asor": federation.NewAsorProtocol(syncTimeout, logger),
	}
	syncer := federation.NewSyncer(repos.Federation, repos.Servers, repos.Agents, indexer, serverProtocols, agentProtocols, logger)

	mgr := tasks.NewManager(logger)

	orc := orchestrator.New(repos, indexer, monitor, syncer, proxyEmitter, mgr, cfg, logger)
	if err := orc.Startup(ctx); err != nil {
		return fmt.Errorf("orchestrator startup: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Cfg:      cfg,
		Servers:  serverService,
		Agents:   agentService,
		Scopes:   repos.Scopes,
		Resolver: resolver,
		Search:   searchEngine,
		Monitor:  monitor,
		Syncer:   syncer,
		Configs:  repos.Federation,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}

	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown did not complete cleanly", zap.Error(err))
	}

	if err := orc.Shutdown(shutdownTimeout); err != nil {
		logger.Warn("orchestrator shutdown did not complete cleanly", zap.Error(err))
	}

	logger.Info("registry-gateway shutdown complete")
	return nil
}
