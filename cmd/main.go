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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"foreman/internal/agents"
	"foreman/internal/api"
	"foreman/internal/config"
	"foreman/internal/documents"
	"foreman/internal/monitoring"
	"foreman/internal/orchestrator"
	"foreman/internal/providers"
	"foreman/internal/routing"
	"foreman/internal/storage"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Local development keeps secrets in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Server.MetricsPort = *metricsPort
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	registry, err := buildProviders(cfg)
	if err != nil {
		return fmt.Errorf("initialize providers: %w", err)
	}

	var store *storage.Store
	if cfg.Database.Dialect != "" {
		store, err = storage.Open(cfg.Database.Dialect, cfg.Database.DSN, logger)
		if err != nil {
			return fmt.Errorf("initialize audit store: %w", err)
		}
		defer store.Close()
	}

	var mirror orchestrator.Recorder
	if store != nil {
		mirror = store
	}
	kb := orchestrator.NewKnowledgeBase(mirror, logger)

	metrics := monitoring.NewMetrics()
	monitor := monitoring.NewMonitor()

	engine := routing.NewEngine(routing.DefaultConfig(), logger)

	specialists, supervisor, err := buildAgents(cfg, registry, engine, logger)
	if err != nil {
		return fmt.Errorf("initialize agents: %w", err)
	}

	orch := orchestrator.New(supervisor, specialists, kb, metrics, monitor, orchestrator.Options{
		QueueCapacity:     cfg.Agents.QueueCapacity,
		ValidateResponses: cfg.Agents.ValidateResponses,
	}, logger)
	orch.Start()
	defer orch.Stop()

	docs := documents.NewStore(logger)

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(orch, docs, store, api.Options{
		JWTSecret:    cfg.Server.JWTSecret(),
		DocumentRoot: cfg.Documents.Root,
	}, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}

	go startMetricsServer(cfg.Server.MetricsPort, metrics, logger)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("api server shutdown", "error", err)
		}
	}()

	logger.Info("starting api server", "port", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// buildProviders configures one completer per role so each role can run
// with its own model settings.
func buildProviders(cfg *config.Config) (*providers.Registry, error) {
	registry := providers.NewRegistry()
	apiKey := cfg.Provider.APIKey()

	for _, role := range agents.AllRoles() {
		m := cfg.Agents.ModelFor(role)

		var (
			completer providers.Completer
			err       error
		)
		switch cfg.Provider.Backend {
		case "azure":
			completer, err = providers.NewAzureProvider(cfg.Provider.Endpoint, apiKey, m.Model, m.Temperature, m.MaxTokens)
		default:
			completer, err = providers.NewOpenAIProvider(apiKey, cfg.Provider.BaseURL, m.Model, m.Temperature, m.MaxTokens)
		}
		if err != nil {
			return nil, fmt.Errorf("%s completer: %w", role, err)
		}

		registry.Register(string(role), completer)
	}
	return registry, nil
}

// buildAgents wires the four specialists and the supervisor to their
// role-specific completers.
func buildAgents(cfg *config.Config, registry *providers.Registry, router agents.Router, logger *slog.Logger) (map[agents.AgentRole]agents.Agent, *agents.SupervisorAgent, error) {
	window := cfg.Agents.WindowSize
	timeout := cfg.Agents.Timeout()

	completerFor := func(role agents.AgentRole) (providers.Completer, error) {
		return registry.Get(string(role))
	}

	specialists := make(map[agents.AgentRole]agents.Agent, 4)
	for _, role := range agents.Specialists() {
		completer, err := completerFor(role)
		if err != nil {
			return nil, nil, err
		}

		switch role {
		case agents.RoleInventory:
			specialists[role] = agents.NewInventoryAgent(completer, window, timeout, logger)
		case agents.RoleOperations:
			specialists[role] = agents.NewOperationsAgent(completer, window, timeout, logger)
		case agents.RoleMath:
			specialists[role] = agents.NewMathAgent(completer, window, timeout, logger)
		case agents.RoleQuality:
			specialists[role] = agents.NewQualityAgent(completer, window, timeout, logger)
		}
	}

	supCompleter, err := completerFor(agents.RoleSupervisor)
	if err != nil {
		return nil, nil, err
	}
	supervisor := agents.NewSupervisorAgent(supCompleter, router, window, timeout, logger)

	return specialists, supervisor, nil
}

func startMetricsServer(port int, metrics *monitoring.Metrics, logger *slog.Logger) {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	logger.Info("starting metrics server", "port", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("metrics server", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
