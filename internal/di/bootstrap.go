package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecosync/bill-server-go/internal/audit"
	"github.com/ecosync/bill-server-go/internal/bill"
	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/gemini"
	"github.com/ecosync/bill-server-go/internal/guard"
	"github.com/ecosync/bill-server-go/internal/handler"
	"github.com/ecosync/bill-server-go/internal/metrics"
	"github.com/ecosync/bill-server-go/internal/server"
	"github.com/ecosync/bill-server-go/internal/session"
	"github.com/ecosync/bill-server-go/internal/usage"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
func InitializeApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	cfg.LogEnvStatus()

	metricsStore := metrics.NewStore(prometheus.DefaultRegisterer)

	usageRepository := usage.NewRepository(cfg, logger)
	usageRecorder := usage.NewRecorder(cfg, usageRepository, logger)

	geminiClient, err := gemini.NewClient(cfg, metricsStore, usageRecorder)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	injectionGuard, err := guard.NewGuard(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	engine, err := bill.NewEngine(geminiClient, logger)
	if err != nil {
		return nil, fmt.Errorf("bill engine: %w", err)
	}

	sessionStore, err := session.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	sessionManager := session.NewManager(sessionStore, geminiClient, cfg, logger)
	auditRepository := audit.NewRepository(cfg, logger)

	billHandler := handler.NewBillHandler(cfg, engine, sessionManager, auditRepository, logger)
	chatHandler := handler.NewChatHandler(cfg, sessionManager, injectionGuard, logger)
	analysesHandler := handler.NewAnalysesHandler(auditRepository, logger)
	usageHandler := handler.NewUsageHandler(cfg, usageRepository, logger)

	router := handler.NewRouter(cfg, logger, billHandler, chatHandler, analysesHandler, usageHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, sessionStore, usageRepository, usageRecorder, auditRepository), nil
}
