package di

import (
	"log/slog"
	"net/http"

	"github.com/ecosync/bill-server-go/internal/audit"
	"github.com/ecosync/bill-server-go/internal/config"
	"github.com/ecosync/bill-server-go/internal/session"
	"github.com/ecosync/bill-server-go/internal/usage"
)

// App: 애플리케이션 구성 요소를 묶는다.
type App struct {
	Server          *http.Server
	Logger          *slog.Logger
	Config          *config.Config
	SessionStore    *session.Store
	UsageRepository *usage.Repository
	UsageRecorder   *usage.Recorder
	AuditRepository *audit.Repository
}

// NewApp: App 인스턴스를 생성합니다.
func NewApp(
	server *http.Server,
	logger *slog.Logger,
	cfg *config.Config,
	sessionStore *session.Store,
	usageRepository *usage.Repository,
	usageRecorder *usage.Recorder,
	auditRepository *audit.Repository,
) *App {
	return &App{
		Server:          server,
		Logger:          logger,
		Config:          cfg,
		SessionStore:    sessionStore,
		UsageRepository: usageRepository,
		UsageRecorder:   usageRecorder,
		AuditRepository: auditRepository,
	}
}

// Close: 앱 리소스를 정리합니다.
func (a *App) Close() {
	if a.SessionStore != nil {
		a.SessionStore.Close()
	}
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
	if a.UsageRepository != nil {
		a.UsageRepository.Close()
	}
	if a.AuditRepository != nil {
		a.AuditRepository.Close()
	}
}
