package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ecosync/bill-server-go/internal/config"
)

// Store: 분석 이력 저장소 인터페이스입니다.
type Store interface {
	SaveAnalysis(ctx context.Context, analysis *BillAnalysis) error
	ListAnalyses(ctx context.Context, userID string, limit int) ([]BillAnalysis, error)
	Close()
}

var _ Store = (*Repository)(nil)

// Repository 는 분석 이력 DB 접근을 담당한다.
// usage 저장소와 같은 방식으로 최초 사용 시 연결을 지연 수립한다.
type Repository struct {
	cfg    *config.Config
	logger *slog.Logger
	mu     sync.Mutex
	db     *gorm.DB
	sqlDB  *sql.DB
}

// NewRepository 는 분석 이력 저장소를 생성한다.
func NewRepository(cfg *config.Config, logger *slog.Logger) *Repository {
	return &Repository{
		cfg:    cfg,
		logger: logger,
	}
}

// SaveAnalysis 는 분석 결과 1건을 저장한다.
func (r *Repository) SaveAnalysis(ctx context.Context, analysis *BillAnalysis) error {
	if analysis == nil {
		return errors.New("analysis is nil")
	}

	db, err := r.getDB(ctx)
	if err != nil {
		return err
	}

	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now()
	}
	return db.WithContext(ctx).Create(analysis).Error
}

// ListAnalyses 는 최근 분석 이력을 조회한다. userID 가 비어 있으면 전체를 조회한다.
func (r *Repository) ListAnalyses(ctx context.Context, userID string, limit int) ([]BillAnalysis, error) {
	db, err := r.getDB(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var rows []BillAnalysis
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Close 는 DB 연결을 닫는다.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sqlDB == nil {
		return
	}
	_ = r.sqlDB.Close()
	r.sqlDB = nil
	r.db = nil
}

func (r *Repository) getDB(ctx context.Context) (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	if r.cfg == nil {
		return nil, errors.New("database config is nil")
	}

	dsn := r.cfg.Database.DSN()
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if schemaErr := ensureAuditSchema(db); schemaErr != nil {
		return nil, fmt.Errorf("prepare audit db: %w", schemaErr)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get audit db handle: %w", err)
	}

	sqlDB.SetMaxIdleConns(r.cfg.Database.MinPool)
	sqlDB.SetMaxOpenConns(r.cfg.Database.MaxPool)
	if r.cfg.Database.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(r.cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)
	}
	if r.cfg.Database.ConnMaxIdleTimeMinutes > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(r.cfg.Database.ConnMaxIdleTimeMinutes) * time.Minute)
	}

	if r.logger != nil {
		r.logger.Info("audit_db_connected", "host", r.cfg.Database.Host, "name", r.cfg.Database.Name)
	}

	r.db = db
	r.sqlDB = sqlDB
	return db, nil
}

func ensureAuditSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	if err := db.Exec(`
			CREATE TABLE IF NOT EXISTS bill_analyses (
				id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL,
				filename TEXT NOT NULL DEFAULT '',
				mime_type TEXT NOT NULL DEFAULT '',
				mode TEXT NOT NULL DEFAULT 'budget',
				usage_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
				original_credits DOUBLE PRECISION NOT NULL DEFAULT 0,
				target_credits DOUBLE PRECISION NOT NULL DEFAULT 0,
				reduction_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
				parsed BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`).Error; err != nil {
		return fmt.Errorf("create bill_analyses table: %w", err)
	}

	if err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_bill_analyses_user_created
			ON bill_analyses (user_id, created_at DESC)
		`).Error; err != nil {
		return fmt.Errorf("create bill_analyses user/created index: %w", err)
	}

	return nil
}
