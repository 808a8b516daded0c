package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantrisk/pkg/config"
)

// pingTimeout 연결 직후 확인용
const pingTimeout = 5 * time.Second

// DB pgxpool.Pool 래퍼
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New 연결 풀 생성 후 ping으로 확인
// ⭐ SSOT: 유일하게 pgxpool.NewWithConfig()를 호출하는 함수
// DATABASE_URL이 없으면 config.ErrDatabaseNotConfigured
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	poolConfig, err := poolConfigFor(cfg.Database)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func poolConfigFor(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	return poolConfig, nil
}

// Close 풀 종료 (중복 호출 안전)
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Query source.Querier 구현 (가격 리포지토리가 DB를 직접 받는다)
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.Pool.Query(ctx, sql, args...)
}

// Ping DB 접근 가능 여부
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthStatus 연결 상태와 가격 테이블 존재 여부
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	PriceTable   bool          `json:"price_table"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// HealthCheck ping 응답 시간과 daily_prices 테이블 존재 여부 확인
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{Timestamp: time.Now()}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	var table *string
	if err := db.Pool.QueryRow(ctx, "SELECT to_regclass('data.daily_prices')::text").Scan(&table); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("check price table: %w", err)
	}
	status.PriceTable = table != nil
	status.Stats = db.Stats()
	status.Healthy = true
	return status, nil
}

// PoolStats 연결 풀 통계
type PoolStats struct {
	MaxConns        int32         `json:"max_conns"`
	TotalConns      int32         `json:"total_conns"`
	IdleConns       int32         `json:"idle_conns"`
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration"`
}

// Stats 현재 풀 통계
func (db *DB) Stats() PoolStats {
	stats := db.Pool.Stat()
	return PoolStats{
		MaxConns:        stats.MaxConns(),
		TotalConns:      stats.TotalConns(),
		IdleConns:       stats.IdleConns(),
		AcquireCount:    stats.AcquireCount(),
		AcquireDuration: stats.AcquireDuration(),
	}
}
