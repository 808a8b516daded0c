package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrDatabaseNotConfigured DATABASE_URL 미설정 (DB 소스 사용 시에만 필요)
var ErrDatabaseNotConfigured = errors.New("DATABASE_URL is required for database sources")

var (
	validEnvs       = map[string]bool{"development": true, "staging": true, "production": true, "test": true}
	validLogFormats = map[string]bool{"json": true, "console": true, "pretty": true, "text": true}
)

// Config 프로세스 환경 설정
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
// 분석 파라미터(윈도우, 콘 폭 등)는 internal/analysisconfig의 YAML에서 관리
type Config struct {
	Port string
	Env  string // development, staging, production, test

	Database  DatabaseConfig  // 선택: --source db 에서만 필요
	RateLimit RateLimitConfig // /api 요청 제한

	AnalysisConfigPath string // ANALYSIS_CONFIG, 비어 있으면 기본 분석 설정

	LogLevel  string
	LogFormat string // json, console
}

// DatabaseConfig PostgreSQL 연결 풀 설정
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RateLimitConfig API 요청 제한 (token bucket)
type RateLimitConfig struct {
	RPS   float64 // 초당 허용 요청 수 (0 이하 = 제한 없음)
	Burst int
}

// Load .env(있으면)와 환경변수에서 설정을 읽는다
// 숫자/기간 형식이 잘못된 값은 기본값으로 넘기지 않고 에러로 보고
func Load() (*Config, error) {
	loadEnvFile()

	env := &envReader{}
	cfg := &Config{
		Port: env.getStr("PORT", "8080"),
		Env:  env.getStr("ENV", "development"),

		Database: DatabaseConfig{
			URL:             env.getStr("DATABASE_URL", ""),
			MaxConns:        env.getInt("DB_MAX_CONNS", 10),
			MinConns:        env.getInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: env.getDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: env.getDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		RateLimit: RateLimitConfig{
			RPS:   env.getFloat("API_RATE_LIMIT_RPS", 20),
			Burst: env.getInt("API_RATE_LIMIT_BURST", 40),
		},

		AnalysisConfigPath: env.getStr("ANALYSIS_CONFIG", ""),

		LogLevel:  env.getStr("LOG_LEVEL", "info"),
		LogFormat: env.getStr("LOG_FORMAT", "json"),
	}

	if err := errors.Join(append(env.errs, cfg.validate())...); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// RequireDatabase DB 소스를 쓰는 명령에서 호출
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrDatabaseNotConfigured
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if !validEnvs[c.Env] {
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production, test (got %q)", c.Env))
	}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.LogFormat))
	}
	if c.Database.MaxConns < 1 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be >= 1"))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) must be <= DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("API_RATE_LIMIT_BURST must be >= 1 when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}

// loadEnvFile 현재 디렉토리, 실행 파일 위치 순으로 첫 .env만 로드
// 이미 설정된 환경변수는 덮어쓰지 않는다
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, ".env"), filepath.Join(dir, "..", ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// envReader 환경변수 파싱 에러를 모아서 한 번에 보고
type envReader struct {
	errs []error
}

func (e *envReader) getStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) getInt(key string, def int) int {
	return parseEnv(e, key, def, strconv.Atoi)
}

func (e *envReader) getFloat(key string, def float64) float64 {
	return parseEnv(e, key, def, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func (e *envReader) getDuration(key string, def time.Duration) time.Duration {
	return parseEnv(e, key, def, time.ParseDuration)
}

func parseEnv[T any](e *envReader, key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
		return def
	}
	return v
}
