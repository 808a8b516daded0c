package config_test

import (
	"errors"
	"fmt"

	"github.com/wonny/quantrisk/pkg/config"
)

// Example 환경 설정 로드와 DB 소스 사용 가능 여부 확인
func Example() {
	cfg, err := config.Load()
	if err != nil {
		// 형식이 잘못된 환경변수는 한 번에 모아서 보고된다
		fmt.Printf("invalid environment: %v\n", err)
		return
	}

	fmt.Printf("env=%s port=%s rate=%.1f rps\n", cfg.Env, cfg.Port, cfg.RateLimit.RPS)
	if cfg.AnalysisConfigPath != "" {
		fmt.Printf("analysis config: %s\n", cfg.AnalysisConfigPath)
	}

	if err := cfg.RequireDatabase(); errors.Is(err, config.ErrDatabaseNotConfigured) {
		fmt.Println("CSV sources only")
	}
}
