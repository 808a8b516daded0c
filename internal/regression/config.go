package regression

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// 기본값
const (
	DefaultWindow              = 63  // 약 3개월 (영업일)
	DefaultAnnualizationFactor = 252 // 일별 수익률 기준
)

// ErrNoFactors 팩터 시계열이 하나도 없음
var ErrNoFactors = errors.New("at least one factor series is required")

// Config 롤링 회귀 설정
type Config struct {
	Window              int     `json:"window"`               // 윈도우 길이 (관측 수)
	Annualize           bool    `json:"annualize"`            // alpha(절편) 연율화 여부
	AnnualizationFactor float64 `json:"annualization_factor"` // 연율화 배수
	Workers             int     `json:"workers"`              // 0 = GOMAXPROCS
}

// DefaultConfig 기본 설정
func DefaultConfig() Config {
	return Config{
		Window:              DefaultWindow,
		Annualize:           false,
		AnnualizationFactor: DefaultAnnualizationFactor,
	}
}

// Validate 설정 검증 (윈도우와 시계열 길이 관계는 rolling에서 확인)
func (c Config) Validate() error {
	if c.Annualize && !(c.AnnualizationFactor > 0) {
		return fmt.Errorf("%w: annualization_factor must be positive, got %v",
			timeseries.ErrInvalidConfig, c.AnnualizationFactor)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", timeseries.ErrInvalidConfig, c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) scaleAlpha(alpha float64) float64 {
	if !c.Annualize || timeseries.IsUndefined(alpha) {
		return alpha
	}
	return alpha * c.AnnualizationFactor
}
