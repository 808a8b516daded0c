package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// VaR (Value at Risk)
// =============================================================================
// 모든 VaR/CVaR는 손실을 양수로 표현한다 (0.05 = 5% 손실). 이익 구간이면 0.

// HistoricalVaR 과거 수익률 분포 기반 VaR/CVaR (Historical Simulation)
// tail = 하위 floor((1-c)·n)+1개 관측치, VaR는 tail의 최댓값, CVaR는 tail 평균
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	result := VaRResult{Confidence: confidence}
	if len(returns) == 0 {
		return result
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	cut := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if cut >= len(sorted) {
		cut = len(sorted) - 1
	}
	tail := sorted[:cut+1]

	var sum float64
	for _, r := range tail {
		sum += r
	}
	result.VaR = asLoss(tail[cut])
	result.CVaR = asLoss(sum / float64(len(tail)))
	return result
}

// NormalVaR 정규분포 가정 VaR/CVaR
// VaR = z·σ - μ, CVaR(Expected Shortfall) = σ·φ(z)/(1-c) - μ
func NormalVaR(mean, stdDev, confidence float64) VaRResult {
	result := VaRResult{Confidence: confidence}
	if confidence <= 0 || confidence >= 1 {
		return result
	}

	z := distuv.UnitNormal.Quantile(confidence)
	result.VaR = asLoss(mean - z*stdDev)
	result.CVaR = math.Max(result.VaR, stdDev*distuv.UnitNormal.Prob(z)/(1-confidence)-mean)
	return result
}

func asLoss(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}
