package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// =============================================================================
// OLS (Pure)
// =============================================================================

// fit 회귀 한 번의 결과
type fit struct {
	intercept    float64
	coef         []float64 // 팩터 이름 정렬 순서
	observations int
	err          error // nil이 아니면 값은 모두 Undefined
}

func undefinedFit(k, observations int, err error) fit {
	coef := make([]float64, k)
	for i := range coef {
		coef[i] = timeseries.Undefined
	}
	return fit{
		intercept:    timeseries.Undefined,
		coef:         coef,
		observations: observations,
		err:          err,
	}
}

// fitOLS y = intercept + Σ coef_f · x_f
// 팩터 1개면 닫힌 형태, 여러 개면 QR 최소제곱
func fitOLS(y []float64, x [][]float64) fit {
	if len(x) == 1 {
		return fitSingle(y, x[0])
	}
	return fitMulti(y, x)
}

func fitSingle(y, x []float64) fit {
	n := len(y)
	if n < 2 {
		return undefinedFit(1, n, fmt.Errorf("%w: %d observations", timeseries.ErrInsufficientData, n))
	}
	if v := stat.Variance(x, nil); !(v > 0) {
		return undefinedFit(1, n, fmt.Errorf("%w: factor has zero variance", timeseries.ErrDegenerate))
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return fit{intercept: alpha, coef: []float64{beta}, observations: n}
}

func fitMulti(y []float64, x [][]float64) fit {
	n, k := len(y), len(x)
	if n < k+1 {
		return undefinedFit(k, n, fmt.Errorf("%w: %d observations for %d factors", timeseries.ErrInsufficientData, n, k))
	}
	for f := range x {
		if v := stat.Variance(x[f], nil); !(v > 0) {
			return undefinedFit(k, n, fmt.Errorf("%w: factor %d has zero variance", timeseries.ErrDegenerate, f))
		}
	}

	// 설계 행렬: [x_1 ... x_k | 1]
	design := mat.NewDense(n, k+1, nil)
	for i := 0; i < n; i++ {
		for f := 0; f < k; f++ {
			design.Set(i, f, x[f][i])
		}
		design.Set(i, k, 1)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(design, mat.NewVecDense(n, y)); err != nil {
		return undefinedFit(k, n, fmt.Errorf("%w: %v", timeseries.ErrDegenerate, err))
	}

	coef := make([]float64, k)
	for f := range coef {
		coef[f] = sol.AtVec(f)
	}
	intercept := sol.AtVec(k)
	if math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return undefinedFit(k, n, fmt.Errorf("%w: non-finite solution", timeseries.ErrDegenerate))
	}
	return fit{intercept: intercept, coef: coef, observations: n}
}
