package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// =============================================================================
// Error Kinds
// =============================================================================

var (
	// ErrInsufficientData 계산에 필요한 최소 길이 미달 (non-fatal → Undefined)
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerate 0으로 나누기, 분산 0, 특이 행렬 등 (non-fatal → Undefined)
	ErrDegenerate = errors.New("degenerate arithmetic")

	// 생성 시점 계약 위반 (fatal)
	ErrUnordered        = errors.New("timestamps must be strictly increasing")
	ErrInvalidValue     = errors.New("value must be finite")
	ErrNonPositiveValue = errors.New("value series must stay positive")

	// ErrInvalidConfig 분석 설정 값 오류 (fatal)
	ErrInvalidConfig = errors.New("invalid config")
)

// Undefined 계산 불가 값 (NaN)
// ⭐ SSOT: "undefined" 센티널은 이 값만 사용. 원인은 함께 반환되는 error로 구분
var Undefined = math.NaN()

// IsUndefined reports whether v is the undefined sentinel.
func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}

// IsNonFatal 하위 집계를 멈추지 않아도 되는 에러인지 확인
func IsNonFatal(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrDegenerate)
}

// AlignmentError 팩터 시계열이 응답 시계열의 날짜 범위를 덮지 못함 (fatal)
// 상위 데이터 계약 위반이므로 조용히 보정하지 않는다
type AlignmentError struct {
	Factor        string
	ResponseStart time.Time
	ResponseEnd   time.Time
	FactorStart   time.Time
	FactorEnd     time.Time
}

func (e *AlignmentError) Error() string {
	if e.FactorStart.IsZero() && e.FactorEnd.IsZero() {
		return fmt.Sprintf("factor %q is empty, response covers %s ~ %s",
			e.Factor, e.ResponseStart.Format(DateLayout), e.ResponseEnd.Format(DateLayout))
	}
	return fmt.Sprintf("factor %q covers %s ~ %s, response needs %s ~ %s",
		e.Factor,
		e.FactorStart.Format(DateLayout), e.FactorEnd.Format(DateLayout),
		e.ResponseStart.Format(DateLayout), e.ResponseEnd.Format(DateLayout))
}

// CheckCoverage factor가 response의 전체 기간을 덮는지 확인
func CheckCoverage(name string, response, factor Series) error {
	if response.Len() == 0 {
		return nil
	}
	if factor.Len() == 0 {
		return &AlignmentError{
			Factor:        name,
			ResponseStart: response.First().Time,
			ResponseEnd:   response.Last().Time,
		}
	}

	rs, re := response.First().Time, response.Last().Time
	fs, fe := factor.First().Time, factor.Last().Time
	if fs.After(rs) || fe.Before(re) {
		return &AlignmentError{
			Factor:        name,
			ResponseStart: rs,
			ResponseEnd:   re,
			FactorStart:   fs,
			FactorEnd:     fe,
		}
	}
	return nil
}
