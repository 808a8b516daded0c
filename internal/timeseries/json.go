package timeseries

import "math"

// Nullable JSON 출력용 값 (Undefined/Inf → null)
// encoding/json은 NaN을 인코딩하지 못하므로 결과 타입의 MarshalJSON에서 사용한다
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ReasonText error → JSON 문자열 (nil이면 빈 문자열)
func ReasonText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
