package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// statusFor 분석 에러 → HTTP 상태 코드
//
//	400: 요청/설정 자체가 잘못됨 (정렬, 값, 설정)
//	422: 요청은 올바르나 분석 불가 (정렬 계약 위반, 데이터 부족)
//	500: 그 외
func statusFor(err error) int {
	var alignErr *timeseries.AlignmentError
	switch {
	case errors.As(err, &alignErr):
		return http.StatusUnprocessableEntity
	case timeseries.IsNonFatal(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, timeseries.ErrInvalidConfig),
		errors.Is(err, timeseries.ErrUnordered),
		errors.Is(err, timeseries.ErrInvalidValue),
		errors.Is(err, timeseries.ErrNonPositiveValue),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
