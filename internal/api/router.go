package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/quantrisk/internal/api/handlers"
	"github.com/wonny/quantrisk/pkg/config"
	"github.com/wonny/quantrisk/pkg/logger"
)

// NewRouter 분석 API 라우터
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(analysisHandler *handlers.AnalysisHandler, limits config.RateLimitConfig, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", analysisHandler.GetConfig).Methods("GET")
	api.HandleFunc("/drawdowns", analysisHandler.GetDrawdowns).Methods("POST")
	api.HandleFunc("/rolling-beta", analysisHandler.GetRollingBeta).Methods("POST")
	api.HandleFunc("/cone", analysisHandler.GetCone).Methods("POST")
	api.HandleFunc("/stats", analysisHandler.GetStats).Methods("POST")
	api.HandleFunc("/report", analysisHandler.GetReport).Methods("POST")

	// 분석 요청은 CPU 바운드이므로 /api 에만 rate limit
	if limits.RPS > 0 {
		api.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(limits.RPS), limits.Burst), log))
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "quantrisk-api",
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusRecorder 응답 코드를 로그에 남기기 위한 ResponseWriter 래퍼
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware 4xx/5xx는 warn, 나머지는 debug
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			entry := log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			})
			if rec.status >= http.StatusBadRequest {
				entry.Warn("HTTP request failed")
				return
			}
			entry.Debug("HTTP request")
		})
	}
}

// rateLimitMiddleware token bucket 초과 요청은 429
func rateLimitMiddleware(limiter *rate.Limiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.WithField("path", r.URL.Path).Warn("Rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recoveryMiddleware 핸들러 panic → 500
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					log.WithFields(map[string]interface{}{
						"panic": fmt.Sprint(v),
						"path":  r.URL.Path,
					}).Error("Panic recovered")
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
