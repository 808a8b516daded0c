package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/quantrisk/pkg/config"
)

// Logger zerolog 기반 구조화 로거
// ⭐ SSOT: 모든 로깅은 이 패키지를 통해서만 수행
type Logger struct {
	zlog zerolog.Logger
}

// New 설정 기반 Logger 생성
// stdout은 CLI 결과 출력용이므로 로그는 stderr로 보낸다
func New(cfg *config.Config) *Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter w로 출력하는 Logger 생성
// ⭐ SSOT: zerolog 인스턴스는 여기서만 생성
// 레벨은 인스턴스 단위 (전역 레벨을 건드리지 않는다)
func NewWithWriter(cfg *config.Config, w io.Writer) *Logger {
	zlog := zerolog.New(writerFor(cfg.LogFormat, w)).
		Level(parseLogLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// Nop 출력하지 않는 Logger (테스트, 라이브러리 기본값)
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func writerFor(format string, w io.Writer) io.Writer {
	switch strings.ToLower(format) {
	case "console", "pretty", "text":
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return w
	}
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Level 현재 로그 레벨
func (l *Logger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zlog.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zlog.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// Warnf 포맷 경고 (undefined 윈도우 개수 등)
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// WithField 필드 하나를 추가한 Logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields 여러 필드를 추가한 Logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError error 필드를 추가한 Logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// WithRun 분석 실행 식별자(run_id, analysis_id)를 붙인 Logger
// 같은 실행에서 나온 로그를 설정 해시/스냅샷과 연결할 때 사용
func (l *Logger) WithRun(runID, analysisID string) *Logger {
	return &Logger{zlog: l.zlog.With().
		Str("run_id", runID).
		Str("analysis_id", analysisID).
		Logger()}
}

// Component 컴포넌트 이름이 붙은 zerolog sub-logger
// 이벤트 필드를 체이닝해야 하는 엔진/리포터용
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}
