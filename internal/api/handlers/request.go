package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wonny/quantrisk/internal/analysisconfig"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// maxBodyBytes 요청 본문 상한 (약 10년치 일별 시계열 여러 개)
const maxBodyBytes = 8 << 20

var errBadRequest = errors.New("bad request")

// SeriesPoint API 입력 시계열의 한 점
type SeriesPoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD 또는 RFC3339
	Value float64 `json:"value"`
}

// AnalysisRequest 분석 API 공통 요청 본문
type AnalysisRequest struct {
	Name      string                   `json:"name,omitempty"`
	Kind      string                   `json:"kind,omitempty"` // returns(기본) | prices
	Returns   []SeriesPoint            `json:"returns"`
	Benchmark []SeriesPoint            `json:"benchmark,omitempty"`
	Factors   map[string][]SeriesPoint `json:"factors,omitempty"`
	Config    json.RawMessage          `json:"config,omitempty"` // 서버 기본 설정 위에 덮어쓸 값
}

// analysisInput 검증/변환이 끝난 요청
type analysisInput struct {
	name      string
	returns   timeseries.ReturnSeries
	benchmark timeseries.ReturnSeries
	factors   map[string]timeseries.ReturnSeries
	config    *analysisconfig.Config
}

func decodeRequest(w http.ResponseWriter, r *http.Request, defaults *analysisconfig.Config) (*analysisInput, error) {
	var req AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", errBadRequest)
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	in := &analysisInput{name: req.Name, config: defaults}
	if len(req.Config) > 0 && string(req.Config) != "null" {
		cfg, err := analysisconfig.Overlay(defaults, req.Config)
		if err != nil {
			if errors.Is(err, timeseries.ErrInvalidConfig) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: config: %v", errBadRequest, err)
		}
		in.config = cfg
	}

	var err error
	switch req.Kind {
	case "", "returns":
		in.returns, err = toReturns("returns", req.Returns)
	case "prices":
		in.returns, err = pricesToReturns(req.Returns)
	default:
		err = fmt.Errorf("%w: unknown kind %q (valid: returns, prices)", errBadRequest, req.Kind)
	}
	if err != nil {
		return nil, err
	}
	if in.returns.Len() == 0 {
		return nil, fmt.Errorf("%w: returns is empty", errBadRequest)
	}

	if len(req.Benchmark) > 0 {
		if in.benchmark, err = toReturns("benchmark", req.Benchmark); err != nil {
			return nil, err
		}
	}
	if len(req.Factors) > 0 {
		in.factors = make(map[string]timeseries.ReturnSeries, len(req.Factors))
		for name, points := range req.Factors {
			if in.factors[name], err = toReturns("factor "+name, points); err != nil {
				return nil, err
			}
		}
	}
	return in, nil
}

func toPoints(field string, in []SeriesPoint) ([]timeseries.Point, error) {
	points := make([]timeseries.Point, len(in))
	for i, p := range in {
		t, err := timeseries.ParseDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: invalid date %q", errBadRequest, field, i, p.Date)
		}
		points[i] = timeseries.Point{Time: t, Value: p.Value}
	}
	return points, nil
}

func toReturns(field string, in []SeriesPoint) (timeseries.ReturnSeries, error) {
	points, err := toPoints(field, in)
	if err != nil {
		return timeseries.ReturnSeries{}, err
	}
	rs, err := timeseries.NewReturnSeries(points)
	if err != nil {
		return timeseries.ReturnSeries{}, fmt.Errorf("%s: %w", field, err)
	}
	return rs, nil
}

func pricesToReturns(in []SeriesPoint) (timeseries.ReturnSeries, error) {
	points, err := toPoints("returns", in)
	if err != nil {
		return timeseries.ReturnSeries{}, err
	}
	prices, err := timeseries.NewValueSeries(points)
	if err != nil {
		return timeseries.ReturnSeries{}, fmt.Errorf("prices: %w", err)
	}
	return prices.PctChange(), nil
}
