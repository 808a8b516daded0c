package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// Kind 입력 값의 종류
type Kind string

const (
	KindReturns Kind = "returns" // 단순 수익률
	KindPrices  Kind = "prices"  // 가격/NAV (수익률로 변환, 첫 행은 제외)
)

// ErrMalformed 입력 파일 형식 오류
var ErrMalformed = errors.New("malformed input")

// ParseKind 문자열 → Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindReturns, KindPrices:
		return k, nil
	default:
		return "", fmt.Errorf("unknown input kind %q (returns|prices)", s)
	}
}

// CSVOptions CSV 컬럼 매핑
type CSVOptions struct {
	Kind        Kind
	DateColumn  string // 기본 "date"
	ValueColumn string // 비어 있으면 날짜 컬럼이 아닌 첫 번째 컬럼
}

// DefaultCSVOptions date,value 형식의 수익률 파일
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Kind: KindReturns, DateColumn: "date"}
}

// =============================================================================
// Single Series
// =============================================================================

// LoadCSV 파일에서 수익률 시계열 로드
func LoadCSV(path string, opts CSVOptions) (timeseries.ReturnSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return timeseries.ReturnSeries{}, err
	}
	defer f.Close()

	rs, err := ReadCSV(f, opts)
	if err != nil {
		return timeseries.ReturnSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// ReadCSV 헤더가 있는 CSV → 수익률 시계열
// 가격 입력이면 PctChange로 변환한다 (길이 n-1)
func ReadCSV(r io.Reader, opts CSVOptions) (timeseries.ReturnSeries, error) {
	header, records, err := readAll(r)
	if err != nil {
		return timeseries.ReturnSeries{}, err
	}

	dateIdx, err := columnIndex(header, dateColumn(opts.DateColumn))
	if err != nil {
		return timeseries.ReturnSeries{}, err
	}
	valueIdx := -1
	if opts.ValueColumn != "" {
		if valueIdx, err = columnIndex(header, opts.ValueColumn); err != nil {
			return timeseries.ReturnSeries{}, err
		}
	} else {
		for i := range header {
			if i != dateIdx {
				valueIdx = i
				break
			}
		}
		if valueIdx < 0 {
			return timeseries.ReturnSeries{}, fmt.Errorf("%w: no value column", ErrMalformed)
		}
	}

	points := make([]timeseries.Point, 0, len(records))
	for i, rec := range records {
		line := i + 2 // 헤더 = 1행
		t, err := timeseries.ParseDate(rec[dateIdx])
		if err != nil {
			return timeseries.ReturnSeries{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valueIdx]), 64)
		if err != nil {
			return timeseries.ReturnSeries{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		points = append(points, timeseries.Point{Time: t, Value: v})
	}

	switch opts.Kind {
	case KindPrices:
		prices, err := timeseries.NewValueSeries(points)
		if err != nil {
			return timeseries.ReturnSeries{}, err
		}
		return prices.PctChange(), nil
	case KindReturns, "":
		return timeseries.NewReturnSeries(points)
	default:
		return timeseries.ReturnSeries{}, fmt.Errorf("unknown input kind %q", opts.Kind)
	}
}

// =============================================================================
// Factor Panel
// =============================================================================

// LoadFactorsCSV 파일에서 팩터 패널 로드
func LoadFactorsCSV(path string, dateCol string) (map[string]timeseries.ReturnSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	factors, err := ReadFactorsCSV(f, dateCol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return factors, nil
}

// ReadFactorsCSV date,f1,f2,... → 팩터별 수익률 시계열
// 빈 칸은 해당 팩터의 관측 없음으로 처리한다
func ReadFactorsCSV(r io.Reader, dateCol string) (map[string]timeseries.ReturnSeries, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	dateIdx, err := columnIndex(header, dateColumn(dateCol))
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: no factor columns", ErrMalformed)
	}

	columns := make(map[string][]timeseries.Point, len(header)-1)
	for i, rec := range records {
		line := i + 2
		t, err := timeseries.ParseDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		for j, cell := range rec {
			cell = strings.TrimSpace(cell)
			if j == dateIdx || cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %v", ErrMalformed, line, header[j], err)
			}
			name := header[j]
			columns[name] = append(columns[name], timeseries.Point{Time: t, Value: v})
		}
	}

	out := make(map[string]timeseries.ReturnSeries, len(columns))
	for name, points := range columns {
		rs, err := timeseries.NewReturnSeries(points)
		if err != nil {
			return nil, fmt.Errorf("factor %q: %w", name, err)
		}
		out[name] = rs
	}
	return out, nil
}

// =============================================================================
// Helpers
// =============================================================================

func readAll(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return header, rows[1:], nil
}

func dateColumn(name string) string {
	if name == "" {
		return "date"
	}
	return name
}

func columnIndex(header []string, name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: column %q not found in header %v", ErrMalformed, name, header)
}
