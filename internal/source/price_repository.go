package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// Querier database.DB / pgxpool.Pool / pgxmock 공통 조회 인터페이스
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PriceRepository 일별 종가 조회 (읽기 전용)
// ⭐ SSOT: 분석 입력은 data.daily_prices에서만 읽는다
type PriceRepository struct {
	db Querier
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db Querier) *PriceRepository {
	return &PriceRepository{db: db}
}

// Closes 종목의 [from, to] 종가 시계열
func (r *PriceRepository) Closes(ctx context.Context, code string, from, to time.Time) (timeseries.ValueSeries, error) {
	query := `
		SELECT trade_date, close_price
		FROM data.daily_prices
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(ctx, query, code, from, to)
	if err != nil {
		return timeseries.ValueSeries{}, fmt.Errorf("query prices %s: %w", code, err)
	}
	defer rows.Close()

	var points []timeseries.Point
	for rows.Next() {
		var (
			date       time.Time
			closePrice int64
		)
		if err := rows.Scan(&date, &closePrice); err != nil {
			return timeseries.ValueSeries{}, fmt.Errorf("scan price %s: %w", code, err)
		}
		points = append(points, timeseries.Point{Time: date, Value: float64(closePrice)})
	}
	if err := rows.Err(); err != nil {
		return timeseries.ValueSeries{}, fmt.Errorf("read prices %s: %w", code, err)
	}

	if len(points) == 0 {
		return timeseries.ValueSeries{}, fmt.Errorf("prices %s: %w", code, timeseries.ErrInsufficientData)
	}
	return timeseries.NewValueSeries(points)
}

// Returns 종목의 일별 단순 수익률 (첫 거래일 제외)
func (r *PriceRepository) Returns(ctx context.Context, code string, from, to time.Time) (timeseries.ReturnSeries, error) {
	closes, err := r.Closes(ctx, code, from, to)
	if err != nil {
		return timeseries.ReturnSeries{}, err
	}
	return closes.PctChange(), nil
}

// ReturnsFor 여러 종목의 수익률 (팩터 패널 구성용)
func (r *PriceRepository) ReturnsFor(ctx context.Context, codes []string, from, to time.Time) (map[string]timeseries.ReturnSeries, error) {
	out := make(map[string]timeseries.ReturnSeries, len(codes))
	for _, code := range codes {
		rs, err := r.Returns(ctx, code, from, to)
		if err != nil {
			return nil, err
		}
		out[code] = rs
	}
	return out, nil
}
