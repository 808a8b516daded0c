package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/source"
	"github.com/wonny/quantrisk/internal/timeseries"
	"github.com/wonny/quantrisk/pkg/database"
)

const (
	sourceCSV = "csv"
	sourceDB  = "db"

	defaultLookbackYears = 3
)

// inputFlags 입력 시계열 플래그 (CSV 또는 DB)
type inputFlags struct {
	source string
	kind   string

	// csv
	returnsPath   string
	benchmarkPath string
	factorsPath   string
	dateCol       string
	valueCol      string

	// db
	code          string
	benchmarkCode string
	factorCodes   []string
	from, to       string
}

// inputs 로드된 분석 입력
type inputs struct {
	name      string
	returns   timeseries.ReturnSeries
	benchmark timeseries.ReturnSeries
	factors   map[string]timeseries.ReturnSeries
}

func (f *inputFlags) register(cmd *cobra.Command, withFactors bool) {
	defaults := source.DefaultCSVOptions()

	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", sourceCSV, "input source (csv|db)")
	flags.StringVar(&f.kind, "kind", string(defaults.Kind), "csv value kind (returns|prices)")
	flags.StringVar(&f.returnsPath, "returns", "", "csv file with the analysed series")
	flags.StringVar(&f.dateCol, "date-col", defaults.DateColumn, "csv date column")
	flags.StringVar(&f.valueCol, "value-col", defaults.ValueColumn, "csv value column (default: first non-date column)")
	flags.StringVar(&f.code, "code", "", "stock code (db source)")
	flags.StringVar(&f.from, "from", "", "start date YYYY-MM-DD (db source, default: 3 years ago)")
	flags.StringVar(&f.to, "to", "", "end date YYYY-MM-DD (db source, default: today)")

	if withFactors {
		flags.StringVar(&f.benchmarkPath, "benchmark", "", "csv file with benchmark series")
		flags.StringVar(&f.factorsPath, "factors", "", "csv file with one column per factor")
		flags.StringVar(&f.benchmarkCode, "benchmark-code", "", "benchmark stock code (db source)")
		flags.StringSliceVar(&f.factorCodes, "factor-codes", nil, "factor stock codes (db source)")
	}
}

func (f *inputFlags) load(ctx context.Context, d *deps) (*inputs, error) {
	switch f.source {
	case sourceCSV:
		return f.loadCSV()
	case sourceDB:
		return f.loadDB(ctx, d)
	default:
		return nil, fmt.Errorf("unknown source %q (valid: csv, db)", f.source)
	}
}

func (f *inputFlags) loadCSV() (*inputs, error) {
	if f.returnsPath == "" {
		return nil, fmt.Errorf("--returns is required for csv source")
	}
	kind, err := source.ParseKind(f.kind)
	if err != nil {
		return nil, err
	}

	opts := source.CSVOptions{Kind: kind, DateColumn: f.dateCol, ValueColumn: f.valueCol}
	in := &inputs{name: f.returnsPath}
	if in.returns, err = source.LoadCSV(f.returnsPath, opts); err != nil {
		return nil, fmt.Errorf("load returns: %w", err)
	}
	if f.benchmarkPath != "" {
		if in.benchmark, err = source.LoadCSV(f.benchmarkPath, opts); err != nil {
			return nil, fmt.Errorf("load benchmark: %w", err)
		}
	}
	if f.factorsPath != "" {
		if in.factors, err = source.LoadFactorsCSV(f.factorsPath, f.dateCol); err != nil {
			return nil, fmt.Errorf("load factors: %w", err)
		}
	}
	return in, nil
}

func (f *inputFlags) loadDB(ctx context.Context, d *deps) (*inputs, error) {
	if f.code == "" {
		return nil, fmt.Errorf("--code is required for db source")
	}
	from, to, err := f.dateRange()
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, d.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := source.NewPriceRepository(db)
	in := &inputs{name: f.code}
	if in.returns, err = repo.Returns(ctx, f.code, from, to); err != nil {
		return nil, err
	}
	if f.benchmarkCode != "" {
		if in.benchmark, err = repo.Returns(ctx, f.benchmarkCode, from, to); err != nil {
			return nil, err
		}
	}
	if len(f.factorCodes) > 0 {
		if in.factors, err = repo.ReturnsFor(ctx, f.factorCodes, from, to); err != nil {
			return nil, err
		}
	}

	d.log.WithFields(map[string]interface{}{
		"code":         f.code,
		"from":         from.Format(timeseries.DateLayout),
		"to":           to.Format(timeseries.DateLayout),
		"observations": in.returns.Len(),
	}).Info("Loaded returns from database")
	return in, nil
}

func (f *inputFlags) dateRange() (time.Time, time.Time, error) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if f.to != "" {
		t, err := time.Parse(timeseries.DateLayout, f.to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = t
	}

	from := to.AddDate(-defaultLookbackYears, 0, 0)
	if f.from != "" {
		t, err := time.Parse(timeseries.DateLayout, f.from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s must be before --to %s",
			from.Format(timeseries.DateLayout), to.Format(timeseries.DateLayout))
	}
	return from, to, nil
}
