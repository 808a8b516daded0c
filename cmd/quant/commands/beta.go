package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/regression"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// betaResult JSON 출력
type betaResult struct {
	Series         string                        `json:"series"`
	Window         int                           `json:"window"`
	Beta           *regression.BetaPoint         `json:"beta,omitempty"`
	Rolling        []regression.BetaPoint        `json:"rolling,omitempty"`
	Factor         *regression.RegressionWindow  `json:"factor,omitempty"`
	RollingFactors []regression.RegressionWindow `json:"rolling_factors,omitempty"`
}

func newBetaCmd(opts *rootOptions) *cobra.Command {
	var (
		in     inputFlags
		window int
		tail   int
	)

	cmd := &cobra.Command{
		Use:   "beta",
		Short: "롤링 alpha/beta (단일 벤치마크 또는 다중 팩터)",
		Long: `고정 길이 윈도우를 한 칸씩 밀며 OLS 회귀를 수행합니다.

윈도우 [i, i+W) 의 결과는 윈도우 다음 관측 시점 t[i+W]에 기록되며
출력 길이는 len(series) - W 입니다.

--benchmark: 단일 벤치마크 alpha/beta
--factors:   팩터별 계수 (CSV 컬럼 = 팩터)

Example:
  go run ./cmd/quant beta --returns strategy.csv --benchmark kospi.csv
  go run ./cmd/quant beta --returns strategy.csv --factors factors.csv --window 126
  go run ./cmd/quant beta --source db --code 005930 --benchmark-code 069500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}
			data, err := in.load(cmd.Context(), d)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("window") {
				d.analysis.Regression.Window = window
			}
			cfg := d.analysis.RegressionConfig()

			result := betaResult{Series: data.name, Window: cfg.Window}
			switch {
			case len(data.factors) > 0:
				if result.RollingFactors, err = regression.RollingMultiFactor(data.returns, data.factors, cfg); err != nil {
					return err
				}
				if full, err := regression.MultiFactorAlpha(data.returns, data.factors, cfg); err == nil {
					result.Factor = &full
				} else {
					d.log.WithError(err).Warn("Full-sample factor regression undefined")
				}

			case data.benchmark.Len() > 0:
				if result.Rolling, err = regression.RollingBeta(data.returns, data.benchmark, cfg); err != nil {
					return err
				}
				if full, err := regression.AlphaBeta(data.returns, data.benchmark, cfg); err == nil {
					result.Beta = &full
				} else {
					d.log.WithError(err).Warn("Full-sample alpha/beta undefined")
				}

			default:
				return fmt.Errorf("--benchmark/--benchmark-code or --factors/--factor-codes is required")
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, result)
			}

			PrintRunHeader(out, RunHeader{
				Title:      fmt.Sprintf("Rolling Regression (window %d)", cfg.Window),
				Series:     data.name,
				AnalysisID: d.analysis.Meta.AnalysisID,
				Period:     seriesPeriod(data.returns),
			})
			if result.Rolling != nil {
				printBeta(out, result, tail)
			} else {
				printFactors(out, result, tail)
			}
			return nil
		},
	}

	in.register(cmd, true)
	cmd.Flags().IntVar(&window, "window", regression.DefaultWindow, "window length (overrides regression.window)")
	cmd.Flags().IntVar(&tail, "tail", 10, "number of latest windows to print")
	return cmd
}

func printBeta(w io.Writer, result betaResult, tail int) {
	if result.Beta != nil {
		PrintKeyValue(w, "Alpha (full)", fmtNum(result.Beta.Alpha), 12)
		PrintKeyValue(w, "Beta (full)", fmtNum(result.Beta.Beta), 12)
		fmt.Fprintln(w)
	}

	widths := []int{10, 10, 10, 5}
	PrintTableHeader(w, []string{"Date", "Alpha", "Beta", "Obs"}, widths)
	for _, p := range lastN(result.Rolling, tail) {
		PrintTableRow(w, []string{
			p.Time.Format(timeseries.DateLayout),
			fmtNum(p.Alpha),
			fmtNum(p.Beta),
			fmt.Sprint(p.Observations),
		}, widths)
	}
	fmt.Fprintf(w, "\n%d windows\n", len(result.Rolling))
}

func printFactors(w io.Writer, result betaResult, tail int) {
	names := factorNames(result)
	if result.Factor != nil {
		PrintKeyValue(w, "Alpha (full)", fmtNum(result.Factor.Intercept), 12)
		for _, name := range names {
			PrintKeyValue(w, name+" (full)", fmtNum(result.Factor.Coefficients[name]), 12)
		}
		fmt.Fprintln(w)
	}

	columns := append([]string{"Date", "Alpha"}, names...)
	widths := make([]int, len(columns))
	for i := range widths {
		widths[i] = 10
	}
	PrintTableHeader(w, columns, widths)
	for _, win := range lastN(result.RollingFactors, tail) {
		row := []string{win.Time.Format(timeseries.DateLayout), fmtNum(win.Intercept)}
		for _, name := range names {
			row = append(row, fmtNum(win.Coefficients[name]))
		}
		PrintTableRow(w, row, widths)
	}
	fmt.Fprintf(w, "\n%d windows\n", len(result.RollingFactors))
}

func factorNames(result betaResult) []string {
	var coef map[string]float64
	switch {
	case result.Factor != nil:
		coef = result.Factor.Coefficients
	case len(result.RollingFactors) > 0:
		coef = result.RollingFactors[0].Coefficients
	}
	names := make([]string, 0, len(coef))
	for name := range coef {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lastN[T any](xs []T, n int) []T {
	if n <= 0 || n >= len(xs) {
		return xs
	}
	return xs[len(xs)-n:]
}
