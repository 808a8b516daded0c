package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/risk"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// statsResult JSON 출력
type statsResult struct {
	Series    string                `json:"series"`
	Period    string                `json:"period"`
	Stats     risk.PerfStats        `json:"stats"`
	RiskCheck *risk.RiskCheckResult `json:"risk_check"`
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		in     inputFlags
		style  string
		period string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "성과 지표 및 리스크 한도 체크",
		Long: `연율 수익률/변동성, Sharpe, Calmar, Stability, MDD, VaR/CVaR를 계산하고
risk_limits 한도 위반 여부를 확인합니다.

Return styles:
  calendar    NAV 총수익률을 달력 연수로 연율화 (기본)
  compound    기하 평균 (관측 수 기준)
  arithmetic  산술 평균 × 연율화 배수

Example:
  go run ./cmd/quant stats --returns strategy.csv
  go run ./cmd/quant stats --returns strategy.csv --period monthly --style compound`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}
			data, err := in.load(cmd.Context(), d)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("style") {
				d.analysis.Returns.Style = style
			}
			if cmd.Flags().Changed("period") {
				d.analysis.Returns.Period = period
			}

			returnStyle, err := d.analysis.ReturnStyle()
			if err != nil {
				return err
			}
			p, err := d.analysis.Period()
			if err != nil {
				return err
			}
			returns, err := timeseries.Aggregate(data.returns, p)
			if err != nil {
				return err
			}

			engine := risk.NewEngine()
			result := statsResult{Series: data.name, Period: string(p)}
			if result.Stats, err = engine.PerfStats(returns, returnStyle); err != nil {
				return err
			}
			if result.RiskCheck, err = engine.CheckLimits(returns, d.analysis.Limits()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, result)
			}

			s := result.Stats
			PrintRunHeader(out, RunHeader{
				Title:      fmt.Sprintf("Performance Statistics (%s)", p),
				Series:     data.name,
				AnalysisID: d.analysis.Meta.AnalysisID,
				Period:     seriesPeriod(returns),
			})
			PrintKeyValue(out, "Observations", fmt.Sprint(s.Observations), 18)
			PrintKeyValue(out, "Annual Return", fmt.Sprintf("%s (%s)", fmtPct(s.AnnualReturn), s.ReturnStyle), 18)
			PrintKeyValue(out, "Annual Volatility", fmtPct(s.AnnualVolatility), 18)
			PrintKeyValue(out, "Sharpe", fmtNum(s.SharpeRatio), 18)
			PrintKeyValue(out, "Calmar", fmtNum(s.CalmarRatio), 18)
			PrintKeyValue(out, "Stability", fmtNum(s.Stability), 18)
			PrintKeyValue(out, "Max Drawdown", fmtPct(s.MaxDrawdown), 18)
			PrintKeyValue(out, "VaR 95%", fmtPct(s.VaR95.VaR), 18)
			PrintKeyValue(out, "CVaR 95%", fmtPct(s.VaR95.CVaR), 18)
			PrintKeyValue(out, "Normal VaR 95%", fmtPct(s.ParametricVaR95.VaR), 18)
			fmt.Fprintln(out)

			if result.RiskCheck.Passed {
				PrintSuccess(out, "Risk limits passed")
			} else {
				PrintWarning(out, "Risk limits violated")
				PrintList(out, result.RiskCheck.Violations)
			}
			return nil
		},
	}

	in.register(cmd, false)
	cmd.Flags().StringVar(&style, "style", string(risk.StyleCalendar), "return style (calendar|compound|arithmetic)")
	cmd.Flags().StringVar(&period, "period", string(timeseries.Daily), "aggregation period (daily|weekly|monthly|yearly)")
	return cmd
}
