package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/timeseries"
)

func newConeCmd(opts *rootOptions) *cobra.Command {
	var (
		in       inputFlags
		numStdev float64
		cutoff   string
		horizon  int
	)

	cmd := &cobra.Command{
		Use:   "cone",
		Short: "성과 콘 (웜업 추세 + 변동성 밴드)",
		Long: `웜업 구간 NAV에 선형 추세를 적합하고, 표본 외 구간과 미래로
line ± |line|·k·σ·√d 밴드를 투영합니다.

Phases:
  fit     웜업 구간 (추세 적합)
  oos     표본 외 구간 (실제 NAV와 비교)
  future  마지막 관측 다음 영업일부터 horizon 영업일

Example:
  go run ./cmd/quant cone --returns strategy.csv
  go run ./cmd/quant cone --returns strategy.csv --cutoff 2024-01-02 --stdev 1.5
  go run ./cmd/quant cone --returns strategy.csv --horizon 0 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}
			data, err := in.load(cmd.Context(), d)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("stdev") {
				d.analysis.Cone.NumStdev = numStdev
			}
			if flags.Changed("cutoff") {
				d.analysis.Cone.WarmUpCutoff = cutoff
			}
			if flags.Changed("horizon") {
				d.analysis.Cone.FutureHorizonDays = horizon
				d.analysis.Cone.MakeFutureCone = horizon > 0
			}
			cfg, err := d.analysis.ConeConfig()
			if err != nil {
				return err
			}

			c, err := cone.Project(data.returns, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, c)
			}

			PrintRunHeader(out, RunHeader{
				Title:      "Performance Cone",
				Series:     data.name,
				AnalysisID: d.analysis.Meta.AnalysisID,
				Period:     seriesPeriod(data.returns),
			})
			PrintKeyValue(out, "Warm-up", fmt.Sprintf("%d points", c.Fit.WarmUpPoints), 14)
			PrintKeyValue(out, "Trend", fmt.Sprintf("%.6f·x + %.4f (R² %s)", c.Fit.Slope, c.Fit.Intercept, fmtNum(c.Fit.RSquared)), 14)
			PrintKeyValue(out, "Vol (ann.)", fmtPct(c.Fit.WarmUpVolAnnualized), 14)
			PrintKeyValue(out, "Band", fmt.Sprintf("±%.2f σ", cfg.NumStdev), 14)
			fmt.Fprintln(out)

			widths := []int{10, 7, 8, 8, 8, 8}
			PrintTableHeader(out, []string{"Date", "Phase", "Actual", "Lower", "Line", "Upper"}, widths)
			for _, phase := range []cone.Phase{cone.PhaseFit, cone.PhaseOOS, cone.PhaseFuture} {
				bands := c.Phase(phase)
				if len(bands) == 0 {
					continue
				}
				for _, b := range []cone.ConeBand{bands[0], bands[len(bands)-1]} {
					actual := "-"
					if b.Actual != nil {
						actual = fmt.Sprintf("%.4f", *b.Actual)
					}
					PrintTableRow(out, []string{
						b.Time.Format(timeseries.DateLayout),
						string(b.Phase),
						actual,
						fmt.Sprintf("%.4f", b.Lower),
						fmt.Sprintf("%.4f", b.Line),
						fmt.Sprintf("%.4f", b.Upper),
					}, widths)
				}
			}

			if oos := c.Phase(cone.PhaseOOS); len(oos) > 0 {
				outside := 0
				for _, b := range oos {
					if *b.Actual < b.Lower || *b.Actual > b.Upper {
						outside++
					}
				}
				fmt.Fprintf(out, "\nOut-of-sample points outside the band: %d / %d\n", outside, len(oos))
			}
			return nil
		},
	}

	defaults := cone.DefaultConfig()
	in.register(cmd, false)
	cmd.Flags().Float64Var(&numStdev, "stdev", defaults.NumStdev, "band width in standard deviations (overrides cone.num_stdev)")
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "warm-up cutoff date YYYY-MM-DD (overrides cone.warm_up_fraction)")
	cmd.Flags().IntVar(&horizon, "horizon", defaults.FutureHorizonDays, "future cone length in business days, 0 disables (overrides cone.future_horizon_days)")
	return cmd
}
