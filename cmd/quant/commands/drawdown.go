package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/quantrisk/internal/drawdown"
)

// drawdownResult JSON 출력
type drawdownResult struct {
	Series      string            `json:"series"`
	MaxDrawdown *drawdown.Episode `json:"max_drawdown,omitempty"`
	Table       []drawdown.Row    `json:"table"`
}

func newDrawdownCmd(opts *rootOptions) *cobra.Command {
	var (
		in   inputFlags
		topN int
	)

	cmd := &cobra.Command{
		Use:   "drawdown",
		Short: "Top-N drawdown 테이블",
		Long: `NAV 곡선에서 서로 겹치지 않는 최악의 drawdown 구간을 깊이 순으로 추출합니다.

각 구간: peak(직전 고점) → valley(최저점) → recovery(고점 회복일, 미회복이면 open)

Example:
  go run ./cmd/quant drawdown --returns strategy.csv
  go run ./cmd/quant drawdown --returns nav.csv --kind prices --top 10
  go run ./cmd/quant drawdown --source db --code 005930 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}
			data, err := in.load(cmd.Context(), d)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("top") {
				d.analysis.Drawdown.TopN = topN
			}

			nav, err := data.returns.NAV(d.analysis.Returns.NAVStart)
			if err != nil {
				return err
			}
			result := drawdownResult{
				Series: data.name,
				Table:  drawdown.Table(nav, d.analysis.Drawdown.TopN),
			}
			if worst, ok := drawdown.MaxDrawdown(nav); ok {
				result.MaxDrawdown = &worst
			}

			d.log.WithFields(map[string]interface{}{
				"series":   data.name,
				"episodes": len(result.Table),
			}).Debug("Drawdown table built")

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, result)
			}

			PrintRunHeader(out, RunHeader{
				Title:      "Drawdown Report",
				Series:     data.name,
				AnalysisID: d.analysis.Meta.AnalysisID,
				Period:     seriesPeriod(data.returns),
			})
			if len(result.Table) == 0 {
				PrintSuccess(out, "No drawdowns (NAV never fell below a prior peak)")
				return nil
			}

			widths := []int{4, 10, 10, 10, 10, 6}
			PrintTableHeader(out, []string{"#", "Net %", "Peak", "Valley", "Recovery", "Days"}, widths)
			for _, row := range result.Table {
				PrintTableRow(out, []string{
					strconv.Itoa(row.Rank),
					fmt.Sprintf("%.2f", row.NetDrawdownPct),
					row.PeakDate,
					row.ValleyDate,
					row.RecoveryDate,
					strconv.Itoa(row.Duration),
				}, widths)
			}
			return nil
		},
	}

	in.register(cmd, false)
	cmd.Flags().IntVar(&topN, "top", 5, "number of drawdowns (overrides drawdown.top_n)")
	return cmd
}
