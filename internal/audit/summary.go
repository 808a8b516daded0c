package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/quantrisk/internal/cone"
	"github.com/wonny/quantrisk/internal/timeseries"
)

// =============================================================================
// Output Formatting
// =============================================================================

// ToJSON JSON 형식으로 출력
func (report *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// ToSummary 요약 문자열 출력
func (report *Report) ToSummary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Diagnostics Report (%s) ===\n", report.GeneratedAt.Format(timeseries.DateLayout))
	fmt.Fprintf(&b, "Run ID: %s\n", report.RunID)
	if report.Name != "" {
		fmt.Fprintf(&b, "Series: %s\n", report.Name)
	}
	fmt.Fprintf(&b, "Config: %s (%s)\n\n", report.AnalysisID, shortHash(report.ConfigHash))

	s := report.Stats
	b.WriteString("📊 Performance\n")
	fmt.Fprintf(&b, "  Period: %s ~ %s (%d obs, %s)\n",
		s.Start.Format(timeseries.DateLayout), s.End.Format(timeseries.DateLayout), s.Observations, report.Period)
	fmt.Fprintf(&b, "  Annual Return (%s): %s\n", s.ReturnStyle, pct(s.AnnualReturn))
	fmt.Fprintf(&b, "  Annual Volatility: %s\n", pct(s.AnnualVolatility))
	fmt.Fprintf(&b, "  Sharpe: %s  Calmar: %s  Stability: %s\n", num(s.SharpeRatio), num(s.CalmarRatio), num(s.Stability))
	fmt.Fprintf(&b, "  Max Drawdown: %s\n", pct(s.MaxDrawdown))
	fmt.Fprintf(&b, "  VaR 95%%: %s  CVaR 95%%: %s  (normal: %s / %s)\n\n",
		pct(s.VaR95.VaR), pct(s.VaR95.CVaR), pct(s.ParametricVaR95.VaR), pct(s.ParametricVaR95.CVaR))

	if len(report.Drawdowns) > 0 {
		b.WriteString("📉 Worst Drawdowns\n")
		fmt.Fprintf(&b, "  %-4s %8s  %-10s  %-10s  %-10s  %s\n", "#", "net %", "peak", "valley", "recovery", "days")
		for _, row := range report.Drawdowns {
			fmt.Fprintf(&b, "  %-4d %8.2f  %-10s  %-10s  %-10s  %d\n",
				row.Rank, row.NetDrawdownPct, row.PeakDate, row.ValleyDate, row.RecoveryDate, row.Duration)
		}
		b.WriteString("\n")
	}

	if report.Beta != nil || len(report.RollingBeta) > 0 {
		b.WriteString("📈 Benchmark Exposure\n")
		if report.Beta != nil {
			fmt.Fprintf(&b, "  Full-sample alpha: %s  beta: %s\n", num(report.Beta.Alpha), num(report.Beta.Beta))
		}
		if n := len(report.RollingBeta); n > 0 {
			last := report.RollingBeta[n-1]
			fmt.Fprintf(&b, "  Rolling windows: %d, latest beta: %s (%s)\n",
				n, num(last.Beta), last.Time.Format(timeseries.DateLayout))
		}
		b.WriteString("\n")
	}

	if report.FactorAlpha != nil {
		b.WriteString("🧮 Factor Exposure\n")
		fmt.Fprintf(&b, "  Alpha: %s\n", num(report.FactorAlpha.Intercept))
		for _, name := range sortedKeys(report.FactorAlpha.Coefficients) {
			fmt.Fprintf(&b, "  %s: %s\n", name, num(report.FactorAlpha.Coefficients[name]))
		}
		b.WriteString("\n")
	}

	if c := report.Cone; c != nil {
		b.WriteString("🔮 Performance Cone\n")
		fmt.Fprintf(&b, "  Warm-up: %d points, trend R²: %s, vol (ann.): %s\n",
			c.Fit.WarmUpPoints, num(c.Fit.RSquared), pct(c.Fit.WarmUpVolAnnualized))
		if oos := c.Phase(cone.PhaseOOS); len(oos) > 0 {
			last := oos[len(oos)-1]
			fmt.Fprintf(&b, "  Out-of-sample: %d points, last actual %.4f in [%.4f, %.4f]\n",
				len(oos), *last.Actual, last.Lower, last.Upper)
		}
		if future := c.Phase(cone.PhaseFuture); len(future) > 0 {
			last := future[len(future)-1]
			fmt.Fprintf(&b, "  Future (%s): line %.4f, band [%.4f, %.4f]\n",
				last.Time.Format(timeseries.DateLayout), last.Line, last.Lower, last.Upper)
		}
		b.WriteString("\n")
	}

	if rc := report.RiskCheck; rc != nil {
		if rc.Passed {
			b.WriteString("✅ Risk Limits: passed\n")
		} else {
			b.WriteString("⚠️ Risk Limits: violated\n")
			for _, v := range rc.Violations {
				fmt.Fprintf(&b, "  - %s\n", v)
			}
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\nNotes\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	return b.String()
}

func pct(v float64) string {
	if timeseries.IsUndefined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func num(v float64) string {
	if timeseries.IsUndefined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
