package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/quantrisk/internal/timeseries"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// 결과는 cmd.OutOrStdout(), 로그는 stderr
// ═══════════════════════════════════════════════════════════

// RunHeader holds command header metadata
type RunHeader struct {
	Title      string
	Series     string
	AnalysisID string
	Period     *Period // Optional
}

// Period represents a date range
type Period struct {
	StartDate string
	EndDate   string
}

// seriesPeriod 시계열의 첫/마지막 날짜
func seriesPeriod(s timeseries.ReturnSeries) *Period {
	if s.Len() == 0 {
		return nil
	}
	return &Period{
		StartDate: s.First().Time.Format(timeseries.DateLayout),
		EndDate:   s.Last().Time.Format(timeseries.DateLayout),
	}
}

// PrintRunHeader prints a formatted command header
func PrintRunHeader(w io.Writer, h RunHeader) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", h.Title)
	PrintSeparator(w)
	fmt.Fprintf(w, "  Series    : %s\n", h.Series)
	fmt.Fprintf(w, "  Config    : %s\n", h.AnalysisID)

	// Optional period
	if h.Period != nil {
		fmt.Fprintf(w, "  Period    : %s ~ %s\n", h.Period.StartDate, h.Period.EndDate)
	}

	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintList prints a bulleted list
func PrintList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fmtPct 0.0123 → "1.23%", Undefined → "n/a"
func fmtPct(v float64) string {
	if timeseries.IsUndefined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// fmtNum 소수 4자리, Undefined → "n/a"
func fmtNum(v float64) string {
	if timeseries.IsUndefined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
