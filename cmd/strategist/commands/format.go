package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/aegis-options/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const lineWidth = 59

// PrintHeader prints a boxed section title
func PrintHeader(w io.Writer, title string, kv [][2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", lineWidth))
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, strings.Repeat("─", lineWidth))
	for _, pair := range kv {
		fmt.Fprintf(w, "  %-12s: %s\n", pair[0], pair[1])
	}
	fmt.Fprintln(w, strings.Repeat("─", lineWidth))
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", total))
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

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// FormatLegs renders legs as "+C95 -C100"
func FormatLegs(legs []contracts.PositionLeg) string {
	parts := make([]string, len(legs))
	for i, l := range legs {
		sign := "+"
		if l.Sign < 0 {
			sign = "-"
		}
		kind := "C"
		if l.Kind == contracts.Put {
			kind = "P"
		}
		parts[i] = fmt.Sprintf("%s%s%g", sign, kind, l.Strike)
	}
	return strings.Join(parts, " ")
}

// FormatBreakevens renders breakevens as "96.00/104.00" ("-" if none)
func FormatBreakevens(points []float64) string {
	if len(points) == 0 {
		return "-"
	}
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.2f", p)
	}
	return strings.Join(parts, "/")
}

var rankColumns = []string{"Rank", "Score", "Legs", "Premium", "MaxLoss", "MaxProfit", "AvgPnL", "Breakevens"}
var rankWidths = []int{4, 7, 28, 8, 8, 9, 8, 20}

// PrintRanking prints ranked strategies as a table
func PrintRanking(w io.Writer, ranked []contracts.StrategyResult) {
	PrintTableHeader(w, rankColumns, rankWidths)
	for i := range ranked {
		r := &ranked[i]
		PrintTableRow(w, []string{
			fmt.Sprintf("%d", r.Rank),
			fmt.Sprintf("%.4f", r.Score),
			FormatLegs(r.Legs),
			fmt.Sprintf("%.3f", r.Premium),
			fmt.Sprintf("%.3f", r.MaxLoss),
			fmt.Sprintf("%.3f", r.MaxProfit),
			fmt.Sprintf("%.4f", r.AveragePnL),
			FormatBreakevens(r.Breakevens),
		}, rankWidths)
	}
}
