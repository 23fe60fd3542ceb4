package report

import (
	"fmt"
	"strconv"
)

const (
	NotAvailable = "N/A"
	TimeLayout   = "2006-01-02 15:04"
)

// FormatNumber prints a value with two decimals, nil as N/A.
func FormatNumber(value *float64) string {
	if value == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*value, 'f', 2, 64)
}

func formatPercent(part, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}

// FileName is the download name of the report of an upload.
func FileName(id uint) string {
	return fmt.Sprintf("chemviz-report-%d.pdf", id)
}

// Footer is printed at the bottom of every page.
func Footer(version string, page int) string {
	return fmt.Sprintf("Generated by ChemViz | v%s | Page %d", version, page)
}
