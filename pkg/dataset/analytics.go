package dataset

import (
	"github.com/montanaflynn/stats"
)

// AnalyticsSummary aggregates the accepted rows of an upload. Averages are nil
// when a column has no numeric value at all.
type AnalyticsSummary struct {
	TotalEquipment   int            `json:"total_equipment"`
	AvgFlowrate      *float64       `json:"avg_flowrate"`
	AvgPressure      *float64       `json:"avg_pressure"`
	AvgTemperature   *float64       `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`
	RowCount         int            `json:"row_count"`
	FileSizeBytes    int64          `json:"file_size_bytes"`
}

// Average returns the stored average for one of the NumericColumns.
func (s AnalyticsSummary) Average(column string) *float64 {
	switch column {
	case ColumnFlowrate:
		return s.AvgFlowrate
	case ColumnPressure:
		return s.AvgPressure
	case ColumnTemperature:
		return s.AvgTemperature
	default:
		return nil
	}
}

// TypeCount returns the number of distinct equipment types.
func (s AnalyticsSummary) TypeCount() int {
	return len(s.TypeDistribution)
}

// Analyze computes the summary over accepted rows. Provenance fields
// (RowCount, FileSizeBytes) are left to the caller.
func Analyze(accepted *Table) AnalyticsSummary {
	summary := AnalyticsSummary{
		TotalEquipment:   accepted.Len(),
		AvgFlowrate:      Mean(CoerceColumn(accepted, ColumnFlowrate)),
		AvgPressure:      Mean(CoerceColumn(accepted, ColumnPressure)),
		AvgTemperature:   Mean(CoerceColumn(accepted, ColumnTemperature)),
		TypeDistribution: make(map[string]int),
	}
	for _, value := range accepted.Values(ColumnType) {
		summary.TypeDistribution[value]++
	}
	return summary
}

// Mean is nil for an empty input.
func Mean(values []float64) *float64 {
	mean, err := stats.Mean(stats.Float64Data(values))
	if err != nil {
		return nil
	}
	return &mean
}

// Min is nil for an empty input.
func Min(values []float64) *float64 {
	min, err := stats.Min(stats.Float64Data(values))
	if err != nil {
		return nil
	}
	return &min
}

// Max is nil for an empty input.
func Max(values []float64) *float64 {
	max, err := stats.Max(stats.Float64Data(values))
	if err != nil {
		return nil
	}
	return &max
}
