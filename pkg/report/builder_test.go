package report

import (
	"strings"
	"testing"
	"time"

	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/reload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const rawCSV = "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
	"Pump-1,Pump,0,5,100\n" +
	"Pump-2,Pump,10,6,110\n" +
	"Valve-1,Valve,20,7,120\n" +
	"Valve-2,Valve,30,8,130\n" +
	"HX-1,Exchanger,40,9,140\n" +
	"HX-2,Exchanger,50,10,150\n" +
	"Pump-3,Pump,60,11,160\n"

var generatedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func float(v float64) *float64 { return &v }

func sampleUpload() *models.Upload {
	summary := models.Summary{
		AnalyticsSummary: dataset.AnalyticsSummary{
			TotalEquipment:   7,
			AvgFlowrate:      float(30),
			AvgPressure:      float(8),
			AvgTemperature:   float(130),
			TypeDistribution: map[string]int{"Pump": 3, "Valve": 2, "Exchanger": 2},
			RowCount:         7,
			FileSizeBytes:    int64(len(rawCSV)),
		},
		Validation: dataset.ValidationSummary{TotalRows: 7, AcceptedRows: 7},
	}
	return &models.Upload{
		ID:         7,
		Name:       "March run",
		FileName:   "march.csv",
		FileRef:    "datasets/march.csv",
		FileSize:   int64(len(rawCSV)),
		Summary:    datatypes.NewJSONType(summary),
		UploadedAt: time.Date(2026, 4, 30, 17, 5, 0, 0, time.UTC),
	}
}

func rawTable(t *testing.T, content string) reload.Result {
	t.Helper()
	table, err := dataset.ParseCSV(strings.NewReader(content))
	require.NoError(t, err)
	table, err = dataset.ValidateSchema(table)
	require.NoError(t, err)
	return reload.Result{Table: table}
}

func headings(doc *Document) []string {
	var texts []string
	for _, b := range doc.Blocks {
		if p, ok := b.(Paragraph); ok && p.Style == StyleHeading2 {
			texts = append(texts, p.Text)
		}
	}
	return texts
}

func lookup(table Table, key string) string {
	for _, row := range table.Rows {
		if len(row) == 2 && row[0] == key {
			return row[1]
		}
	}
	return ""
}

func TestBuildFullReport(t *testing.T) {
	doc := Build(Input{Upload: sampleUpload(), Raw: rawTable(t, rawCSV), GeneratedAt: generatedAt, Version: "1.0"})

	assert.Equal(t, []string{
		"Chemical Equipment Parameter Analysis Report",
		"Dataset Overview",
		"Summary Statistics",
		"Equipment Type Distribution",
		"Parameter Analysis",
		"Equipment Snapshot (First 10 Rows)",
		"Observations & Insights",
	}, headings(doc))

	paragraphs := doc.Paragraphs()
	assert.Contains(t, paragraphs, "Dataset: March run")
	assert.Contains(t, paragraphs, "Upload ID: 7")
	assert.Contains(t, paragraphs, "Generated on: 2026-05-01 09:30")
	assert.Contains(t, paragraphs, "Section Summary: 7 equipment records across 3 types.")
	assert.Contains(t, paragraphs, "Section Summary: Pump is the most common type (42.9%).")
	assert.Contains(t, paragraphs, "Average Flowrate: 30.00")
	assert.Contains(t, paragraphs, "Insight: Most values fall between -0.1-10.0.")
	assert.Contains(t, paragraphs, "- Pump equipment dominates the dataset (42.9%).")
	assert.Contains(t, paragraphs, "- "+MessagePressureInsight)
	assert.Contains(t, paragraphs, "- "+MessageFlowrateInsight)
	assert.NotContains(t, paragraphs, MessageRawUnavailable)

	tables := doc.Tables()
	require.Len(t, tables, 4)

	overview := tables[0]
	assert.Equal(t, "7", lookup(overview, "Total Equipment"))
	assert.Equal(t, "3", lookup(overview, "Number of Equipment Types"))
	assert.Equal(t, "march.csv", lookup(overview, "Uploaded Filename"))
	assert.Equal(t, "2026-04-30 17:05", lookup(overview, "Upload Timestamp"))
	assert.Equal(t, "7 (7 / 0)", lookup(overview, "Rows (Accepted / Rejected)"))

	stats := tables[1]
	assert.Equal(t, "30.00", lookup(stats, "Average Flowrate"))
	assert.Equal(t, "0.00", lookup(stats, "Min Flowrate"))
	assert.Equal(t, "60.00", lookup(stats, "Max Flowrate"))
	assert.Equal(t, "100.00", lookup(stats, "Min Temperature"))
	assert.Equal(t, "160.00", lookup(stats, "Max Temperature"))

	assert.Equal(t, [][]string{
		{"Type", "Count", "Percentage"},
		{"Pump", "3", "42.9%"},
		{"Exchanger", "2", "28.6%"},
		{"Valve", "2", "28.6%"},
	}, tables[2].Rows)

	snapshot := tables[3]
	require.Len(t, snapshot.Rows, 8)
	assert.Equal(t, dataset.RequiredColumns, snapshot.Rows[0])
	assert.Equal(t, []string{"Pump-1", "Pump", "0", "5", "100"}, snapshot.Rows[1])

	charts := doc.Charts()
	require.Len(t, charts, 4)
	assert.Equal(t, []string{"Pump", "Exchanger", "Valve"}, charts[0].Labels)
	assert.Equal(t, []float64{3, 2, 2}, charts[0].Values)
	assert.Equal(t, "Flowrate Distribution", charts[1].Title)
	assert.Equal(t, []float64{2, 1, 1, 1, 1, 1}, charts[1].Values)
}

func TestBuildDegradesWithoutRawFile(t *testing.T) {
	raw := reload.Result{Reason: reload.ReasonMissing}
	doc := Build(Input{Upload: sampleUpload(), Raw: raw, GeneratedAt: generatedAt, Version: "1.0"})

	paragraphs := doc.Paragraphs()
	assert.Contains(t, paragraphs, "Dataset: March run")
	assert.Contains(t, paragraphs, MessageRawUnavailable)
	assert.Contains(t, paragraphs, MessageSnapshotUnavailable)
	assert.Contains(t, paragraphs, "- Pump equipment dominates the dataset (42.9%).")

	tables := doc.Tables()
	require.Len(t, tables, 3, "no snapshot table")
	assert.Equal(t, "7", lookup(tables[0], "Total Equipment"))
	assert.Equal(t, "30.00", lookup(tables[1], "Average Flowrate"))
	assert.Equal(t, "N/A", lookup(tables[1], "Min Flowrate"))
	assert.Equal(t, "N/A", lookup(tables[1], "Max Temperature"))

	assert.Len(t, doc.Charts(), 1, "only the type distribution chart")
}

func TestBuildWithoutAnalytics(t *testing.T) {
	upload := sampleUpload()
	upload.Summary = datatypes.NewJSONType(models.Summary{
		AnalyticsSummary: dataset.AnalyticsSummary{AvgFlowrate: float(0)},
	})
	doc := Build(Input{Upload: upload, Raw: reload.Result{Reason: reload.ReasonSchema}, GeneratedAt: generatedAt})

	paragraphs := doc.Paragraphs()
	assert.Contains(t, paragraphs, MessageNoDistribution)
	assert.Equal(t, "- "+MessageNoInsights, paragraphs[len(paragraphs)-1])
	assert.Equal(t, "N/A", lookup(doc.Tables()[1], "Average Pressure"))
	assert.Equal(t, "0.00", lookup(doc.Tables()[1], "Average Flowrate"))
	assert.Empty(t, doc.Charts())
}

func TestBuildHistogramsIgnoreNonNumericCells(t *testing.T) {
	content := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"A,Pump,abc,,1\n" +
		"B,Pump,-5,1,2\n"
	doc := Build(Input{Upload: sampleUpload(), Raw: rawTable(t, content), GeneratedAt: generatedAt, SnapshotRows: 1})

	paragraphs := doc.Paragraphs()
	assert.Contains(t, paragraphs, "Equipment Snapshot (First 1 Rows)")
	assert.Equal(t, "-5.00", lookup(doc.Tables()[1], "Min Flowrate"))
	assert.Equal(t, "-5.00", lookup(doc.Tables()[1], "Max Flowrate"))
	assert.Len(t, doc.Tables()[3].Rows, 2)
}

func TestSortedTypesBreaksTiesByName(t *testing.T) {
	assert.Equal(t, []TypeShare{
		{"pump", 2}, {"Valve", 1}, {"valve", 1},
	}, SortedTypes(map[string]int{"valve": 1, "pump": 2, "Valve": 1}))
}
