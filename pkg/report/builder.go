package report

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/reload"
)

const (
	DefaultSnapshotRows  = 10
	DefaultHistogramBins = 6
)

const (
	MessageRawUnavailable      = "Raw CSV data could not be loaded. This section is based on stored summary values only."
	MessageSnapshotUnavailable = "Snapshot not available (raw CSV could not be loaded)."
	MessageNoDistribution      = "No equipment type distribution available."
	MessageNoNumericData       = "No numeric data available."
	MessageNoInsights          = "No additional insights available."
	MessagePressureInsight     = "Average pressure is slightly elevated relative to temperature patterns."
	MessageFlowrateInsight     = "Flowrate values are within expected operational ranges."
)

// Input is everything a report is built from.
type Input struct {
	Upload      *models.Upload
	Raw         reload.Result
	GeneratedAt time.Time
	Version     string

	SnapshotRows  int
	HistogramBins int
}

// TypeShare is one entry of the type distribution.
type TypeShare struct {
	Type  string
	Count int
}

// SortedTypes orders a distribution by count descending, then by name.
func SortedTypes(distribution map[string]int) []TypeShare {
	shares := make([]TypeShare, 0, len(distribution))
	for name, count := range distribution {
		shares = append(shares, TypeShare{Type: name, Count: count})
	}
	slices.SortFunc(shares, func(a, b TypeShare) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return shares
}

type builder struct {
	in      Input
	doc     *Document
	summary models.Summary
	raw     *dataset.Table
	total   int
	types   []TypeShare
}

// Build lays out the report. Sections that need the raw file fall back to
// placeholders when in.Raw is unavailable; the rest only uses the stored
// summary.
func Build(in Input) *Document {
	if in.SnapshotRows < 1 {
		in.SnapshotRows = DefaultSnapshotRows
	}
	if in.HistogramBins < 1 {
		in.HistogramBins = DefaultHistogramBins
	}

	b := &builder{
		in:      in,
		doc:     &Document{Title: "ChemViz Report", Version: in.Version},
		summary: in.Upload.Stats(),
		raw:     in.Raw.Table,
	}
	b.total = b.summary.TotalEquipment
	if b.total == 0 && b.raw != nil {
		b.total = b.raw.Len()
	}
	b.types = SortedTypes(b.summary.TypeDistribution)

	b.cover()
	b.overview()
	b.statistics()
	b.distribution()
	b.parameters()
	b.snapshot()
	b.observations()
	return b.doc
}

func (b *builder) cover() {
	d := b.doc
	d.add(Logo{Initials: "CV", Size: 70}, Spacer{Height: 8})
	d.paragraph(StyleTitle, "ChemViz")
	d.paragraph(StyleHeading2, "Chemical Equipment Parameter Analysis Report")
	d.add(Spacer{Height: 18})
	d.paragraph(StyleNormal, "Dataset: %s", b.in.Upload.Name)
	d.paragraph(StyleNormal, "Upload ID: %d", b.in.Upload.ID)
	d.paragraph(StyleNormal, "Generated on: %s", b.in.GeneratedAt.Format(TimeLayout))
	d.add(Spacer{Height: 24})
	d.paragraph(StyleItalic, "ChemViz Report (Cover Page)")
	d.add(PageBreak{})
}

func (b *builder) overview() {
	d := b.doc
	upload := b.in.Upload
	validation := b.summary.Validation

	d.paragraph(StyleHeading2, "Dataset Overview")
	d.add(Table{
		Rows: [][]string{
			{"Total Equipment", strconv.Itoa(b.total)},
			{"Number of Equipment Types", strconv.Itoa(len(b.types))},
			{"Uploaded Filename", upload.FileName},
			{"Upload Timestamp", upload.UploadedAt.Format(TimeLayout)},
			{"File Size", humanize.IBytes(uint64(max(upload.FileSize, 0)))},
			{"Rows (Accepted / Rejected)", sprintRows(validation)},
		},
		Widths: []float64{200, 300},
	})
	d.paragraph(StyleItalic, "Section Summary: %d equipment records across %d types.", b.total, len(b.types))
	d.add(Spacer{Height: 16})
}

func sprintRows(v dataset.ValidationSummary) string {
	return fmt.Sprintf("%d (%d / %d)", v.TotalRows, v.AcceptedRows, v.RejectedRows)
}

func (b *builder) statistics() {
	rows := [][]string{
		{"Average Flowrate", FormatNumber(b.summary.AvgFlowrate)},
		{"Average Pressure", FormatNumber(b.summary.AvgPressure)},
		{"Average Temperature", FormatNumber(b.summary.AvgTemperature)},
	}
	for _, column := range dataset.NumericColumns {
		var lo, hi *float64
		if b.raw != nil {
			values := dataset.CoerceColumn(b.raw, column)
			lo, hi = dataset.Min(values), dataset.Max(values)
		}
		rows = append(rows,
			[]string{"Min " + column, FormatNumber(lo)},
			[]string{"Max " + column, FormatNumber(hi)},
		)
	}

	d := b.doc
	d.paragraph(StyleHeading2, "Summary Statistics")
	d.add(Table{Rows: rows, Widths: []float64{200, 300}})
	d.paragraph(StyleItalic, "Section Summary: Averages and ranges are computed from valid rows.")
	d.add(Spacer{Height: 16})
}

func (b *builder) distribution() {
	d := b.doc
	d.paragraph(StyleHeading2, "Equipment Type Distribution")

	if len(b.types) == 0 {
		d.paragraph(StyleNormal, MessageNoDistribution)
		d.add(PageBreak{})
		return
	}

	labels := make([]string, len(b.types))
	values := make([]float64, len(b.types))
	sum := 0
	for i, share := range b.types {
		labels[i] = share.Type
		values[i] = float64(share.Count)
		sum += share.Count
	}
	d.add(BarChart{Title: "Type Distribution", Labels: labels, Values: values, Width: 430, Height: 190})
	d.add(Spacer{Height: 8})

	rows := [][]string{{"Type", "Count", "Percentage"}}
	for _, share := range b.types {
		rows = append(rows, []string{share.Type, strconv.Itoa(share.Count), formatPercent(share.Count, sum)})
	}
	d.add(Table{Rows: rows, Widths: []float64{220, 120, 120}})

	top := b.types[0]
	d.paragraph(StyleItalic, "Section Summary: %s is the most common type (%s).", top.Type, formatPercent(top.Count, b.total))
	d.add(PageBreak{})
}

func (b *builder) parameters() {
	d := b.doc
	d.paragraph(StyleHeading2, "Parameter Analysis")

	if b.raw == nil {
		d.paragraph(StyleItalic, MessageRawUnavailable)
		d.add(Spacer{Height: 12})
		return
	}

	for _, column := range dataset.NumericColumns {
		d.paragraph(StyleHeading3, "%s Analysis", column)
		d.paragraph(StyleNormal, "Average %s: %s", column, FormatNumber(b.summary.Average(column)))

		histogram := NewHistogram(dataset.CoerceColumn(b.raw, column), b.in.HistogramBins)
		if histogram == nil {
			d.paragraph(StyleNormal, MessageNoNumericData)
			d.add(Spacer{Height: 12})
			continue
		}

		labels := histogram.Labels()
		d.add(BarChart{
			Title:  column + " Distribution",
			Labels: labels,
			Values: histogram.values(),
			Width:  420,
			Height: 180,
		})
		d.paragraph(StyleItalic, "Insight: Most values fall between %s.", labels[histogram.Peak()])
		d.add(Spacer{Height: 12})
	}
}

func (b *builder) snapshot() {
	d := b.doc
	d.paragraph(StyleHeading2, "Equipment Snapshot (First %d Rows)", b.in.SnapshotRows)

	if b.raw == nil {
		d.paragraph(StyleItalic, MessageSnapshotUnavailable)
		d.add(Spacer{Height: 12})
		return
	}

	head := b.raw.Head(b.in.SnapshotRows)
	rows := [][]string{slices.Clone(dataset.RequiredColumns)}
	for _, record := range head.Records {
		rows = append(rows, slices.Clone(record))
	}
	d.add(Table{Rows: rows, Widths: []float64{140, 100, 100, 100, 100}})
	d.add(Spacer{Height: 12})
}

func (b *builder) observations() {
	var observations []string
	if len(b.types) > 0 {
		top := b.types[0]
		observations = append(observations, fmt.Sprintf("%s equipment dominates the dataset (%s).", top.Type, formatPercent(top.Count, b.total)))
	}
	if truthy(b.summary.AvgPressure) && truthy(b.summary.AvgTemperature) {
		observations = append(observations, MessagePressureInsight)
	}
	if truthy(b.summary.AvgFlowrate) {
		observations = append(observations, MessageFlowrateInsight)
	}
	if len(observations) == 0 {
		observations = append(observations, MessageNoInsights)
	}

	d := b.doc
	d.paragraph(StyleHeading2, "Observations & Insights")
	for _, item := range observations {
		d.paragraph(StyleNormal, "- %s", item)
	}
}

// truthy treats a missing or zero average as absent.
func truthy(v *float64) bool {
	return v != nil && *v != 0
}
