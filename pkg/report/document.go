// Package report renders the analytics report of a stored upload.
//
// Rendering happens in two steps: Build lays the report out as a Document of
// plain blocks, WritePDF draws a Document with fpdf.
package report

import "fmt"

type Style int

const (
	StyleNormal Style = iota
	StyleItalic
	StyleTitle
	StyleHeading2
	StyleHeading3
)

// Block is one element of a Document.
type Block interface {
	block()
}

type Paragraph struct {
	Text  string
	Style Style
}

// Table draws a grid; the first row is shaded.
type Table struct {
	Rows   [][]string
	Widths []float64
}

type BarChart struct {
	Title  string
	Labels []string
	Values []float64
	Width  float64
	Height float64
}

// Logo is the round badge on the cover page.
type Logo struct {
	Initials string
	Size     float64
}

type Spacer struct {
	Height float64
}

type PageBreak struct{}

func (Paragraph) block() {}
func (Table) block()     {}
func (BarChart) block()  {}
func (Logo) block()      {}
func (Spacer) block()    {}
func (PageBreak) block() {}

type Document struct {
	Title   string
	Version string
	Blocks  []Block
}

func (d *Document) add(blocks ...Block) {
	d.Blocks = append(d.Blocks, blocks...)
}

func (d *Document) paragraph(style Style, format string, args ...any) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	d.add(Paragraph{Text: text, Style: style})
}

// Paragraphs returns the text of every paragraph in document order.
func (d *Document) Paragraphs() []string {
	var texts []string
	for _, b := range d.Blocks {
		if p, ok := b.(Paragraph); ok {
			texts = append(texts, p.Text)
		}
	}
	return texts
}

// Tables returns every table in document order.
func (d *Document) Tables() []Table {
	var tables []Table
	for _, b := range d.Blocks {
		if t, ok := b.(Table); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// Charts returns every bar chart in document order.
func (d *Document) Charts() []BarChart {
	var charts []BarChart
	for _, b := range d.Blocks {
		if c, ok := b.(BarChart); ok {
			charts = append(charts, c)
		}
	}
	return charts
}
