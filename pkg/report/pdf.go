package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 14.0
	rowHeight  = 16.0
)

var (
	accent    = [3]int{59, 130, 246}
	gridColor = [3]int{128, 128, 128}
	shade     = [3]int{211, 211, 211}
	muted     = [3]int{128, 128, 128}
)

type fontSpec struct {
	style string
	size  float64
}

var fonts = map[Style]fontSpec{
	StyleNormal:   {"", 10},
	StyleItalic:   {"I", 10},
	StyleTitle:    {"B", 24},
	StyleHeading2: {"B", 14},
	StyleHeading3: {"B", 12},
}

// WritePDF draws doc as a letter sized PDF. createdAt is stored as the
// document creation date.
func WritePDF(w io.Writer, doc *Document, createdAt time.Time) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(72, 72, 72)
	pdf.SetAutoPageBreak(true, 54)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("ChemViz "+doc.Version, true)
	pdf.SetCreationDate(createdAt)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, pageHeight := pdf.GetPageSize()

	pdf.SetFooterFunc(func() {
		pdf.SetY(pageHeight - 32)
		pdf.SetFont(fontFamily, "", 9)
		pdf.SetTextColor(muted[0], muted[1], muted[2])
		pdf.CellFormat(0, 12, tr(Footer(doc.Version, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	c := &canvas{pdf: pdf, tr: tr, pageWidth: pageWidth, pageHeight: pageHeight}
	pdf.AddPage()
	for _, block := range doc.Blocks {
		c.draw(block)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

type canvas struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	pageWidth  float64
	pageHeight float64
}

func (c *canvas) draw(block Block) {
	switch b := block.(type) {
	case Paragraph:
		c.paragraph(b)
	case Table:
		c.table(b)
	case BarChart:
		c.chart(b)
	case Logo:
		c.logo(b)
	case Spacer:
		c.pdf.Ln(b.Height)
	case PageBreak:
		c.pdf.AddPage()
	}
}

func (c *canvas) reserve(height float64) {
	_, _, _, bottom := c.pdf.GetMargins()
	if c.pdf.GetY()+height > c.pageHeight-bottom {
		c.pdf.AddPage()
	}
}

func (c *canvas) paragraph(p Paragraph) {
	font := fonts[p.Style]
	c.pdf.SetFont(fontFamily, font.style, font.size)
	c.pdf.SetTextColor(0, 0, 0)

	align := "L"
	height := lineHeight
	if p.Style == StyleTitle {
		align = "C"
		height = 30
	}
	if p.Style == StyleHeading2 || p.Style == StyleHeading3 {
		c.reserve(height * 3)
	}
	c.pdf.MultiCell(0, height, c.tr(p.Text), "", align, false)
	if p.Style == StyleHeading2 || p.Style == StyleHeading3 {
		c.pdf.Ln(4)
	}
}

func (c *canvas) table(t Table) {
	c.pdf.SetFont(fontFamily, "", 9)
	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.SetDrawColor(gridColor[0], gridColor[1], gridColor[2])
	c.pdf.SetLineWidth(0.5)
	c.pdf.SetFillColor(shade[0], shade[1], shade[2])

	for i, row := range t.Rows {
		c.reserve(rowHeight)
		for j, cell := range row {
			width := 100.0
			if j < len(t.Widths) {
				width = t.Widths[j]
			}
			c.pdf.CellFormat(width, rowHeight, c.tr(c.fit(cell, width)), "1", 0, "L", i == 0, 0, "")
		}
		c.pdf.Ln(-1)
	}
	c.pdf.Ln(6)
}

// fit shortens text that would overflow a cell of the given width.
func (c *canvas) fit(text string, width float64) string {
	limit := width - 6
	if c.pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && c.pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (c *canvas) chart(b BarChart) {
	c.reserve(b.Height)
	left, _, _, _ := c.pdf.GetMargins()
	x, y := left, c.pdf.GetY()

	c.pdf.SetFont(fontFamily, "", 9)
	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.Text(x+40, y+12, c.tr(b.Title))

	plotX, plotY := x+40, y+25
	plotW, plotH := b.Width-70, b.Height-60

	peak := 0.0
	for _, v := range b.Values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	c.pdf.SetDrawColor(0, 0, 0)
	c.pdf.SetLineWidth(0.5)
	c.pdf.Line(plotX, plotY, plotX, plotY+plotH)
	c.pdf.Line(plotX, plotY+plotH, plotX+plotW, plotY+plotH)

	c.pdf.SetFont(fontFamily, "", 7)
	c.pdf.Text(plotX-c.pdf.GetStringWidth(formatTick(peak))-4, plotY+3, formatTick(peak))
	c.pdf.Text(plotX-c.pdf.GetStringWidth("0")-4, plotY+plotH+3, "0")

	if n := len(b.Values); n > 0 {
		slot := plotW / float64(n)
		barWidth := min(slot*0.7, 40)
		c.pdf.SetFillColor(accent[0], accent[1], accent[2])
		for i, v := range b.Values {
			h := v / peak * plotH
			bx := plotX + slot*float64(i) + (slot-barWidth)/2
			if h > 0 {
				c.pdf.Rect(bx, plotY+plotH-h, barWidth, h, "F")
			}

			value := formatTick(v)
			c.pdf.Text(bx+(barWidth-c.pdf.GetStringWidth(value))/2, plotY+plotH-h-3, value)

			label := c.tr(c.fit(b.Labels[i], slot+6))
			c.pdf.Text(plotX+slot*float64(i)+(slot-c.pdf.GetStringWidth(label))/2, plotY+plotH+11, label)
		}
	}

	c.pdf.SetY(y + b.Height)
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *canvas) logo(l Logo) {
	left, _, _, _ := c.pdf.GetMargins()
	y := c.pdf.GetY()
	r := l.Size/2 - 5
	cx, cy := left+l.Size/2, y+l.Size/2

	c.pdf.SetFillColor(accent[0], accent[1], accent[2])
	c.pdf.SetDrawColor(accent[0], accent[1], accent[2])
	c.pdf.Circle(cx, cy, r, "FD")

	c.pdf.SetFont(fontFamily, "B", 16)
	c.pdf.SetTextColor(255, 255, 255)
	c.pdf.Text(cx-c.pdf.GetStringWidth(l.Initials)/2, cy+6, l.Initials)

	c.pdf.SetY(y + l.Size)
}
