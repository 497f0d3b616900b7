package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"image/color"
	"math"
	"strings"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

var (
	accent    = color.RGBA{R: 0x5D, G: 0xAD, B: 0xE2, A: 0xFF}
	highlight = color.RGBA{R: 0xDC, G: 0x14, B: 0x3C, A: 0xFF}
	ink       = color.RGBA{R: 0xE5, G: 0xE8, B: 0xEB, A: 0xFF}
	rule      = color.RGBA{R: 0x4A, G: 0x52, B: 0x5A, A: 0xFF}
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 3.2 * vg.Inch
)

// errNoData is returned by chart builders given an empty series.
var errNoData = errors.New("no data")

// CumulativeChart plots cumulative cases by reported date and labels the
// most recent value.
func CumulativeChart(points []domain.SeriesPoint) (template.HTML, error) {
	if len(points) == 0 {
		return "", errNoData
	}

	p := newPlot("Cumulative school-related cases")
	p.X.Tick.Marker = plot.TimeTicks{Format: "Jan 02"}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.Date.Unix())
		xys[i].Y = float64(pt.Value)
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return "", fmt.Errorf("cumulative line: %w", err)
	}
	line.Color = accent
	line.Width = vg.Points(2)
	p.Add(line)

	last := points[len(points)-1]
	label, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{xys[len(xys)-1]},
		Labels: []string{fmt.Sprintf("%s: %d", last.Date.Format("Jan 02"), last.Value)},
	})
	if err != nil {
		return "", fmt.Errorf("cumulative label: %w", err)
	}
	styleLabels(label, draw.XRight)
	p.Add(label)
	p.Y.Min = 0

	return svg(p, chartWidth, chartHeight)
}

// WeeklyChart plots weekly average new cases, highlighting the latest week.
func WeeklyChart(weeks []domain.WeeklyAverage) (template.HTML, error) {
	if len(weeks) == 0 {
		return "", errNoData
	}

	values := make(plotter.Values, len(weeks))
	names := make([]string, len(weeks))
	for i, w := range weeks {
		values[i] = float64(w.Average)
		names[i] = w.WeekStart.Format("Jan 02")
	}

	p := newPlot("Weekly average of new cases")
	if err := addBars(p, values, len(values)-1); err != nil {
		return "", fmt.Errorf("weekly bars: %w", err)
	}
	p.NominalX(names...)
	rotateTickLabels(p, len(names) > 12)

	return svg(p, chartWidth, chartHeight)
}

// MunicipalityChart plots active cases by municipality, highlighting the
// municipality with the most cases.
func MunicipalityChart(entries []domain.RankEntry) (template.HTML, error) {
	if len(entries) == 0 {
		return "", errNoData
	}

	values := make(plotter.Values, len(entries))
	names := make([]string, len(entries))
	for i, e := range entries {
		values[i] = float64(e.Cases)
		names[i] = e.Name
	}

	p := newPlot("Active cases by municipality")
	if err := addBars(p, values, 0); err != nil {
		return "", fmt.Errorf("municipality bars: %w", err)
	}
	p.NominalX(names...)
	rotateTickLabels(p, true)

	return svg(p, chartWidth, chartHeight+vg.Inch)
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.Title.TextStyle.Color = ink
	p.BackgroundColor = color.Transparent

	for _, a := range []*plot.Axis{&p.X, &p.Y} {
		a.Color = rule
		a.Label.TextStyle.Color = ink
		a.Tick.Color = rule
		a.Tick.Label.Color = ink
	}
	return p
}

// addBars draws values as bars, overlaying bar hi in the highlight colour.
// hi < 0 disables the highlight.
func addBars(p *plot.Plot, values plotter.Values, hi int) error {
	width := vg.Points(math.Max(4, math.Min(24, 360/float64(len(values)))))

	bars, err := plotter.NewBarChart(values, width)
	if err != nil {
		return err
	}
	bars.Color = accent
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	if hi >= 0 && hi < len(values) {
		only := make(plotter.Values, len(values))
		only[hi] = values[hi]
		top, err := plotter.NewBarChart(only, width)
		if err != nil {
			return err
		}
		top.Color = highlight
		top.LineStyle.Width = vg.Length(0)
		p.Add(top)
	}

	maxValue := 0.0
	for _, v := range values {
		maxValue = math.Max(maxValue, v)
	}
	p.Y.Min = 0
	p.Y.Max = math.Max(1, maxValue*1.1)
	return nil
}

func rotateTickLabels(p *plot.Plot, rotate bool) {
	if !rotate {
		return
	}
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

func styleLabels(l *plotter.Labels, align draw.XAlignment) {
	for i := range l.TextStyle {
		l.TextStyle[i].Color = ink
		l.TextStyle[i].XAlign = align
		l.TextStyle[i].YAlign = draw.YBottom
	}
}

// svg renders p as an inline <svg> element.
func svg(p *plot.Plot, w, h vg.Length) (template.HTML, error) {
	c := vgsvg.New(w, h)
	p.Draw(draw.New(c))

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}
	out := buf.String()
	if i := strings.Index(out, "<svg"); i > 0 {
		out = out[i:]
	}
	return template.HTML(out), nil //nolint:gosec // generated by vgsvg, text is escaped
}
