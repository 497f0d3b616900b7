// Package render turns a built dashboard into a single HTML page.
package render

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"signed":     signed,
	"deltaClass": deltaClass,
	"day":        func(t time.Time) string { return t.Format("January 2, 2006") },
	"inc":        func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html"))

// Title heads every page.
const Title = "Ontario Schools: COVID-19 Cases"

type tile struct {
	Label string
	Value string
	Note  string
	Delta *domain.Delta
}

type chart struct {
	Title string
	SVG   template.HTML
}

type pageView struct {
	Title          string
	Dashboard      domain.Dashboard
	Tiles          []tile
	Cumulative     chart
	Weekly         chart
	Municipalities chart
	Gauge          gauge
}

type errorView struct {
	Title   string
	Heading string
	Detail  string
}

// Page writes the dashboard page. A chart that cannot be drawn is replaced
// by a placeholder; only template failures are returned.
func Page(w io.Writer, d domain.Dashboard, logger *slog.Logger) error {
	view := pageView{
		Title:     Title,
		Dashboard: d,
		Tiles:     tiles(d),
		Gauge:     newGauge(d.DaysCompleted, d.SchoolYearDays, d.GaugeWarning()),
	}
	view.Cumulative = drawChart("Cumulative cases", func() (template.HTML, error) { return CumulativeChart(d.Cumulative) }, logger)
	view.Weekly = drawChart("Weekly average of new cases", func() (template.HTML, error) { return WeeklyChart(d.Weekly) }, logger)
	view.Municipalities = drawChart("Active cases by municipality", func() (template.HTML, error) { return MunicipalityChart(d.Municipalities) }, logger)

	if err := pages.ExecuteTemplate(w, "page.html", view); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// ErrorPage writes the page shown in place of the dashboard when it cannot
// be built.
func ErrorPage(w io.Writer, heading, detail string) error {
	view := errorView{Title: Title, Heading: heading, Detail: detail}
	if err := pages.ExecuteTemplate(w, "error.html", view); err != nil {
		return fmt.Errorf("render error page: %w", err)
	}
	return nil
}

func tiles(d domain.Dashboard) []tile {
	delta := func(v domain.Delta) *domain.Delta { return &v }
	return []tile{
		{Label: "Reported cases", Value: strconv.Itoa(d.Deltas.TotalCases.Latest), Delta: delta(d.Deltas.TotalCases)},
		{Label: "Student cases", Value: strconv.Itoa(d.Deltas.StudentCases.Latest), Delta: delta(d.Deltas.StudentCases)},
		{Label: "Staff cases", Value: strconv.Itoa(d.Deltas.StaffCases.Latest), Delta: delta(d.Deltas.StaffCases)},
		{
			Label: "Schools with active cases",
			Value: strconv.Itoa(d.Deltas.SchoolsWithCases.Latest),
			Note:  fmt.Sprintf("%s of %d schools", d.PercentSchoolsWithCases, d.TotalSchools),
			Delta: delta(d.Deltas.SchoolsWithCases),
		},
		{Label: "Schools closed", Value: strconv.Itoa(d.Deltas.SchoolsClosed.Latest), Delta: delta(d.Deltas.SchoolsClosed)},
		{
			Label: fmt.Sprintf("Schools with %d+ active cases", d.Threshold),
			Value: strconv.Itoa(d.SchoolsOverThreshold),
			Note:  "as of " + d.ActiveDate.Format("Jan 2"),
		},
	}
}

func drawChart(title string, draw func() (template.HTML, error), logger *slog.Logger) chart {
	svg, err := draw()
	if err != nil && !errors.Is(err, errNoData) {
		logger.Warn("chart failed", "chart", title, "error", err)
	}
	return chart{Title: title, SVG: svg}
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func deltaClass(n int) string {
	switch {
	case n > 0:
		return "up"
	case n < 0:
		return "down"
	default:
		return "flat"
	}
}

// gauge is a half-circle progress dial drawn in a 200x110 viewBox.
type gauge struct {
	Days    int
	Max     int
	Warning int
	Warn    bool
	Track   string
	Arc     string
	TickX1  string
	TickY1  string
	TickX2  string
	TickY2  string
}

const (
	gaugeCX     = 100.0
	gaugeCY     = 100.0
	gaugeRadius = 80.0
)

func newGauge(days, maxDays, warning int) gauge {
	g := gauge{Days: days, Max: maxDays, Warning: warning, Warn: days >= warning}
	g.Track = arcPath(1)
	frac := 0.0
	if maxDays > 0 {
		frac = math.Min(1, float64(days)/float64(maxDays))
	}
	if frac > 0 {
		g.Arc = arcPath(frac)
	}
	if maxDays > 0 {
		wf := math.Min(1, float64(warning)/float64(maxDays))
		x1, y1 := gaugePoint(wf, gaugeRadius-10)
		x2, y2 := gaugePoint(wf, gaugeRadius+10)
		g.TickX1, g.TickY1, g.TickX2, g.TickY2 = coord(x1), coord(y1), coord(x2), coord(y2)
	}
	return g
}

// arcPath draws the dial from its left end through frac of the half circle.
func arcPath(frac float64) string {
	x0, y0 := gaugePoint(0, gaugeRadius)
	x1, y1 := gaugePoint(frac, gaugeRadius)
	return fmt.Sprintf("M %s %s A %g %g 0 0 1 %s %s",
		coord(x0), coord(y0), gaugeRadius, gaugeRadius, coord(x1), coord(y1))
}

func gaugePoint(frac, r float64) (float64, float64) {
	angle := math.Pi * (1 - frac)
	return gaugeCX + r*math.Cos(angle), gaugeCY - r*math.Sin(angle)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
