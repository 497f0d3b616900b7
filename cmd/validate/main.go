// Command validate loads the summary and active case datasets from local CSV
// files, builds the dashboard, and checks the data and derived views for
// consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -summary data/schoolcovidsummary.csv \
//	  -active data/schoolsactivecovid.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Peterstangolis/ontschoolsapp/internal/adapter/opendata"
	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type inputs struct {
	summary         string
	active          string
	summaryEncoding string
	activeEncoding  string
	threshold       int
}

func main() {
	var in inputs
	flag.StringVar(&in.summary, "summary", "", "path to the summary CSV")
	flag.StringVar(&in.active, "active", "", "path to the active case CSV")
	flag.StringVar(&in.summaryEncoding, "summary-encoding", opendata.EncodingUTF8, "summary CSV encoding")
	flag.StringVar(&in.activeEncoding, "active-encoding", opendata.EncodingLatin1, "active case CSV encoding")
	flag.IntVar(&in.threshold, "threshold", domain.DefaultOptions().Threshold, "school case threshold")
	flag.Parse()

	if in.summary == "" || in.active == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(context.Background(), in, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, in inputs, w io.Writer) int {
	fmt.Fprintln(w, "=== School Case Data Validation ===")
	fmt.Fprintln(w)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	source, err := opendata.NewSource(opendata.FileFetcher{},
		opendata.Dataset{URL: in.summary, Encoding: in.summaryEncoding},
		opendata.Dataset{URL: in.active, Encoding: in.activeEncoding},
		domain.DefaultSchoolNameRules, observability.NewMetricsForTesting(), logger)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	parse := &phase{name: "Parse"}
	tables, err := source.Load(ctx)
	if err != nil {
		parse.errorf("%v", err)
	}

	phases := []*phase{parse}
	if parse.passed() {
		opts := domain.DefaultOptions()
		opts.Threshold = in.threshold
		phases = append(phases,
			validateInvariants(tables),
			validateAggregates(tables, opts),
		)
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d summary, %d active case\n", len(tables.Summary), len(tables.Active))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// validateInvariants checks each row for values the dashboard relies on.
func validateInvariants(t domain.Tables) *phase {
	p := &phase{name: "Invariants"}

	if len(t.Summary) == 0 {
		p.errorf("summary has no rows")
	}
	for _, r := range t.Summary {
		date := r.ReportedDate.Format("2006-01-02")
		for name, v := range map[string]int{
			"new total cases":    r.NewTotalCases,
			"cumulative cases":   r.CumulativeCases,
			"schools with cases": r.SchoolsWithCases,
			"schools closed":     r.SchoolsClosed,
			"total schools":      r.TotalSchools,
		} {
			if v < 0 {
				p.errorf("summary %s: negative %s (%d)", date, name, v)
			}
		}
		if r.TotalSchools > 0 && r.SchoolsWithCases > r.TotalSchools {
			p.errorf("summary %s: %d schools with cases exceeds %d schools", date, r.SchoolsWithCases, r.TotalSchools)
		}
		if r.TotalSchools > 0 && r.SchoolsClosed > r.TotalSchools {
			p.errorf("summary %s: %d schools closed exceeds %d schools", date, r.SchoolsClosed, r.TotalSchools)
		}
	}
	for _, d := range domain.CumulativeRegressions(t.Summary) {
		p.errorf("summary %s: cumulative cases decreased", d.Format("2006-01-02"))
	}

	if len(t.Active) == 0 {
		p.errorf("active case dataset has no rows")
	}
	for i, r := range t.Active {
		if r.School == "" {
			p.errorf("active row %d: empty school", i+1)
		}
		if r.Municipality == "" {
			p.errorf("active row %d (%s): empty municipality", i+1, r.School)
		}
		if r.TotalCases < 0 {
			p.errorf("active row %d (%s): negative total cases (%d)", i+1, r.School, r.TotalCases)
		}
		if parts := r.StudentCases + r.StaffCases + r.UnspecifiedCases; parts > 0 && parts != r.TotalCases {
			p.errorf("active row %d (%s): breakdown sums to %d, total is %d", i+1, r.School, parts, r.TotalCases)
		}
	}
	return p
}

// validateAggregates builds the dashboard and cross-checks the derived views.
func validateAggregates(t domain.Tables, opts domain.Options) *phase {
	p := &phase{name: "Aggregates"}

	d, err := domain.BuildDashboard(t, opts)
	if err != nil {
		p.errorf("build dashboard: %v", err)
		return p
	}

	if got := domain.DaysCompleted(t.Summary); got != len(t.Summary) {
		p.errorf("days completed %d does not match %d summary rows", got, len(t.Summary))
	}
	weekDays := 0
	for _, w := range d.Weekly {
		weekDays += w.Days
	}
	if weekDays != len(t.Summary) {
		p.errorf("weekly averages cover %d days, summary has %d", weekDays, len(t.Summary))
	}
	if n := len(d.Cumulative); n == 0 || !d.Cumulative[n-1].Date.Equal(d.LatestDate()) {
		p.errorf("cumulative series does not end on the latest reported date")
	}

	latest := domain.LatestActive(t.Active)
	total := 0
	for _, r := range latest {
		total += r.TotalCases
	}
	if got := rankedTotal(domain.MunicipalityRanking(t.Active, 0)); got != total {
		p.errorf("municipality ranking sums to %d, latest active cases sum to %d", got, total)
	}
	schools := domain.SchoolRanking(t.Active, 0)
	if got := rankedTotal(schools); got != total {
		p.errorf("school ranking sums to %d, latest active cases sum to %d", got, total)
	}
	if d.SchoolsOverThreshold > len(latest) {
		p.errorf("%d schools at or above %d cases exceeds %d active rows", d.SchoolsOverThreshold, d.Threshold, len(latest))
	}
	for i := 1; i < len(schools); i++ {
		if schools[i].Cases > schools[i-1].Cases {
			p.errorf("school ranking not descending at %q", schools[i].Name)
			break
		}
	}
	return p
}

func rankedTotal(entries []domain.RankEntry) int {
	n := 0
	for _, e := range entries {
		n += e.Cases
	}
	return n
}
