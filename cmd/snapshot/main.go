// Command snapshot fetches both datasets once, builds the dashboard, and
// writes it as an XLSX workbook and optionally as JSON.
//
// Usage:
//
//	go run ./cmd/snapshot -out dashboard.xlsx -json dashboard.json
//
// Dataset URLs, encodings, and aggregation settings come from the same
// environment variables as the server. -summary-file and -active-file read
// local CSVs instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Peterstangolis/ontschoolsapp/internal/adapter/opendata"
	"github.com/Peterstangolis/ontschoolsapp/internal/config"
	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/export"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "dashboard.xlsx", "output path for the XLSX workbook")
	jsonOut := flag.String("json", "", "optional output path for the dashboard as JSON")
	summaryFile := flag.String("summary-file", "", "read the summary dataset from a local CSV")
	activeFile := flag.String("active-file", "", "read the active case dataset from a local CSV")
	flag.Parse()

	if (*summaryFile == "") != (*activeFile == "") {
		flag.Usage()
		return fmt.Errorf("-summary-file and -active-file must be given together")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetricsForTesting()

	summary := opendata.Dataset{URL: cfg.SummaryURL, Encoding: cfg.SummaryEncoding}
	active := opendata.Dataset{URL: cfg.ActiveCasesURL, Encoding: cfg.ActiveCasesEncoding}
	var fetcher opendata.Fetcher = opendata.NewClient(cfg.FetchTimeout, cfg.FetchRetries, metrics, logger)
	if *summaryFile != "" {
		fetcher = opendata.FileFetcher{}
		summary.URL, active.URL = *summaryFile, *activeFile
	}

	source, err := opendata.NewSource(fetcher, summary, active, domain.DefaultSchoolNameRules, metrics, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tables, err := source.Load(ctx)
	if err != nil {
		return err
	}
	d, err := domain.BuildDashboard(tables, domain.Options{
		Threshold:         cfg.SchoolCaseThreshold,
		MunicipalityLimit: cfg.MunicipalityLimit,
		SchoolLimit:       cfg.SchoolLimit,
		SchoolYearDays:    cfg.SchoolYearDays,
	})
	if err != nil {
		return err
	}

	if err := writeFile(*out, func(f *os.File) error { return export.WriteWorkbook(f, d) }); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	log.Printf("wrote %s (latest date %s)", *out, d.LatestDate().Format("2006-01-02"))

	if *jsonOut != "" {
		err := writeFile(*jsonOut, func(f *os.File) error {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			return enc.Encode(d)
		})
		if err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		log.Printf("wrote %s", *jsonOut)
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
