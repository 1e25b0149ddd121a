// Benchmark harness comparing the three fetch modes against the live
// source page: how long each takes, how many records each extracts, and
// which transport auto mode lands on. Run it before changing fetch-mode
// defaults.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/taxsale/config"
	"github.com/use-agent/taxsale/scraper"
)

// CLI flags
var (
	sourceURL = flag.String("source-url", "", "override the source page URL")
	timeout   = flag.Duration("timeout", 0, "per-scrape deadline override")
	runs      = flag.Int("runs", 3, "number of runs per fetch mode for averaging")
	output    = flag.String("output", "benchmark-results.json", "JSON output file path")
)

var fetchModes = []string{
	config.FetchModeHTTP,
	config.FetchModeAuto,
	config.FetchModeBrowser,
}

// --- Benchmark result types ---

type runResult struct {
	Run     int    `json:"run"`
	TotalMs int64  `json:"total_ms"`
	Records int    `json:"records"`
	Method  string `json:"method"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type modeAverages struct {
	TotalMs float64 `json:"total_ms"`
	Records float64 `json:"records"`
}

type modeResult struct {
	Mode     string        `json:"mode"`
	Runs     []runResult   `json:"runs"`
	Averages *modeAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	SourceURL   string       `json:"source_url"`
	RunsPerMode int          `json:"runs_per_mode"`
	Results     []modeResult `json:"results"`
}

func main() {
	flag.Parse()

	// Progress lines are the script's voice; keep the logger to warnings.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg := config.Load()
	if *sourceURL != "" {
		cfg.Scrape.SourceURL = *sourceURL
	}
	if *timeout > 0 {
		cfg.Scrape.Timeout = *timeout
	}

	fmt.Println("=== Taxsale Fetch-Mode Benchmark ===")
	fmt.Printf("Source:    %s\n", cfg.Scrape.SourceURL)
	fmt.Printf("Runs/mode: %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		SourceURL:   cfg.Scrape.SourceURL,
		RunsPerMode: *runs,
	}

	for _, mode := range fetchModes {
		fmt.Printf("Benchmarking fetch mode %q ...\n", mode)
		mr := modeResult{Mode: mode}

		cfg.Scrape.FetchMode = mode
		sess, err := scraper.NewSession(cfg.Browser, cfg.Scrape)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot create session for mode %q: %v\n", mode, err)
			os.Exit(1)
		}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkScrape(sess, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d records via %s\n", rr.TotalMs, rr.Records, rr.Method)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			mr.Runs = append(mr.Runs, rr)
		}

		sess.Stop()
		mr.Averages = computeAverages(mr.Runs)
		report.Results = append(report.Results, mr)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func benchmarkScrape(sess *scraper.Session, run int) runResult {
	rr := runResult{Run: run}

	start := time.Now()
	fetched, err := sess.Fetch(context.Background())
	if err != nil {
		rr.TotalMs = time.Since(start).Milliseconds()
		rr.Error = err.Error()
		return rr
	}
	res, err := scraper.BuildResult(fetched.HTML, sess.SourceURL())
	rr.TotalMs = time.Since(start).Milliseconds()
	if err != nil {
		rr.Error = err.Error()
		return rr
	}

	rr.Success = true
	rr.Records = res.Count
	rr.Method = fetched.Method
	return rr
}

func computeAverages(runs []runResult) *modeAverages {
	var successCount int
	var avg modeAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Records += float64(r.Records)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Records /= n
	return &avg
}

func printTable(results []modeResult) {
	fmt.Println(strings.Repeat("─", 60))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Mode\tAvg Latency\tAvg Records\tFetched Via\n")
	fmt.Fprintf(w, "────\t───────────\t───────────\t───────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", r.Mode)
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%s\n",
			r.Mode,
			int64(r.Averages.TotalMs),
			r.Averages.Records,
			dominantMethod(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 60))
}

// dominantMethod reports which transport most runs ended up on. Only
// interesting for auto mode, where the page decides.
func dominantMethod(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.Method]++
		}
	}
	best, bestCount := "-", 0
	for method, count := range counts {
		if count > bestCount {
			best = method
			bestCount = count
		}
	}
	return best
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
