// Command taxsale scrapes the PBFCM tax-sale listing page once and writes
// the records wherever the flags point: raw TSV, normalized CSV, NDJSON,
// or a markdown rendition of the page. Progress and a summary table go to
// stderr so stdout stays clean for piped output.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/use-agent/taxsale/config"
	"github.com/use-agent/taxsale/output"
	"github.com/use-agent/taxsale/scraper"
	"github.com/use-agent/taxsale/snapshot"
)

var (
	flagSourceURL  string
	flagFetchMode  string
	flagTimeout    time.Duration
	flagOutRawTSV  string
	flagRawStdout  bool
	flagOutCSV     string
	flagNDJSON     string
	flagOutPageMD  string
	flagNoColors   bool
	flagNoProgress bool
	flagNoHeadless bool
)

var rootCmd = &cobra.Command{
	Use:          "taxsale",
	Short:        "Scrape the PBFCM tax-sale listing and export the records.",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagSourceURL, "source-url", "", "override the source page URL (mirrors, test servers)")
	f.StringVar(&flagFetchMode, "fetch-mode", "", "how to fetch the page: browser, http, or auto")
	f.DurationVar(&flagTimeout, "timeout", 0, "scrape deadline, e.g. 45s")
	f.StringVar(&flagOutRawTSV, "out-raw-tsv", "", "write raw records as TSV to this file")
	f.BoolVar(&flagRawStdout, "raw-stdout", false, "write raw records as TSV to stdout")
	f.StringVar(&flagOutCSV, "out-csv", "", "write normalized records as CSV to this file")
	f.StringVar(&flagNDJSON, "ndjson", "", "write normalized records as NDJSON to this file")
	f.StringVar(&flagOutPageMD, "out-page-md", "", "write a markdown rendition of the page to this file")
	f.BoolVar(&flagNoColors, "no-colors", false, "disable ANSI colors")
	f.BoolVar(&flagNoProgress, "no-progress", false, "suppress per-record progress lines")
	f.BoolVar(&flagNoHeadless, "no-headless", false, "show the browser window while scraping")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Keep stderr quiet unless something goes wrong; progress lines and
	// the summary table are the CLI's voice, not the logger.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if flagNoColors {
		text.DisableColors()
	}

	cfg := config.Load()
	if flagSourceURL != "" {
		cfg.Scrape.SourceURL = flagSourceURL
	}
	if flagFetchMode != "" {
		if !config.ValidFetchMode(flagFetchMode) {
			return fmt.Errorf("invalid fetch mode %q (want browser, http, or auto)", flagFetchMode)
		}
		cfg.Scrape.FetchMode = flagFetchMode
	}
	if flagTimeout > 0 {
		cfg.Scrape.Timeout = flagTimeout
	}
	if flagNoHeadless {
		cfg.Browser.Headless = false
	}

	sess, err := scraper.NewSession(cfg.Browser, cfg.Scrape)
	if err != nil {
		return err
	}
	defer sess.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	fetched, err := sess.Fetch(ctx)
	if err != nil {
		return err
	}
	res, err := scraper.BuildResult(fetched.HTML, sess.SourceURL())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if !flagNoProgress {
		output.PrintProgress(os.Stderr, res.Normalized, !flagNoColors)
	}

	if flagRawStdout {
		if err := output.WriteRawTSV(os.Stdout, res.Raw); err != nil {
			return err
		}
	}
	if flagOutRawTSV != "" {
		if err := writeFile(flagOutRawTSV, func(w io.Writer) error {
			return output.WriteRawTSV(w, res.Raw)
		}); err != nil {
			return err
		}
	}
	if flagOutCSV != "" {
		if err := writeFile(flagOutCSV, func(w io.Writer) error {
			return output.WriteNormalizedCSV(w, res.Normalized)
		}); err != nil {
			return err
		}
	}
	if flagNDJSON != "" {
		if err := writeFile(flagNDJSON, func(w io.Writer) error {
			return output.WriteNDJSON(w, res.Normalized)
		}); err != nil {
			return err
		}
	}
	if flagOutPageMD != "" {
		page, err := snapshot.NewRenderer().Render(fetched.HTML, sess.SourceURL(), fetched.Title)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagOutPageMD, []byte(page.Markdown), 0o644); err != nil {
			return err
		}
	}

	output.WriteSummary(os.Stderr, res, elapsed)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
