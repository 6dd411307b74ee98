// Command ingest runs one file through the pipeline from the terminal.
// Useful for backfills and for checking a vendor extract before it goes
// in the drop folder.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ignite/liquidation-pipeline/internal/config"
	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/ingest"
	"github.com/ignite/liquidation-pipeline/internal/sheet"
	"github.com/ignite/liquidation-pipeline/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	batchSize := flag.Int("batch-size", 0, "rows per batch (0 = config value)")
	strict := flag.Bool("strict-ids", false, "skip rows with non-numeric unit IDs")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file.csv|file.xlsx>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	filePath := flag.Arg(0)

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", filePath, err)
	}
	fileName := filepath.Base(filePath)
	if sheet.IsWorkbook(fileName) {
		if data, err = sheet.ToCSV(data); err != nil {
			log.Fatalf("Failed to convert workbook: %v", err)
		}
	}

	pg, err := store.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	ctx := context.Background()
	schedule := fees.NewSchedule()
	if err := schedule.LoadFrom(ctx, pg); err != nil {
		log.Printf("Fee schedule load failed, using built-in defaults: %v", err)
	}

	orch := ingest.New(pg, schedule, ingest.Limits{
		MaxFileBytes: cfg.Ingest.MaxFileBytes,
		MaxRows:      cfg.Ingest.MaxRows,
	})
	opts := ingest.Options{
		BatchSize: cfg.Ingest.BatchSize,
		StrictIDs: cfg.Ingest.StrictIDs || *strict,
	}
	if *batchSize > 0 {
		opts.BatchSize = *batchSize
	}

	res, err := orch.Run(ctx, data, fileName, opts)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Run %s: %s\n", res.RunID, res.Outcome)
	fmt.Printf("  file:          %s (%s)\n", fileName, res.Category)
	fmt.Printf("  business date: %s\n", res.BusinessDate.Format("2006-01-02"))
	fmt.Printf("  rows:          %d total, %d skipped\n", res.RowsTotal, res.RowsSkipped)
	fmt.Printf("  written:       %d units, %d events, %d sales, %d fees\n",
		res.UnitsWritten, res.EventsWritten, res.SalesWritten, res.FeesWritten)
	fmt.Printf("  duration:      %s\n", res.Duration.Round(time.Millisecond))
}
