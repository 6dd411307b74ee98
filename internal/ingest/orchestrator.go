// Package ingest drives one ingestion run end to end: read, parse,
// build records, batch, write to the four derived stores, and finalize.
// Writes are strictly sequential; only the canonical store is fatal on
// failure, the secondary stores are best-effort.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/fiscal"
	"github.com/ignite/liquidation-pipeline/internal/lifecycle"
	"github.com/ignite/liquidation-pipeline/internal/pkg/logger"
	"github.com/ignite/liquidation-pipeline/internal/store"
	"github.com/ignite/liquidation-pipeline/internal/tabular"
	"github.com/ignite/liquidation-pipeline/internal/unit"
)

var (
	ErrNoUsableRows = errors.New("file contains no usable records")
	ErrFileTooLarge = errors.New("file exceeds the size ceiling")
	ErrTooManyRows  = errors.New("file exceeds the row ceiling")
)

const (
	DefaultBatchSize    = 100
	DefaultMaxFileBytes = 50 * 1024 * 1024
	DefaultMaxRows      = 500_000

	// Reading decodes in chunks of this size so peak memory stays
	// bounded and the scheduler gets control between chunks.
	readChunkSize = 256 * 1024
)

// Options tunes one run. Zero values fall back to defaults. RunID lets
// a caller name the run up front so progress can be watched while the
// run is still going; when zero a fresh ID is generated.
type Options struct {
	RunID     uuid.UUID
	BatchSize int
	StrictIDs bool
	Progress  ProgressSink
	Cancel    CancelToken
}

// Limits are policy ceilings checked before Parsing begins.
type Limits struct {
	MaxFileBytes int64
	MaxRows      int
}

// Outcome is the terminal state of a run. Cancelled is deliberately
// distinct from both Complete and Error.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// RunResult is the end-of-run summary surfaced to the user. Per-row
// skips and secondary-write failures stay in the logs.
type RunResult struct {
	RunID         uuid.UUID
	Outcome       Outcome
	Category      tabular.FileCategory
	BusinessDate  time.Time
	RowsTotal     int
	RowsSkipped   int
	UnitsWritten  int
	EventsWritten int
	SalesWritten  int
	FeesWritten   int
	Duration      time.Duration
	Message       string
}

// Orchestrator runs ingestions against a store and fee schedule. It
// holds no per-run state: use one instance for sequential runs, but
// serialize concurrent runs over the same unit-ID space yourself.
type Orchestrator struct {
	store  store.Store
	fees   *fees.Schedule
	limits Limits
}

// New creates an orchestrator. Zero limits fall back to the defaults.
func New(st store.Store, schedule *fees.Schedule, limits Limits) *Orchestrator {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = DefaultMaxFileBytes
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = DefaultMaxRows
	}
	return &Orchestrator{store: st, fees: schedule, limits: limits}
}

// Run ingests one file. The returned error is non-nil only for aborts
// and fatal failures; cancellation yields a RunResult with
// OutcomeCancelled and a nil error. Batches committed before a fatal
// failure or cancellation stay committed; there is no rollback.
func (o *Orchestrator) Run(ctx context.Context, fileBytes []byte, fileName string, opts Options) (*RunResult, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Cancel == nil {
		opts.Cancel = NeverCancel{}
	}
	rep := newReporter(opts.Progress)

	res := &RunResult{RunID: opts.RunID}
	if res.RunID == uuid.Nil {
		res.RunID = uuid.New()
	}

	fail := func(err error) (*RunResult, error) {
		res.Outcome = OutcomeError
		res.Duration = time.Since(start)
		res.Message = err.Error()
		rep.report(StageError, rep.last, -1)
		return res, err
	}

	// Reading: policy ceilings first, then chunked decode.
	if int64(len(fileBytes)) > o.limits.MaxFileBytes {
		return fail(fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(fileBytes), o.limits.MaxFileBytes))
	}
	text, lines, err := o.decode(ctx, fileBytes, rep)
	if err != nil {
		return fail(err)
	}
	if lines > o.limits.MaxRows {
		return fail(fmt.Errorf("%w: %d rows (limit %d)", ErrTooManyRows, lines, o.limits.MaxRows))
	}

	// Parsing. A file yielding zero usable records aborts before any
	// write: this is a file-level failure, not a pile of row skips.
	rep.report(StageParsing, readingWeight, -1)
	parsed, err := tabular.Parse(strings.NewReader(text), fileName, opts.StrictIDs)
	if err != nil {
		return fail(err)
	}
	res.Category = parsed.Category
	res.RowsTotal = parsed.TotalRows
	res.RowsSkipped = parsed.SkippedRows
	if len(parsed.Rows) == 0 {
		return fail(fmt.Errorf("%w: %d rows, %d skipped", ErrNoUsableRows, parsed.TotalRows, parsed.SkippedRows))
	}

	businessDate := fiscal.Noon(time.Now())
	if parsed.BusinessDate != nil {
		businessDate = *parsed.BusinessDate
	}
	res.BusinessDate = businessDate

	builder := unit.NewBuilder(o.fees)
	records := make([]*unit.Record, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		records = append(records, builder.FromRow(row))
	}

	logger.Info("ingestion run starting",
		"run_id", res.RunID, "file", fileName, "category", parsed.Category,
		"records", len(records), "skipped", parsed.SkippedRows)

	// The FileRun row is the first write of the run. It stays
	// unprocessed until every batch lands.
	fileRun := &store.FileRun{
		ID:           res.RunID,
		FileName:     fileName,
		Category:     string(parsed.Category),
		BusinessDate: businessDate,
		RowCount:     parsed.TotalRows,
	}
	if err := o.store.CreateFileRun(ctx, fileRun); err != nil {
		return fail(err)
	}

	// Uploading: strictly sequential batches. Canonical failure is
	// fatal; event/sales/fee failures are logged and the run goes on.
	uploadStart := time.Now()
	totalBatches := (len(records) + opts.BatchSize - 1) / opts.BatchSize
	for i := 0; i < totalBatches; i++ {
		lo := i * opts.BatchSize
		hi := lo + opts.BatchSize
		if hi > len(records) {
			hi = len(records)
		}
		batch := records[lo:hi]

		if err := o.store.UpsertUnits(ctx, batch); err != nil {
			logger.Error("canonical upsert failed, aborting run",
				"run_id", res.RunID, "batch", i+1, "error", err)
			return fail(fmt.Errorf("canonical upsert (batch %d/%d): %w", i+1, totalBatches, err))
		}
		res.UnitsWritten += len(batch)

		var events []lifecycle.Event
		for _, rec := range batch {
			events = append(events, lifecycle.ExpandEvents(rec, businessDate)...)
		}
		if err := o.store.AppendEvents(ctx, events); err != nil {
			logger.Warn("lifecycle event insert failed, continuing",
				"run_id", res.RunID, "batch", i+1, "error", err)
		} else {
			res.EventsWritten += len(events)
		}

		if parsed.Category.ImpliesSales() {
			var sales []*store.SalesMetric
			for _, rec := range batch {
				if m := store.NewSalesMetric(rec); m != nil {
					sales = append(sales, m)
				}
			}
			if err := o.store.UpsertSalesMetrics(ctx, sales); err != nil {
				logger.Warn("sales metric upsert failed, continuing",
					"run_id", res.RunID, "batch", i+1, "error", err)
			} else {
				res.SalesWritten += len(sales)
			}
		}

		if parsed.Category.ImpliesFees() {
			var feeRows []*store.FeeMetric
			for _, rec := range batch {
				if m := store.NewFeeMetric(rec); m != nil {
					feeRows = append(feeRows, m)
				}
			}
			if err := o.store.UpsertFeeMetrics(ctx, feeRows); err != nil {
				logger.Warn("fee metric upsert failed, continuing",
					"run_id", res.RunID, "batch", i+1, "error", err)
			} else {
				res.FeesWritten += len(feeRows)
			}
		}

		done := i + 1
		percent := readingWeight + uploadingWeight*float64(done)/float64(totalBatches)
		rep.report(StageUploading, percent, etaSeconds(time.Since(uploadStart), done, totalBatches))

		if opts.Cancel.Cancelled(ctx) || ctx.Err() != nil {
			// Committed batches stay committed; the run is incomplete,
			// not errored, and the FileRun stays unprocessed.
			res.Outcome = OutcomeCancelled
			res.Duration = time.Since(start)
			res.Message = fmt.Sprintf("cancelled after %d of %d batches", done, totalBatches)
			rep.report(StageCancelled, percent, -1)
			logger.Info("ingestion run cancelled", "run_id", res.RunID, "batches_done", done)
			return res, nil
		}
	}

	if err := o.store.MarkFileRunProcessed(ctx, res.RunID, parsed.TotalRows); err != nil {
		return fail(fmt.Errorf("mark run processed: %w", err))
	}

	res.Outcome = OutcomeCompleted
	res.Duration = time.Since(start)
	res.Message = fmt.Sprintf("processed %d records from %d rows", res.UnitsWritten, res.RowsTotal)
	rep.report(StageComplete, 100, 0)
	logger.Info("ingestion run complete",
		"run_id", res.RunID, "units", res.UnitsWritten, "events", res.EventsWritten,
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// decode converts the raw bytes to text in bounded chunks, reporting
// Reading progress and yielding at each chunk boundary. It also counts
// data lines so the row ceiling can be enforced before Parsing.
func (o *Orchestrator) decode(ctx context.Context, fileBytes []byte, rep *reporter) (string, int, error) {
	var sb strings.Builder
	sb.Grow(len(fileBytes))
	lines := 0

	total := len(fileBytes)
	for off := 0; off < total; off += readChunkSize {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		end := off + readChunkSize
		if end > total {
			end = total
		}
		chunk := fileBytes[off:end]
		lines += bytes.Count(chunk, []byte{'\n'})
		sb.Write(chunk)

		rep.report(StageReading, readingWeight*float64(end)/float64(total), -1)
	}
	if total == 0 {
		return "", 0, tabular.ErrEmptyFile
	}
	return sb.String(), lines, nil
}
