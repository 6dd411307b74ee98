package ingest

import (
	"context"
	"time"
)

// Stage names the phases of one ingestion run. Error and Cancelled are
// terminal; Error is reachable from any other stage.
type Stage string

const (
	StageReading   Stage = "Reading"
	StageParsing   Stage = "Parsing"
	StageUploading Stage = "Uploading"
	StageComplete  Stage = "Complete"
	StageError     Stage = "Error"
	StageCancelled Stage = "Cancelled"
)

// ProgressSink receives progress reports at the run's suspension points:
// file-chunk boundaries during Reading and batch boundaries during
// Uploading. etaSeconds is -1 while there is no extrapolation basis.
type ProgressSink interface {
	OnProgress(stage Stage, percent float64, etaSeconds int64)
}

// CancelToken is a cooperative cancellation flag, checked at batch
// boundaries only. An in-flight batch write is never interrupted.
type CancelToken interface {
	Cancelled(ctx context.Context) bool
}

// NopSink discards progress reports.
type NopSink struct{}

func (NopSink) OnProgress(Stage, float64, int64) {}

// NeverCancel is a token that never requests cancellation.
type NeverCancel struct{}

func (NeverCancel) Cancelled(context.Context) bool { return false }

// Stage weights for the blended percentage: Reading covers 0-30,
// Uploading 30-95, Complete jumps to 100.
const (
	readingWeight   = 30.0
	uploadingWeight = 65.0
)

// reporter enforces a monotonically non-decreasing percentage across a
// run regardless of which stage reports.
type reporter struct {
	sink ProgressSink
	last float64
}

func newReporter(sink ProgressSink) *reporter {
	if sink == nil {
		sink = NopSink{}
	}
	return &reporter{sink: sink}
}

func (r *reporter) report(stage Stage, percent float64, eta int64) {
	if percent < r.last {
		percent = r.last
	}
	r.last = percent
	r.sink.OnProgress(stage, percent, eta)
}

// etaSeconds extrapolates time remaining linearly from completed
// batches. The first completed batch is no basis yet: callers receive
// -1 until at least two batches are done.
func etaSeconds(elapsed time.Duration, batchesDone, totalBatches int) int64 {
	if batchesDone < 2 || totalBatches == 0 {
		return -1
	}
	frac := float64(batchesDone) / float64(totalBatches)
	remaining := time.Duration(float64(elapsed)/frac) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return int64(remaining.Seconds())
}
