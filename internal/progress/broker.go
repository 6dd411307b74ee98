// Package progress publishes ingestion run progress through Redis so
// the HTTP API (and anything else watching) can poll it without holding
// a connection to the worker. It also carries the cooperative cancel
// flag for a run.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/liquidation-pipeline/internal/ingest"
)

// RunTTL keeps finished-run snapshots readable for a while after the
// run ends, then lets Redis expire them.
const RunTTL = 24 * time.Hour

// Snapshot is the JSON document stored per run.
type Snapshot struct {
	RunID      string       `json:"run_id"`
	Stage      ingest.Stage `json:"stage"`
	Percent    float64      `json:"percent"`
	ETASeconds int64        `json:"eta_seconds"` // -1 while unknown
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Broker reads and writes run state in Redis.
type Broker struct {
	rdb *redis.Client
}

func NewBroker(rdb *redis.Client) *Broker {
	return &Broker{rdb: rdb}
}

func (b *Broker) progressKey(runID string) string {
	return fmt.Sprintf("ingest:progress:%s", runID)
}

func (b *Broker) cancelKey(runID string) string {
	return fmt.Sprintf("ingest:cancel:%s", runID)
}

// Publish overwrites the run's snapshot. Publish failures are dropped:
// progress is advisory and must never stall an ingestion.
func (b *Broker) Publish(ctx context.Context, snap Snapshot) {
	snap.UpdatedAt = time.Now()
	data, _ := json.Marshal(snap)
	b.rdb.Set(ctx, b.progressKey(snap.RunID), data, RunTTL)
}

// Get returns the latest snapshot for a run, or nil when none exists.
func (b *Broker) Get(ctx context.Context, runID string) (*Snapshot, error) {
	data, err := b.rdb.Get(ctx, b.progressKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress %s: %w", runID, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", runID, err)
	}
	return &snap, nil
}

// RequestCancel sets the cancel flag for a run. The worker notices at
// its next batch boundary.
func (b *Broker) RequestCancel(ctx context.Context, runID string) error {
	return b.rdb.Set(ctx, b.cancelKey(runID), "1", RunTTL).Err()
}

// Cancelled reports whether cancellation was requested for a run.
func (b *Broker) Cancelled(ctx context.Context, runID string) bool {
	n, err := b.rdb.Exists(ctx, b.cancelKey(runID)).Result()
	return err == nil && n > 0
}

// Sink adapts the broker to one run's progress reports.
type Sink struct {
	broker *Broker
	runID  string
}

func (b *Broker) Sink(runID string) *Sink {
	return &Sink{broker: b, runID: runID}
}

func (s *Sink) OnProgress(stage ingest.Stage, percent float64, etaSeconds int64) {
	s.broker.Publish(context.Background(), Snapshot{
		RunID:      s.runID,
		Stage:      stage,
		Percent:    percent,
		ETASeconds: etaSeconds,
	})
}

// Token adapts the broker's cancel flag to one run.
type Token struct {
	broker *Broker
	runID  string
}

func (b *Broker) Token(runID string) *Token {
	return &Token{broker: b, runID: runID}
}

func (t *Token) Cancelled(ctx context.Context) bool {
	return t.broker.Cancelled(ctx, t.runID)
}
