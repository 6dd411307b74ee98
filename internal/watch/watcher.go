// Package watch polls an S3 drop folder for vendor extracts and feeds
// them through the ingestion pipeline. Processed files are archived
// under processed/ in the same bucket so a scan never sees them twice.
package watch

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/liquidation-pipeline/internal/ingest"
	"github.com/ignite/liquidation-pipeline/internal/pkg/distlock"
	"github.com/ignite/liquidation-pipeline/internal/pkg/logger"
	"github.com/ignite/liquidation-pipeline/internal/sheet"
)

// Config controls the watcher's bucket and cadence.
type Config struct {
	Region     string
	AWSProfile string
	Bucket     string
	Prefix     string
	Interval   time.Duration
}

// Runner ingests one downloaded file. *ingest.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, fileBytes []byte, fileName string, opts ingest.Options) (*ingest.RunResult, error)
}

// s3API is the slice of the S3 client the watcher uses.
type s3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Watcher scans the bucket on a fixed interval and runs each new file
// through the pipeline sequentially. Sequential on purpose: ingestion
// runs over the same unit-ID space must not interleave.
type Watcher struct {
	client    s3API
	runner    Runner
	bucket    string
	prefix    string
	interval  time.Duration
	opts      ingest.Options
	lock      distlock.DistLock
	cancel    context.CancelFunc
	running   int32
	lastRunAt int64 // unix nanos, read concurrently with the poll loop
}

// New builds a watcher with a real S3 client from the ambient AWS
// config chain.
func New(ctx context.Context, cfg Config, runner Runner, opts ingest.Options) (*Watcher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AWSProfile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Watcher{
		client:   s3.NewFromConfig(awsCfg),
		runner:   runner,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		interval: interval,
		opts:     opts,
	}, nil
}

// Start launches the poll loop. The first scan runs immediately.
func (w *Watcher) Start() {
	var ctx context.Context
	ctx, w.cancel = context.WithCancel(context.Background())
	go func() {
		w.runOnce(ctx)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// UseLock makes scan cycles mutually exclusive across service replicas.
// Without a lock two replicas watching the same bucket can double-ingest
// a file that sits between their scans.
func (w *Watcher) UseLock(l distlock.DistLock) { w.lock = l }

func (w *Watcher) IsRunning() bool { return atomic.LoadInt32(&w.running) == 1 }

func (w *Watcher) LastRunAt() time.Time {
	v := atomic.LoadInt64(&w.lastRunAt)
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v)
}

// runOnce executes one scan cycle. Overlapping cycles collapse into one.
func (w *Watcher) runOnce(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&w.running, 0)
	atomic.StoreInt64(&w.lastRunAt, time.Now().UnixNano())

	if w.lock != nil {
		ok, err := w.lock.Acquire(ctx)
		if err != nil {
			logger.Error("drop folder lock failed", "error", err)
			return
		}
		if !ok {
			// Another replica is scanning this cycle.
			return
		}
		defer w.lock.Release(ctx)
	}

	keys, err := w.scan(ctx)
	if err != nil {
		logger.Error("drop folder scan failed", "bucket", w.bucket, "error", err)
		return
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		if err := w.processObject(ctx, key); err != nil {
			logger.Error("drop folder file failed", "key", key, "error", err)
		}
	}
}

// scan lists ingestable objects under the prefix, skipping the archive
// and anything that is not a CSV or workbook.
func (w *Watcher) scan(ctx context.Context) ([]string, error) {
	var keys []string
	var token *string
	for {
		page, err := w.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(w.bucket),
			Prefix:            aws.String(w.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if obj.Size == nil || *obj.Size == 0 {
				continue
			}
			if strings.Contains(key, "processed/") {
				continue
			}
			if !ingestable(key) {
				continue
			}
			keys = append(keys, key)
		}
		if page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}
	return keys, nil
}

func ingestable(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".csv") || sheet.IsWorkbook(key)
}

// processObject downloads one file, converts workbooks to CSV, runs the
// ingestion, and archives the original. The original is deleted only
// after the archive copy succeeds.
func (w *Watcher) processObject(ctx context.Context, key string) error {
	out, err := w.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	data, err := io.ReadAll(out.Body)
	out.Body.Close()
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}

	name := path.Base(key)
	if sheet.IsWorkbook(name) {
		data, err = sheet.ToCSV(data)
		if err != nil {
			return fmt.Errorf("convert workbook: %w", err)
		}
	}

	res, err := w.runner.Run(ctx, data, name, w.opts)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if res.Outcome != ingest.OutcomeCompleted {
		// Leave cancelled files in place for a rerun.
		logger.Info("drop folder file not completed", "key", key, "outcome", res.Outcome)
		return nil
	}

	archived := path.Join(path.Dir(key), "processed", name)
	if _, err := w.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(w.bucket),
		CopySource: aws.String(w.bucket + "/" + key),
		Key:        aws.String(archived),
	}); err != nil {
		return fmt.Errorf("archive copy: %w", err)
	}
	if _, err := w.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	}); err != nil {
		logger.Warn("delete after archive failed", "key", key, "error", err)
	}

	logger.Info("drop folder file ingested",
		"key", key, "archived", archived, "units", res.UnitsWritten)
	return nil
}
