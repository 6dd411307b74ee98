package watch

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/liquidation-pipeline/internal/ingest"
)

// fakeBucket is an in-memory s3API.
type fakeBucket struct {
	objects map[string][]byte
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		size := int64(len(f.objects[k]))
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(k),
			Size: aws.Int64(size),
		})
	}
	return out, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	src := aws.ToString(in.CopySource)
	// CopySource is "bucket/key".
	key := src[len("drop-bucket/"):]
	f.objects[aws.ToString(in.Key)] = f.objects[key]
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// fakeRunner records the files it was handed.
type fakeRunner struct {
	files   []string
	outcome ingest.Outcome
}

func (r *fakeRunner) Run(_ context.Context, _ []byte, fileName string, _ ingest.Options) (*ingest.RunResult, error) {
	r.files = append(r.files, fileName)
	outcome := r.outcome
	if outcome == "" {
		outcome = ingest.OutcomeCompleted
	}
	return &ingest.RunResult{Outcome: outcome}, nil
}

func newTestWatcher(bucket *fakeBucket, runner Runner) *Watcher {
	return &Watcher{
		client: bucket,
		runner: runner,
		bucket: "drop-bucket",
		prefix: "drops/",
	}
}

func TestScanSkipsArchiveAndForeignFiles(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"drops/Sales 02.01.25.csv":           []byte("Unit_ID\n1\n"),
		"drops/Inbound_02.03.25.xlsx":        []byte("pk"),
		"drops/readme.txt":                   []byte("hi"),
		"drops/processed/Sales 01.25.25.csv": []byte("Unit_ID\n1\n"),
		"drops/empty.csv":                    {},
	}}
	w := newTestWatcher(bucket, &fakeRunner{})

	keys, err := w.scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"drops/Inbound_02.03.25.xlsx", "drops/Sales 02.01.25.csv"}, keys)
}

func TestProcessObjectIngestsAndArchives(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"drops/Sales 02.01.25.csv": []byte("Unit_ID\n10001\n"),
	}}
	runner := &fakeRunner{}
	w := newTestWatcher(bucket, runner)

	require.NoError(t, w.processObject(context.Background(), "drops/Sales 02.01.25.csv"))

	assert.Equal(t, []string{"Sales 02.01.25.csv"}, runner.files)
	_, original := bucket.objects["drops/Sales 02.01.25.csv"]
	_, archived := bucket.objects["drops/processed/Sales 02.01.25.csv"]
	assert.False(t, original, "original should be deleted after archiving")
	assert.True(t, archived)
}

func TestProcessObjectLeavesCancelledRunsInPlace(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"drops/Sales 02.01.25.csv": []byte("Unit_ID\n10001\n"),
	}}
	w := newTestWatcher(bucket, &fakeRunner{outcome: ingest.OutcomeCancelled})

	require.NoError(t, w.processObject(context.Background(), "drops/Sales 02.01.25.csv"))

	_, original := bucket.objects["drops/Sales 02.01.25.csv"]
	assert.True(t, original, "cancelled runs keep the file for a rerun")
}

func TestLastRunAtReadableWhileScanning(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"drops/Sales 02.01.25.csv": []byte("Unit_ID\n1\n"),
	}}
	w := newTestWatcher(bucket, &fakeRunner{})

	assert.True(t, w.LastRunAt().IsZero(), "no cycle has run yet")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			w.runOnce(context.Background())
		}
	}()
	// Poll concurrently with the cycles; the race detector flags any
	// unsynchronized access.
	for i := 0; i < 100; i++ {
		_ = w.LastRunAt()
	}
	<-done

	assert.False(t, w.LastRunAt().IsZero())
}

type deniedLock struct{ released bool }

func (l *deniedLock) Acquire(context.Context) (bool, error) { return false, nil }
func (l *deniedLock) Release(context.Context) error         { l.released = true; return nil }

func TestRunOnceSkipsCycleWhenLockHeldElsewhere(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"drops/Sales 02.01.25.csv": []byte("Unit_ID\n1\n"),
	}}
	runner := &fakeRunner{}
	w := newTestWatcher(bucket, runner)
	w.UseLock(&deniedLock{})

	w.runOnce(context.Background())

	assert.Empty(t, runner.files, "cycle must be skipped while another replica scans")
}

func TestRunOnceProcessesWholeDropFolder(t *testing.T) {
	bucket := &fakeBucket{objects: map[string][]byte{
		"drops/Outbound 02.01.25.csv": []byte("Unit_ID\n1\n"),
		"drops/Sales 02.01.25.csv":    []byte("Unit_ID\n2\n"),
	}}
	runner := &fakeRunner{}
	w := newTestWatcher(bucket, runner)

	w.runOnce(context.Background())

	assert.ElementsMatch(t, []string{"Outbound 02.01.25.csv", "Sales 02.01.25.csv"}, runner.files)
	assert.False(t, w.LastRunAt().IsZero())
}
