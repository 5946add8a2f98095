package orchestrator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/datakite/resampled/internal/metastore"
	"github.com/datakite/resampled/pkg/types"
)

type fakeStore struct {
	putIfAbsent   func(ctx context.Context, rec types.RequestRecord) error
	get           func(ctx context.Context, requestID string) (*types.RequestRecord, error)
	recordOutcome func(ctx context.Context, requestID string, out metastore.Outcome) error

	outcomes []metastore.Outcome
}

func (f *fakeStore) PutIfAbsent(ctx context.Context, rec types.RequestRecord) error {
	if f.putIfAbsent != nil {
		return f.putIfAbsent(ctx, rec)
	}
	return nil
}

func (f *fakeStore) Get(ctx context.Context, requestID string) (*types.RequestRecord, error) {
	if f.get != nil {
		return f.get(ctx, requestID)
	}
	return nil, types.NewNotFoundError("record with requestId %s does not exist", requestID)
}

func (f *fakeStore) RecordOutcome(ctx context.Context, requestID string, out metastore.Outcome) error {
	f.outcomes = append(f.outcomes, out)
	if f.recordOutcome != nil {
		return f.recordOutcome(ctx, requestID, out)
	}
	return nil
}

type fakeObjects struct {
	download   func(ctx context.Context, bucket, key, dir string) (string, error)
	upload     func(ctx context.Context, bucket, key, localPath string) error
	presignGet func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	presignPut func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	uploads     []string
	presignGets []string
}

func (f *fakeObjects) Download(ctx context.Context, bucket, key, dir string) (string, error) {
	if f.download != nil {
		return f.download(ctx, bucket, key, dir)
	}
	return "", &types.TransportError{Op: "download", Err: os.ErrNotExist}
}

func (f *fakeObjects) Upload(ctx context.Context, bucket, key, localPath string) error {
	f.uploads = append(f.uploads, bucket+"/"+key)
	if f.upload != nil {
		return f.upload(ctx, bucket, key, localPath)
	}
	return nil
}

func (f *fakeObjects) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	f.presignGets = append(f.presignGets, bucket+"/"+key)
	if f.presignGet != nil {
		return f.presignGet(ctx, bucket, key, ttl)
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeObjects) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if f.presignPut != nil {
		return f.presignPut(ctx, bucket, key, ttl)
	}
	return "https://signed.example/put/" + key, nil
}

type fakeNotifier struct {
	subscribe       func(ctx context.Context, email string) (string, error)
	publishStart    func(ctx context.Context, rec *types.RequestRecord) (string, error)
	publishComplete func(ctx context.Context, rec *types.RequestRecord, startedAt, completedAt int64, rawURL, resampledURL string) (string, error)
	publishFail     func(ctx context.Context, rec *types.RequestRecord, errMsg string) (string, error)

	starts, completes, fails int
}

func (f *fakeNotifier) TopicARN() string { return "arn:aws:sns:us-east-1:123456789012:resampled" }

func (f *fakeNotifier) Subscribe(ctx context.Context, email string) (string, error) {
	if f.subscribe != nil {
		return f.subscribe(ctx, email)
	}
	return "arn:aws:sns:us-east-1:123456789012:resampled:sub-1", nil
}

func (f *fakeNotifier) PublishStart(ctx context.Context, rec *types.RequestRecord) (string, error) {
	f.starts++
	if f.publishStart != nil {
		return f.publishStart(ctx, rec)
	}
	return "msg-start", nil
}

func (f *fakeNotifier) PublishComplete(ctx context.Context, rec *types.RequestRecord, startedAt, completedAt int64, rawURL, resampledURL string) (string, error) {
	f.completes++
	if f.publishComplete != nil {
		return f.publishComplete(ctx, rec, startedAt, completedAt, rawURL, resampledURL)
	}
	return "msg-complete", nil
}

func (f *fakeNotifier) PublishFail(ctx context.Context, rec *types.RequestRecord, errMsg string) (string, error) {
	f.fails++
	if f.publishFail != nil {
		return f.publishFail(ctx, rec, errMsg)
	}
	return "msg-fail", nil
}

type fakeRunner struct {
	resample func(ctx context.Context, method types.Method, targetColumn string, rawCSV []byte) ([]byte, error)
}

func (f *fakeRunner) Resample(ctx context.Context, method types.Method, targetColumn string, rawCSV []byte) ([]byte, error) {
	return f.resample(ctx, method, targetColumn, rawCSV)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestOrchestrator(t *testing.T, store *fakeStore, objects *fakeObjects, notifier *fakeNotifier, runner *fakeRunner, now time.Time) *Orchestrator {
	t.Helper()
	cfg := Config{
		RawBucket:        "raw-bucket",
		ResampledBucket:  "resampled-bucket",
		RetentionDays:    7,
		RawDataDir:       t.TempDir(),
		ResampledDataDir: t.TempDir(),
	}
	return New(store, objects, notifier, runner, cfg, WithClock(fixedClock(now)))
}
