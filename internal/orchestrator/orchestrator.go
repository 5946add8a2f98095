// Package orchestrator implements the request lifecycle state machine:
// submission, upload-triggered processing, and retrieval.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/datakite/resampled/internal/metastore"
	"github.com/datakite/resampled/internal/resample"
	"github.com/datakite/resampled/pkg/types"
)

// MetadataStore is the record store consumed by the orchestrator.
type MetadataStore interface {
	PutIfAbsent(ctx context.Context, rec types.RequestRecord) error
	Get(ctx context.Context, requestID string) (*types.RequestRecord, error)
	RecordOutcome(ctx context.Context, requestID string, out metastore.Outcome) error
}

// ObjectStore transfers artifacts and issues presigned URLs.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key, dir string) (string, error)
	Upload(ctx context.Context, bucket, key, localPath string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Notifier publishes lifecycle notifications and manages email subscriptions.
type Notifier interface {
	TopicARN() string
	Subscribe(ctx context.Context, email string) (string, error)
	PublishStart(ctx context.Context, rec *types.RequestRecord) (string, error)
	PublishComplete(ctx context.Context, rec *types.RequestRecord, startedAt, completedAt int64, rawURL, resampledURL string) (string, error)
	PublishFail(ctx context.Context, rec *types.RequestRecord, errMsg string) (string, error)
}

// Config holds orchestrator settings.
type Config struct {
	RawBucket        string        `yaml:"rawBucket"`
	ResampledBucket  string        `yaml:"resampledBucket"`
	RetentionDays    float64       `yaml:"retentionDays"`
	RawDataDir       string        `yaml:"rawDataDir"`       // ephemeral download dir
	ResampledDataDir string        `yaml:"resampledDataDir"` // ephemeral output dir
	UploadTTL        time.Duration `yaml:"uploadTTL"`
}

// DefaultUploadTTL is the lifetime of the raw-data upload URL.
const DefaultUploadTTL = 900 * time.Second

// Orchestrator drives the request lifecycle against injected collaborators.
type Orchestrator struct {
	store    MetadataStore
	objects  ObjectStore
	notifier Notifier
	runner   resample.Runner
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(store MetadataStore, objects ObjectStore, notifier Notifier, runner resample.Runner, cfg Config, opts ...Option) *Orchestrator {
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = DefaultUploadTTL
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	o := &Orchestrator{
		store:    store,
		objects:  objects,
		notifier: notifier,
		runner:   runner,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
