// Package lambda provides shared types and initialization for Lambda handlers.
package lambda

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/datakite/resampled/internal/metastore"
	"github.com/datakite/resampled/internal/notify"
	"github.com/datakite/resampled/internal/objectstore"
	"github.com/datakite/resampled/internal/orchestrator"
	"github.com/datakite/resampled/internal/resample"
)

// Deps holds shared dependencies for Lambda handlers.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Store        *metastore.Store
	Objects      *objectstore.Client
	Notifier     *notify.Notifier
	Logger       *slog.Logger
}

// Init creates shared dependencies from environment variables.
// Reads: METADATA_TABLE_NAME, AWS_REGION, RAW_BUCKET, RESAMPLED_BUCKET,
// TOPIC_ARN, RESAMPLER_BASE_URL, RETENTION_DAYS, RAW_DATA_DIR,
// RESAMPLED_DATA_DIR, AWS_ENDPOINT_URL.
func Init(ctx context.Context) (*Deps, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	tableName := os.Getenv("METADATA_TABLE_NAME")
	region := os.Getenv("AWS_REGION")
	rawBucket := os.Getenv("RAW_BUCKET")
	resampledBucket := os.Getenv("RESAMPLED_BUCKET")
	topicARN := os.Getenv("TOPIC_ARN")
	if tableName == "" {
		return nil, fmt.Errorf("METADATA_TABLE_NAME environment variable required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS_REGION environment variable required")
	}
	if rawBucket == "" {
		return nil, fmt.Errorf("RAW_BUCKET environment variable required")
	}
	if resampledBucket == "" {
		return nil, fmt.Errorf("RESAMPLED_BUCKET environment variable required")
	}
	if topicARN == "" {
		return nil, fmt.Errorf("TOPIC_ARN environment variable required")
	}

	retentionDays := 7.0
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("RETENTION_DAYS must be a positive number, got %q", v)
		}
		retentionDays = d
	}

	endpoint := os.Getenv("AWS_ENDPOINT_URL")

	store, err := metastore.New(metastore.Config{
		TableName: tableName,
		Region:    region,
		Endpoint:  endpoint,
	}, metastore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating metadata store: %w", err)
	}

	objects, err := objectstore.New(ctx, objectstore.Config{
		Region:   region,
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	notifier, err := notify.New(topicARN, notify.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	runner := resample.NewHTTPRunner(os.Getenv("RESAMPLER_BASE_URL"))

	orc := orchestrator.New(store, objects, notifier, runner, orchestrator.Config{
		RawBucket:        rawBucket,
		ResampledBucket:  resampledBucket,
		RetentionDays:    retentionDays,
		RawDataDir:       envOrDefault("RAW_DATA_DIR", "/tmp/raw_data"),
		ResampledDataDir: envOrDefault("RESAMPLED_DATA_DIR", "/tmp/resampled_data"),
	}, orchestrator.WithLogger(logger))

	return &Deps{
		Orchestrator: orc,
		Store:        store,
		Objects:      objects,
		Notifier:     notifier,
		Logger:       logger,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
