// resampler Lambda processes raw-data uploads: it runs the resampling
// routine, stores the resampled artifact, and notifies the requester.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	intlambda "github.com/datakite/resampled/internal/lambda"
)

var (
	deps     *intlambda.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*intlambda.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intlambda.Init(context.Background())
	})
	return deps, depsErr
}

type processor interface {
	Process(ctx context.Context, bucket, key string) error
}

// handleEvent processes every object-created record in the event. A failing
// record aborts the batch so the event source can redeliver it.
func handleEvent(ctx context.Context, p processor, event events.S3Event) error {
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.URLDecodedKey
		if key == "" {
			key = record.S3.Object.Key
		}
		if err := p.Process(ctx, bucket, key); err != nil {
			return fmt.Errorf("processing s3://%s/%s: %w", bucket, key, err)
		}
	}
	return nil
}

func handler(ctx context.Context, event events.S3Event) error {
	d, err := getDeps()
	if err != nil {
		return err
	}
	return handleEvent(ctx, d.Orchestrator, event)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
