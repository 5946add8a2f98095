package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/datakite/resampled/internal/chart"
	"github.com/datakite/resampled/internal/expiry"
	"github.com/datakite/resampled/internal/metastore"
	"github.com/datakite/resampled/internal/metrics"
	"github.com/datakite/resampled/internal/resample"
	"github.com/datakite/resampled/pkg/types"
)

// attemptOutcome carries whatever the processing attempt produced before it
// succeeded or failed. Nil fields were never reached.
type attemptOutcome struct {
	points        []types.ChartPoint
	startedAt     *int64
	completedAt   *int64
	completeMsgID *string
}

// Process handles an object-created event for the raw bucket. Failures
// before the start notification are operational and propagate with no record
// mutation; failures of the resampling attempt itself are task outcomes,
// converted into a fail notification and recorded, never propagated.
//
// Duplicate delivery of the triggering event is not deduplicated: a repeated
// event re-runs the attempt and overwrites the same record fields.
func (o *Orchestrator) Process(ctx context.Context, bucket, key string) error {
	var rawPath, resampledPath string
	defer func() {
		removeIfSet(rawPath)
		removeIfSet(resampledPath)
	}()

	var err error
	rawPath, err = o.objects.Download(ctx, bucket, key, o.cfg.RawDataDir)
	if err != nil {
		return err
	}

	requestID, err := parseRequestID(key)
	if err != nil {
		return err
	}
	rec, err := o.store.Get(ctx, requestID)
	if err != nil {
		return err
	}

	startMsgID, err := o.notifier.PublishStart(ctx, rec)
	if err != nil {
		return err
	}
	metrics.NotificationsPublished.Add(1)
	metrics.ResamplingsStarted.Add(1)

	res, attemptErr := o.attempt(ctx, rec, rawPath, &resampledPath)

	out := metastore.Outcome{
		ChartDataPoints:     res.points,
		StartedAt:           res.startedAt,
		CompletedAt:         res.completedAt,
		OnStartMessageID:    &startMsgID,
		OnCompleteMessageID: res.completeMsgID,
	}
	if attemptErr != nil {
		// Expected task failure: notify and record, do not propagate. The
		// full error chain goes to the operational log; the notification
		// carries only the message.
		o.logger.Error("resampling attempt failed",
			"requestId", rec.RequestID, "method", rec.Method, "error", attemptErr)
		failMsgID, failErr := o.notifier.PublishFail(ctx, rec, attemptErr.Error())
		if failErr != nil {
			return failErr
		}
		metrics.NotificationsPublished.Add(1)
		metrics.ResamplingsFailed.Add(1)
		out.OnFailMessageID = &failMsgID
	} else {
		metrics.NotificationsPublished.Add(1)
		metrics.ResamplingsCompleted.Add(1)
	}

	// Runs exactly once, on both the success and the failure path.
	if err := o.store.RecordOutcome(ctx, rec.RequestID, out); err != nil {
		return err
	}

	o.logger.Info("request processed",
		"requestId", rec.RequestID, "phase", phaseOf(out))
	return nil
}

// attempt is the failure-contained region: resample, summarize, upload,
// presign, and send the completion notification. On error it returns
// whatever state it reached so the caller can persist a partial outcome.
func (o *Orchestrator) attempt(ctx context.Context, rec *types.RequestRecord, rawPath string, resampledPath *string) (attemptOutcome, error) {
	var res attemptOutcome

	rawCSV, err := os.ReadFile(rawPath)
	if err != nil {
		return res, err
	}

	startedAt := o.now().Unix()
	res.startedAt = &startedAt

	resampledCSV, err := o.runner.Resample(ctx, rec.Method, rec.TargetColumn, rawCSV)
	if err != nil {
		return res, err
	}
	completedAt := o.now().Unix()

	if err := os.MkdirAll(o.cfg.ResampledDataDir, 0o755); err != nil {
		return res, err
	}
	path := filepath.Join(o.cfg.ResampledDataDir, rec.ResampledFileName)
	if err := os.WriteFile(path, resampledCSV, 0o644); err != nil {
		return res, err
	}
	*resampledPath = path

	rawValues, err := resample.Column(rawCSV, rec.TargetColumn)
	if err != nil {
		return res, err
	}
	resampledValues, err := resample.Column(resampledCSV, rec.TargetColumn)
	if err != nil {
		return res, err
	}
	points, err := chart.Summary(rawValues, resampledValues, rec.ChartDataSize, rec.ChartLabelCount)
	if err != nil {
		return res, err
	}

	if err := o.objects.Upload(ctx, rec.ResampledBucket, rec.ResampledKey, path); err != nil {
		return res, err
	}

	ttl, err := expiry.BoundedLifetime(rec.ExpiresAt, o.now())
	if err != nil {
		return res, err
	}
	rawURL, err := o.objects.PresignGet(ctx, rec.RawBucket, rec.RawKey, ttl)
	if err != nil {
		return res, err
	}
	resampledURL, err := o.objects.PresignGet(ctx, rec.ResampledBucket, rec.ResampledKey, ttl)
	if err != nil {
		return res, err
	}
	metrics.PresignsIssued.Add(2)

	completeMsgID, err := o.notifier.PublishComplete(ctx, rec, startedAt, completedAt, rawURL, resampledURL)
	if err != nil {
		return res, err
	}

	// Set together on full success only: a failed upload or notification
	// leaves the record without a completion time or chart data.
	res.points = points
	res.completedAt = &completedAt
	res.completeMsgID = &completeMsgID
	return res, nil
}

// parseRequestID extracts the request ID from a raw object key of the form
// raw_<requestId><ext>.
func parseRequestID(key string) (string, error) {
	base := filepath.Base(key)
	dot := strings.LastIndex(base, ".")
	if !strings.HasPrefix(base, "raw_") || dot <= len("raw_") {
		return "", types.NewValidationError("object key %q is not a raw data key", key)
	}
	return base[len("raw_"):dot], nil
}

func phaseOf(out metastore.Outcome) types.Phase {
	switch {
	case out.OnCompleteMessageID != nil:
		return types.PhaseCompleted
	case out.OnFailMessageID != nil:
		return types.PhaseFailed
	}
	return types.PhasePending
}

func removeIfSet(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
