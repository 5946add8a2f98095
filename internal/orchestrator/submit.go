package orchestrator

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/datakite/resampled/internal/expiry"
	"github.com/datakite/resampled/internal/metrics"
	"github.com/datakite/resampled/pkg/types"
)

// SubmitInput is the raw submission payload.
type SubmitInput struct {
	Email              string `json:"email"`
	Method             string `json:"method"`
	TargetColumn       string `json:"targetColumn"`
	ChartDataSize      int    `json:"chartDataSize"`
	ChartLabelCount    int    `json:"chartLabelCount"`
	SubscriptionOption string `json:"subscriptionOption"`
	SubscriptionARN    string `json:"subscriptionArn"`
	OriginalFileName   string `json:"originalFileName"`
}

// SubmitResult is the stored record plus the single-use upload URL.
type SubmitResult struct {
	types.RequestRecord
	UploadURL string `json:"uploadUrl"`
}

// submitCommand is the validated, normalized form of a SubmitInput. Inputs
// are never mutated in place.
type submitCommand struct {
	email           string
	method          types.Method
	targetColumn    string
	chartDataSize   int
	chartLabelCount int
	subscription    types.SubscriptionOption
	subscriptionARN *string
	fileName        string
	fileNameSuffix  string
}

// normalizeSubmit validates a SubmitInput and returns the command to execute.
func normalizeSubmit(in SubmitInput) (*submitCommand, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, types.NewValidationError("invalid email %q", in.Email)
	}

	method, err := types.ParseMethod(in.Method)
	if err != nil {
		return nil, err
	}

	// CSV headers may legitimately begin or end with whitespace, so the
	// target column is taken verbatim.
	if in.TargetColumn == "" {
		return nil, types.NewValidationError("targetColumn is required")
	}

	if in.ChartDataSize <= 0 {
		return nil, types.NewValidationError("chartDataSize must be positive, got %d", in.ChartDataSize)
	}
	labelCount := in.ChartLabelCount
	if labelCount == 0 {
		labelCount = 5
	}
	if labelCount < 2 {
		return nil, types.NewValidationError("chartLabelCount must be at least 2, got %d", in.ChartLabelCount)
	}

	subscription, err := types.ParseSubscriptionOption(in.SubscriptionOption)
	if err != nil {
		return nil, err
	}
	var subscriptionARN *string
	if subscription == types.SubscriptionSubscribed {
		if arn := strings.TrimSpace(in.SubscriptionARN); arn != "" {
			subscriptionARN = &arn
		}
	}

	fileName := strings.TrimSpace(in.OriginalFileName)
	dot := strings.LastIndex(fileName, ".")
	if dot < 0 || dot == len(fileName)-1 {
		return nil, types.NewValidationError("originalFileName %q has no extension", in.OriginalFileName)
	}

	return &submitCommand{
		email:           email,
		method:          method,
		targetColumn:    in.TargetColumn,
		chartDataSize:   in.ChartDataSize,
		chartLabelCount: labelCount,
		subscription:    subscription,
		subscriptionARN: subscriptionARN,
		fileName:        fileName,
		fileNameSuffix:  fileName[dot:],
	}, nil
}

// Submit creates a pending request record and returns it with a short-lived
// upload URL for the raw data object. At most one store write and one
// subscription call are made.
func (o *Orchestrator) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	cmd, err := normalizeSubmit(in)
	if err != nil {
		metrics.SubmitFailures.Add(1)
		return nil, err
	}

	if cmd.subscription == types.SubscriptionAccept {
		arn, err := o.notifier.Subscribe(ctx, cmd.email)
		if err != nil {
			metrics.SubmitFailures.Add(1)
			return nil, err
		}
		cmd.subscriptionARN = &arn
	}

	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")
	createdAt, expiresAt := expiry.Window(o.now(), o.cfg.RetentionDays)

	rawName := "raw_" + requestID + cmd.fileNameSuffix
	resampledName := "resampled_" + requestID + cmd.fileNameSuffix
	rec := types.RequestRecord{
		RequestID:              requestID,
		Email:                  cmd.email,
		Method:                 cmd.method,
		TargetColumn:           cmd.targetColumn,
		ChartDataSize:          cmd.chartDataSize,
		ChartLabelCount:        cmd.chartLabelCount,
		TopicARN:               o.notifier.TopicARN(),
		SubscriptionOption:     cmd.subscription,
		SubscriptionARN:        cmd.subscriptionARN,
		OriginalFileName:       cmd.fileName,
		OriginalFileNameSuffix: cmd.fileNameSuffix,
		RawBucket:              o.cfg.RawBucket,
		RawKey:                 rawName,
		RawFileName:            rawName,
		ResampledBucket:        o.cfg.ResampledBucket,
		ResampledKey:           resampledName,
		ResampledFileName:      resampledName,
		CreatedAt:              createdAt,
		ExpiresAt:              expiresAt,
	}

	if err := o.store.PutIfAbsent(ctx, rec); err != nil {
		metrics.SubmitFailures.Add(1)
		return nil, err
	}

	uploadURL, err := o.objects.PresignPut(ctx, rec.RawBucket, rec.RawKey, o.cfg.UploadTTL)
	if err != nil {
		metrics.SubmitFailures.Add(1)
		return nil, err
	}
	metrics.SubmitsTotal.Add(1)
	metrics.PresignsIssued.Add(1)

	o.logger.Info("request submitted",
		"requestId", rec.RequestID, "method", rec.Method, "expiresAt", rec.ExpiresAt)
	return &SubmitResult{RequestRecord: rec, UploadURL: uploadURL}, nil
}
