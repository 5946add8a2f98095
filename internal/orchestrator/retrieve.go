package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/datakite/resampled/internal/expiry"
	"github.com/datakite/resampled/internal/metrics"
	"github.com/datakite/resampled/pkg/types"
)

// Retrieve looks up a request record by ID and returns it with download URLs
// for whichever artifacts exist. The email must match the record owner; a
// mismatch is reported as not-found so retrieval does not leak request IDs.
//
// Download URLs are omitted rather than erroring once the retention window
// has closed, so expired records stay readable.
func (o *Orchestrator) Retrieve(ctx context.Context, requestID, email string) (*types.RecordView, error) {
	requestID = strings.ToLower(strings.TrimSpace(requestID))
	email = strings.ToLower(strings.TrimSpace(email))
	if requestID == "" {
		return nil, types.NewValidationError("requestId is required")
	}
	if email == "" {
		return nil, types.NewValidationError("email is required")
	}

	rec, err := o.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rec.Email != email {
		return nil, types.NewNotFoundError("record with requestId %s does not exist", requestID)
	}

	view := &types.RecordView{RequestRecord: *rec}

	ttl, err := expiry.BoundedLifetime(rec.ExpiresAt, o.now())
	if err != nil {
		var expired *types.ExpiredError
		if !errors.As(err, &expired) {
			return nil, err
		}
		metrics.RetrievalsTotal.Add(1)
		o.logger.Info("request retrieved",
			"requestId", rec.RequestID, "phase", rec.Phase(), "expired", true)
		return view, nil
	}

	if rec.ResamplingStartedAt != nil {
		url, err := o.objects.PresignGet(ctx, rec.RawBucket, rec.RawKey, ttl)
		if err != nil {
			return nil, err
		}
		view.GetRawURL = &url
		metrics.PresignsIssued.Add(1)
	}
	if rec.ResamplingCompletedAt != nil {
		url, err := o.objects.PresignGet(ctx, rec.ResampledBucket, rec.ResampledKey, ttl)
		if err != nil {
			return nil, err
		}
		view.GetResampledURL = &url
		metrics.PresignsIssued.Add(1)
	}

	metrics.RetrievalsTotal.Add(1)
	o.logger.Info("request retrieved",
		"requestId", rec.RequestID, "phase", rec.Phase(), "expired", false)
	return view, nil
}
