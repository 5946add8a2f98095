package orchestrator

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/resampled/pkg/types"
)

var requestIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func validSubmit() SubmitInput {
	return SubmitInput{
		Email:              "A@x.com",
		Method:             "ro",
		TargetColumn:       "y",
		ChartDataSize:      200,
		ChartLabelCount:    5,
		SubscriptionOption: "reject",
		OriginalFileName:   "data.csv",
	}
}

func TestSubmitCreatesPendingRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var stored *types.RequestRecord
	store := &fakeStore{
		putIfAbsent: func(_ context.Context, rec types.RequestRecord) error {
			stored = &rec
			return nil
		},
	}
	objects := &fakeObjects{}
	o := newTestOrchestrator(t, store, objects, &fakeNotifier{}, nil, now)

	in := validSubmit()
	in.Email = "A@x.com "
	in.Method = "RO"
	in.ChartDataSize = 50
	res, err := o.Submit(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Regexp(t, requestIDPattern, res.RequestID)
	assert.Equal(t, "a@x.com", stored.Email)
	assert.Equal(t, types.MethodRO, stored.Method)
	assert.Equal(t, 50, stored.ChartDataSize)
	assert.Equal(t, "raw_"+res.RequestID+".csv", stored.RawKey)
	assert.Equal(t, "resampled_"+res.RequestID+".csv", stored.ResampledKey)
	assert.Equal(t, stored.RawKey, stored.RawFileName)
	assert.Equal(t, "data.csv", stored.OriginalFileName)
	assert.Equal(t, ".csv", stored.OriginalFileNameSuffix)
	assert.Equal(t, now.Unix(), stored.CreatedAt)
	assert.Equal(t, int64(7*24*3600), stored.ExpiresAt-stored.CreatedAt)
	assert.Nil(t, stored.SubscriptionARN)
	assert.Nil(t, stored.ResamplingStartedAt)
	assert.Nil(t, stored.ResamplingCompletedAt)
	assert.Nil(t, stored.ChartDataPoints)
	assert.Equal(t, types.PhasePending, stored.Phase())
	assert.Equal(t, "https://signed.example/put/"+stored.RawKey, res.UploadURL)
}

func TestSubmitAcceptCreatesSubscription(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var subscribed string
	notifier := &fakeNotifier{
		subscribe: func(_ context.Context, email string) (string, error) {
			subscribed = email
			return "arn:aws:sns:us-east-1:123456789012:resampled:sub-42", nil
		},
	}
	o := newTestOrchestrator(t, &fakeStore{}, &fakeObjects{}, notifier, nil, now)

	in := validSubmit()
	in.SubscriptionOption = "accept"
	res, err := o.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", subscribed)
	require.NotNil(t, res.SubscriptionARN)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:resampled:sub-42", *res.SubscriptionARN)
}

func TestSubmitSubscribedKeepsExistingARN(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{
		subscribe: func(context.Context, string) (string, error) {
			t.Fatal("no new subscription expected")
			return "", nil
		},
	}
	o := newTestOrchestrator(t, &fakeStore{}, &fakeObjects{}, notifier, nil, now)

	in := validSubmit()
	in.SubscriptionOption = "subscribed"
	in.SubscriptionARN = "arn:aws:sns:us-east-1:123456789012:resampled:sub-7"
	res, err := o.Submit(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.SubscriptionARN)
	assert.Equal(t, in.SubscriptionARN, *res.SubscriptionARN)
}

func TestSubmitValidation(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*SubmitInput)
	}{
		{"bad email", func(in *SubmitInput) { in.Email = "not-an-email" }},
		{"unknown method", func(in *SubmitInput) { in.Method = "bogus" }},
		{"missing target column", func(in *SubmitInput) { in.TargetColumn = "" }},
		{"non-positive chart size", func(in *SubmitInput) { in.ChartDataSize = 0 }},
		{"single label", func(in *SubmitInput) { in.ChartLabelCount = 1 }},
		{"unknown subscription option", func(in *SubmitInput) { in.SubscriptionOption = "maybe" }},
		{"file without extension", func(in *SubmitInput) { in.OriginalFileName = "data" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				putIfAbsent: func(context.Context, types.RequestRecord) error {
					t.Fatal("no store write expected")
					return nil
				},
			}
			o := newTestOrchestrator(t, store, &fakeObjects{}, &fakeNotifier{}, nil, now)

			in := validSubmit()
			tt.mutate(&in)
			_, err := o.Submit(context.Background(), in)

			var verr *types.ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &verr), "want ValidationError, got %T", err)
		})
	}
}

func TestSubmitDefaultsLabelCount(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	o := newTestOrchestrator(t, &fakeStore{}, &fakeObjects{}, &fakeNotifier{}, nil, now)

	in := validSubmit()
	in.ChartLabelCount = 0
	res, err := o.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 5, res.ChartLabelCount)
}

func TestSubmitStoreFailureSkipsPresign(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		putIfAbsent: func(context.Context, types.RequestRecord) error {
			return &types.TransportError{Op: "metastore put", Err: errors.New("throttled")}
		},
	}
	objects := &fakeObjects{
		presignPut: func(context.Context, string, string, time.Duration) (string, error) {
			t.Fatal("no presign expected after a failed store write")
			return "", nil
		},
	}
	o := newTestOrchestrator(t, store, objects, &fakeNotifier{}, nil, now)

	_, err := o.Submit(context.Background(), validSubmit())
	var terr *types.TransportError
	require.Error(t, err)
	assert.True(t, errors.As(err, &terr))
}

func TestSubmitUsesConfiguredUploadTTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotTTL time.Duration
	objects := &fakeObjects{
		presignPut: func(_ context.Context, _, key string, ttl time.Duration) (string, error) {
			gotTTL = ttl
			return "https://signed.example/put/" + key, nil
		},
	}
	o := newTestOrchestrator(t, &fakeStore{}, objects, &fakeNotifier{}, nil, now)

	_, err := o.Submit(context.Background(), validSubmit())
	require.NoError(t, err)
	assert.Equal(t, DefaultUploadTTL, gotTTL)
}
