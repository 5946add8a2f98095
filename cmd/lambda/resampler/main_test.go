package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	process func(ctx context.Context, bucket, key string) error

	calls []string
}

func (s *stubProcessor) Process(ctx context.Context, bucket, key string) error {
	s.calls = append(s.calls, bucket+"/"+key)
	if s.process != nil {
		return s.process(ctx, bucket, key)
	}
	return nil
}

func s3Event(keys ...string) events.S3Event {
	var event events.S3Event
	for _, key := range keys {
		event.Records = append(event.Records, events.S3EventRecord{
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: "raw-bucket"},
				Object: events.S3Object{Key: key, URLDecodedKey: key},
			},
		})
	}
	return event
}

func TestHandleEventProcessesEachRecord(t *testing.T) {
	p := &stubProcessor{}
	event := s3Event("raw_abc.csv", "raw_def.csv")

	require.NoError(t, handleEvent(context.Background(), p, event))
	assert.Equal(t, []string{"raw-bucket/raw_abc.csv", "raw-bucket/raw_def.csv"}, p.calls)
}

func TestHandleEventDecodesKey(t *testing.T) {
	p := &stubProcessor{}
	event := events.S3Event{Records: []events.S3EventRecord{{
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: "raw-bucket"},
			Object: events.S3Object{
				Key:           "raw_abc+def.csv",
				URLDecodedKey: "raw_abc def.csv",
			},
		},
	}}}

	require.NoError(t, handleEvent(context.Background(), p, event))
	assert.Equal(t, []string{"raw-bucket/raw_abc def.csv"}, p.calls)
}

func TestHandleEventAbortsOnFailure(t *testing.T) {
	p := &stubProcessor{
		process: func(_ context.Context, _, key string) error {
			if key == "raw_abc.csv" {
				return errors.New("download failed")
			}
			return nil
		},
	}
	event := s3Event("raw_abc.csv", "raw_def.csv")

	err := handleEvent(context.Background(), p, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://raw-bucket/raw_abc.csv")
	assert.Equal(t, []string{"raw-bucket/raw_abc.csv"}, p.calls)
}
