package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datakite/resampled/pkg/types"
)

type stubRetriever struct {
	retrieve func(ctx context.Context, requestID, email string) (*types.RecordView, error)
}

func (s *stubRetriever) Retrieve(ctx context.Context, requestID, email string) (*types.RecordView, error) {
	return s.retrieve(ctx, requestID, email)
}

func TestHandleRetrieveFromBody(t *testing.T) {
	r := &stubRetriever{
		retrieve: func(_ context.Context, requestID, email string) (*types.RecordView, error) {
			assert.Equal(t, "abc123", requestID)
			assert.Equal(t, "a@x.com", email)
			return &types.RecordView{RequestRecord: types.RequestRecord{RequestID: requestID}}, nil
		},
	}

	resp, err := handleRetrieve(context.Background(), r, events.APIGatewayProxyRequest{
		Body: `{"requestId":"abc123","email":"a@x.com"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data types.RecordView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &envelope))
	assert.Equal(t, "abc123", envelope.Data.RequestID)
	assert.Nil(t, envelope.Data.GetRawURL)
}

func TestHandleRetrieveFromQueryString(t *testing.T) {
	r := &stubRetriever{
		retrieve: func(_ context.Context, requestID, email string) (*types.RecordView, error) {
			assert.Equal(t, "abc123", requestID)
			assert.Equal(t, "a@x.com", email)
			return &types.RecordView{RequestRecord: types.RequestRecord{RequestID: requestID}}, nil
		},
	}

	resp, err := handleRetrieve(context.Background(), r, events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{
			"requestId": "abc123",
			"email":     "a@x.com",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleRetrieveNotFound(t *testing.T) {
	r := &stubRetriever{
		retrieve: func(_ context.Context, requestID, _ string) (*types.RecordView, error) {
			return nil, types.NewNotFoundError("record with requestId %s does not exist", requestID)
		},
	}

	resp, err := handleRetrieve(context.Background(), r, events.APIGatewayProxyRequest{
		Body: `{"requestId":"missing","email":"a@x.com"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &envelope))
	assert.Equal(t, "record with requestId missing does not exist", envelope["exception"])
}

func TestHandleRetrieveBadBody(t *testing.T) {
	r := &stubRetriever{
		retrieve: func(context.Context, string, string) (*types.RecordView, error) {
			t.Fatal("no retrieve expected")
			return nil, nil
		},
	}

	resp, err := handleRetrieve(context.Background(), r, events.APIGatewayProxyRequest{Body: "{not json"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
