package lambda

import (
	"github.com/datakite/resampled/internal/orchestrator"
)

// SubmitRequest is the input to the request Lambda.
type SubmitRequest = orchestrator.SubmitInput

// RetrievalRequest is the input to the retrieval Lambda.
type RetrievalRequest struct {
	RequestID string `json:"requestId"`
	Email     string `json:"email"`
}

// SubscribeRequest is the input to the subscribe Lambda.
type SubscribeRequest struct {
	Email string `json:"email"`
}

// SubscribeResponse is the output of the subscribe Lambda.
type SubscribeResponse struct {
	SubscriptionARN string `json:"subscriptionArn"`
}
