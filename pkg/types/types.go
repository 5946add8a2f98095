// Package types defines the public domain types for the resampling request service.
package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Method identifies a resampling method for imbalanced regression targets.
type Method string

// Known resampling methods.
const (
	MethodRO        Method = "ro"
	MethodSMOTE     Method = "smote"
	MethodGN        Method = "gn"
	MethodADASYN    Method = "adasyn"
	MethodRU        Method = "ru"
	MethodCNN       Method = "cnn"
	MethodTomekLink Method = "tomeklinks"
	MethodENN       Method = "enn"
)

// methodNames maps each known method to the human-readable name used in
// notification bodies.
var methodNames = map[Method]string{
	MethodRO:        "Random Oversampling",
	MethodSMOTE:     "Synthetic Minority Oversampling Technique (SMOTE)",
	MethodGN:        "Introduction of Gaussian Noise",
	MethodADASYN:    "Adaptive Synthetic Sampling (ADASYN)",
	MethodRU:        "Random Undersampling",
	MethodCNN:       "Condensed Nearest Neighbor",
	MethodTomekLink: "Tomek Links",
	MethodENN:       "Edited Nearest Neighbor",
}

// ParseMethod normalizes and validates a caller-supplied method name.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := methodNames[m]; !ok {
		return "", NewValidationError("unknown resampling method %q", s)
	}
	return m, nil
}

// DisplayName returns the human-readable method name, or the raw value for
// methods outside the registry.
func (m Method) DisplayName() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return string(m)
}

// SubscriptionOption records the requester's notification-subscription choice.
type SubscriptionOption string

// SubscriptionOption values.
const (
	SubscriptionAccept     SubscriptionOption = "accept"
	SubscriptionReject     SubscriptionOption = "reject"
	SubscriptionSubscribed SubscriptionOption = "subscribed"
)

// ParseSubscriptionOption normalizes and validates a subscription option.
func ParseSubscriptionOption(s string) (SubscriptionOption, error) {
	o := SubscriptionOption(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case SubscriptionAccept, SubscriptionReject, SubscriptionSubscribed:
		return o, nil
	}
	return "", NewValidationError("unknown subscription option %q", s)
}

// Phase describes a RequestRecord's processing outcome.
type Phase string

// Phase values.
const (
	PhasePending   Phase = "PENDING"
	PhaseCompleted Phase = "COMPLETED"
	PhaseFailed    Phase = "FAILED"
)

// ChartPoint is one sample of the density comparison chart. Raw and Resampled
// are decimal so density values survive JSON round-trips without float loss.
type ChartPoint struct {
	Label     string          `json:"label" dynamodbav:"label"`
	Raw       decimal.Decimal `json:"raw" dynamodbav:"raw"`
	Resampled decimal.Decimal `json:"resampled" dynamodbav:"resampled"`
}

// RequestRecord is the metadata record for one submitted resampling task,
// keyed by RequestID. It is inserted once at submission and mutated exactly
// once more when processing terminates.
type RequestRecord struct {
	RequestID string `json:"requestId" dynamodbav:"requestId"`
	Email     string `json:"email" dynamodbav:"email"`

	Method          Method `json:"method" dynamodbav:"method"`
	TargetColumn    string `json:"targetColumn" dynamodbav:"targetColumn"`
	ChartDataSize   int    `json:"chartDataSize" dynamodbav:"chartDataSize"`
	ChartLabelCount int    `json:"chartLabelCount" dynamodbav:"chartLabelCount"`

	TopicARN           string             `json:"topicArn" dynamodbav:"topicArn"`
	SubscriptionOption SubscriptionOption `json:"subscriptionOption" dynamodbav:"subscriptionOption"`
	SubscriptionARN    *string            `json:"subscriptionArn" dynamodbav:"subscriptionArn"`

	OriginalFileName       string `json:"originalFileName" dynamodbav:"originalFileName"`
	OriginalFileNameSuffix string `json:"originalFileNameSuffix" dynamodbav:"originalFileNameSuffix"`
	RawBucket              string `json:"rawBucket" dynamodbav:"rawBucket"`
	RawKey                 string `json:"rawKey" dynamodbav:"rawKey"`
	RawFileName            string `json:"rawFileName" dynamodbav:"rawFileName"`
	ResampledBucket        string `json:"resampledBucket" dynamodbav:"resampledBucket"`
	ResampledKey           string `json:"resampledKey" dynamodbav:"resampledKey"`
	ResampledFileName      string `json:"resampledFileName" dynamodbav:"resampledFileName"`

	CreatedAt int64 `json:"createdAt" dynamodbav:"createdAt"`
	ExpiresAt int64 `json:"expiresAt" dynamodbav:"expiresAt"`

	ResamplingStartedAt   *int64       `json:"resamplingStartedAt" dynamodbav:"resamplingStartedAt"`
	ResamplingCompletedAt *int64       `json:"resamplingCompletedAt" dynamodbav:"resamplingCompletedAt"`
	ChartDataPoints       []ChartPoint `json:"chartDataPoints" dynamodbav:"chartDataPoints"`

	OnStartMessageID    *string `json:"onStartMessageId" dynamodbav:"onStartMessageId"`
	OnCompleteMessageID *string `json:"onCompleteMessageId" dynamodbav:"onCompleteMessageId"`
	OnFailMessageID     *string `json:"onFailMessageId" dynamodbav:"onFailMessageId"`
}

// Phase derives the processing outcome from the terminal message IDs.
func (r *RequestRecord) Phase() Phase {
	switch {
	case r.OnCompleteMessageID != nil:
		return PhaseCompleted
	case r.OnFailMessageID != nil:
		return PhaseFailed
	}
	return PhasePending
}

// RecordView is the retrieval-path projection of a RequestRecord: the stored
// fields plus freshly derived download URLs for phases already completed.
type RecordView struct {
	RequestRecord
	GetRawURL       *string `json:"getRawUrl"`
	GetResampledURL *string `json:"getResampledUrl"`
}
