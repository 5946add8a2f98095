// Package notify composes lifecycle notifications and dispatches them through
// an SNS topic, correlating messages by requestId and email.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/datakite/resampled/internal/expiry"
	"github.com/datakite/resampled/pkg/types"
)

// SNSAPI is the subset of the SNS client used by the Notifier.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
	Subscribe(ctx context.Context, input *sns.SubscribeInput, opts ...func(*sns.Options)) (*sns.SubscribeOutput, error)
}

// Notifier publishes lifecycle messages to the task-status topic.
type Notifier struct {
	client   SNSAPI
	topicARN string
	logger   *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClient sets a custom SNS client (useful for testing).
func WithClient(c SNSAPI) Option {
	return func(n *Notifier) { n.client = c }
}

// WithLogger sets the notifier logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New creates a Notifier for the given topic.
func New(topicARN string, opts ...Option) (*Notifier, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("SNS topic ARN required")
	}
	n := &Notifier{topicARN: topicARN, logger: slog.Default()}
	for _, o := range opts {
		o(n)
	}
	if n.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		n.client = sns.NewFromConfig(cfg)
	}
	return n, nil
}

// TopicARN returns the topic this notifier publishes to.
func (n *Notifier) TopicARN() string { return n.topicARN }

// Subscribe creates an email subscription on the topic, filtered so the
// subscriber only receives messages carrying their own email attribute.
// Returns the subscription ARN.
func (n *Notifier) Subscribe(ctx context.Context, email string) (string, error) {
	policy, err := json.Marshal(map[string]any{
		"email": []map[string]string{{"equals-ignore-case": email}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding filter policy: %w", err)
	}

	out, err := n.client.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: aws.String(n.topicARN),
		Protocol: aws.String("email"),
		Endpoint: aws.String(email),
		Attributes: map[string]string{
			"FilterPolicy":      string(policy),
			"FilterPolicyScope": "MessageAttributes",
		},
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return "", &types.TransportError{Op: "sns subscribe", Err: err}
	}
	return aws.ToString(out.SubscriptionArn), nil
}

// PublishStart sends the resampling-started notification. Returns the
// provider-assigned message ID.
func (n *Notifier) PublishStart(ctx context.Context, rec *types.RequestRecord) (string, error) {
	body := fmt.Sprintf(`
Your data resampling task with file %s on target column %s has started!
Request ID: %s
Resampling method: %s
Requested at: %s
`,
		rec.OriginalFileName,
		rec.TargetColumn,
		rec.RequestID,
		rec.Method.DisplayName(),
		expiry.FormatTimestamp(rec.CreatedAt),
	)
	return n.publish(ctx, "Resampling Started!", body, rec)
}

// PublishComplete sends the resampling-completed notification, including both
// download URLs.
func (n *Notifier) PublishComplete(ctx context.Context, rec *types.RequestRecord, startedAt, completedAt int64, rawURL, resampledURL string) (string, error) {
	body := fmt.Sprintf(`
Your data resampling task with file %s on target column %s has completed!
Request ID: %s
Resampling method: %s
Requested at: %s
Completed at: %s
Resampling duration: %d second(s)
Expiring at: %s
----------------------------------------------------------------------------------------------------
Download the original file at:
%s

Download the resampled file at:
%s
`,
		rec.OriginalFileName,
		rec.TargetColumn,
		rec.RequestID,
		rec.Method.DisplayName(),
		expiry.FormatTimestamp(rec.CreatedAt),
		expiry.FormatTimestamp(completedAt),
		completedAt-startedAt,
		expiry.FormatTimestamp(rec.ExpiresAt),
		rawURL,
		resampledURL,
	)
	return n.publish(ctx, "Resampling Completed!", body, rec)
}

// PublishFail sends the resampling-failed notification carrying the error
// message.
func (n *Notifier) PublishFail(ctx context.Context, rec *types.RequestRecord, errMsg string) (string, error) {
	body := fmt.Sprintf(`
Your data resampling task with file %s on target column %s has failed!
Request ID: %s
Resampling method: %s
Requested at: %s
----------------------------------------------------------------------------------------------------
Error message:
%s
`,
		rec.OriginalFileName,
		rec.TargetColumn,
		rec.RequestID,
		rec.Method.DisplayName(),
		expiry.FormatTimestamp(rec.CreatedAt),
		errMsg,
	)
	return n.publish(ctx, "Resampling Failed!", body, rec)
}

// publish sends the body to both the default and the email protocol channel
// and returns the message ID.
func (n *Notifier) publish(ctx context.Context, subject, body string, rec *types.RequestRecord) (string, error) {
	message, err := json.Marshal(map[string]string{
		"default": body,
		"email":   body,
	})
	if err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn:         aws.String(n.topicARN),
		Subject:          aws.String(subject),
		Message:          aws.String(string(message)),
		MessageStructure: aws.String("json"),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"requestId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(rec.RequestID),
			},
			"email": {
				DataType:    aws.String("String"),
				StringValue: aws.String(rec.Email),
			},
		},
	})
	if err != nil {
		return "", &types.TransportError{Op: "sns publish", Err: err}
	}
	return aws.ToString(out.MessageId), nil
}
