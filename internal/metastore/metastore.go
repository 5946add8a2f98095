// Package metastore implements the request-metadata store on AWS DynamoDB.
//
// Type-tagged DynamoDB attribute values never leave this package: records are
// decoded into plain domain types at the adapter boundary.
package metastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/datakite/resampled/pkg/types"
)

// DDBAPI is the subset of the DynamoDB client used by the store.
type DDBAPI interface {
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config holds DynamoDB connection settings.
type Config struct {
	TableName string `yaml:"tableName"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint,omitempty"` // DynamoDB Local
}

// Store persists RequestRecords keyed by requestId.
type Store struct {
	client DDBAPI
	table  string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClient sets a custom DynamoDB client (useful for testing).
func WithClient(c DDBAPI) Option {
	return func(s *Store) { s.client = c }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store for the configured table.
func New(cfg Config, opts ...Option) (*Store, error) {
	if cfg.TableName == "" {
		return nil, fmt.Errorf("metadata table name required")
	}
	s := &Store{table: cfg.TableName, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		var clientOpts []func(*dynamodb.Options)
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, func(o *dynamodb.Options) {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			})
		}
		s.client = dynamodb.NewFromConfig(awsCfg, clientOpts...)
	}
	return s, nil
}

// Ping checks connectivity by describing the table.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return &types.TransportError{Op: "dynamodb describe-table", Err: err}
	}
	return nil
}

// PutIfAbsent inserts a new record, refusing to overwrite an existing
// requestId.
func (s *Store) PutIfAbsent(ctx context.Context, rec types.RequestRecord) error {
	points := rec.ChartDataPoints
	rec.ChartDataPoints = nil
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.RequestID, err)
	}
	item["chartDataPoints"] = encodeChartPoints(points)

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(requestId)"),
	})
	if err != nil {
		var ccfe *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return &types.TransportError{Op: "dynamodb put", Err: fmt.Errorf("requestId %s already exists", rec.RequestID)}
		}
		return &types.TransportError{Op: "dynamodb put", Err: err}
	}
	return nil
}

// Get retrieves a record by requestId with a strongly consistent read. A
// missing record yields NotFoundError.
func (s *Store) Get(ctx context.Context, requestID string) (*types.RequestRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		ConsistentRead: aws.Bool(true),
		Key: map[string]ddbtypes.AttributeValue{
			"requestId": &ddbtypes.AttributeValueMemberS{Value: requestID},
		},
	})
	if err != nil {
		return nil, &types.TransportError{Op: "dynamodb get", Err: err}
	}
	if len(out.Item) == 0 {
		return nil, types.NewNotFoundError("record with requestId %s does not exist", requestID)
	}

	item := out.Item
	points, err := decodeChartPoints(item["chartDataPoints"])
	if err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", requestID, err)
	}
	delete(item, "chartDataPoints")

	var rec types.RequestRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", requestID, err)
	}
	rec.ChartDataPoints = points
	return &rec, nil
}

// Outcome holds the fields written back when processing terminates. Nil
// fields are persisted as nulls, so a single write covers both the success
// and the failure branch.
type Outcome struct {
	ChartDataPoints     []types.ChartPoint
	StartedAt           *int64
	CompletedAt         *int64
	OnStartMessageID    *string
	OnCompleteMessageID *string
	OnFailMessageID     *string
}

// RecordOutcome writes the processing outcome for one record in a single
// unconditional update expression. No prior read is required and no other
// record can be touched.
func (s *Store) RecordOutcome(ctx context.Context, requestID string, out Outcome) error {
	values := map[string]any{
		":rst": out.StartedAt,
		":rct": out.CompletedAt,
		":osm": out.OnStartMessageID,
		":ocm": out.OnCompleteMessageID,
		":ofm": out.OnFailMessageID,
	}
	exprValues := make(map[string]ddbtypes.AttributeValue, len(values)+1)
	for k, v := range values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding outcome for %s: %w", requestID, err)
		}
		exprValues[k] = av
	}
	exprValues[":cdp"] = encodeChartPoints(out.ChartDataPoints)

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.table,
		Key: map[string]ddbtypes.AttributeValue{
			"requestId": &ddbtypes.AttributeValueMemberS{Value: requestID},
		},
		UpdateExpression: aws.String(
			"SET chartDataPoints = :cdp, resamplingStartedAt = :rst, resamplingCompletedAt = :rct, " +
				"onStartMessageId = :osm, onCompleteMessageId = :ocm, onFailMessageId = :ofm"),
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		return &types.TransportError{Op: "dynamodb update", Err: err}
	}
	return nil
}
