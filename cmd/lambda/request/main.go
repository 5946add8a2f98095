// request Lambda accepts a resampling submission and returns the stored
// record with a presigned upload URL for the raw data.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	intlambda "github.com/datakite/resampled/internal/lambda"
	"github.com/datakite/resampled/internal/orchestrator"
	"github.com/datakite/resampled/pkg/types"
)

var (
	deps     *intlambda.Deps
	depsOnce sync.Once
	depsErr  error
)

func getDeps() (*intlambda.Deps, error) {
	depsOnce.Do(func() {
		deps, depsErr = intlambda.Init(context.Background())
	})
	return deps, depsErr
}

type submitter interface {
	Submit(ctx context.Context, in orchestrator.SubmitInput) (*orchestrator.SubmitResult, error)
}

// handleSubmit parses the proxy body and creates the request record.
func handleSubmit(ctx context.Context, s submitter, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var in intlambda.SubmitRequest
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		return intlambda.RespondError(types.NewValidationError("invalid request body: %v", err))
	}

	result, err := s.Submit(ctx, in)
	if err != nil {
		return intlambda.RespondError(err)
	}
	return intlambda.Respond(result)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	d, err := getDeps()
	if err != nil {
		return intlambda.RespondError(err)
	}
	return handleSubmit(ctx, d.Orchestrator, req)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
