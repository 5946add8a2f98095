// retrieval Lambda returns a request record with download URLs for whichever
// artifacts exist.
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

type retriever interface {
	Retrieve(ctx context.Context, requestID, email string) (*types.RecordView, error)
}

// parseRetrieval reads the lookup parameters from the JSON body, falling back
// to query-string parameters for GET callers.
func parseRetrieval(req events.APIGatewayProxyRequest) (intlambda.RetrievalRequest, error) {
	var in intlambda.RetrievalRequest
	if req.Body != "" {
		if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
			return in, types.NewValidationError("invalid request body: %v", err)
		}
		return in, nil
	}
	in.RequestID = req.QueryStringParameters["requestId"]
	in.Email = req.QueryStringParameters["email"]
	return in, nil
}

func handleRetrieve(ctx context.Context, r retriever, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	in, err := parseRetrieval(req)
	if err != nil {
		return intlambda.RespondError(err)
	}

	view, err := r.Retrieve(ctx, in.RequestID, in.Email)
	if err != nil {
		return intlambda.RespondError(err)
	}
	return intlambda.Respond(view)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	d, err := getDeps()
	if err != nil {
		return intlambda.RespondError(err)
	}
	return handleRetrieve(ctx, d.Orchestrator, req)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
