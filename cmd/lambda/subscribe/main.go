// subscribe Lambda creates a filtered email subscription on the notification
// topic.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
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

type subscriber interface {
	Subscribe(ctx context.Context, email string) (string, error)
}

func handleSubscribe(ctx context.Context, s subscriber, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var in intlambda.SubscribeRequest
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		return intlambda.RespondError(types.NewValidationError("invalid request body: %v", err))
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return intlambda.RespondError(types.NewValidationError("invalid email %q", in.Email))
	}

	arn, err := s.Subscribe(ctx, email)
	if err != nil {
		return intlambda.RespondError(err)
	}
	return intlambda.Respond(intlambda.SubscribeResponse{SubscriptionARN: arn})
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	d, err := getDeps()
	if err != nil {
		return intlambda.RespondError(err)
	}
	return handleSubscribe(ctx, d.Notifier, req)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	awslambda.Start(handler)
}
