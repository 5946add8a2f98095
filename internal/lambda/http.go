package lambda

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/datakite/resampled/pkg/types"
)

// corsHeaders are attached to every proxy response so browser clients can
// call the API from any origin.
var corsHeaders = map[string]string{
	"Content-Type":                     "application/json",
	"Access-Control-Allow-Origin":      "*",
	"Access-Control-Allow-Credentials": "true",
}

// Respond wraps a successful payload in the {"data": ...} envelope.
func Respond(data any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return RespondError(fmt.Errorf("encoding response: %w", err))
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    corsHeaders,
		Body:       string(body),
	}, nil
}

// RespondError wraps a failure in the {"exception": ...} envelope with the
// status code implied by the error type. The error is consumed here, never
// returned: a handler error would bypass the envelope contract.
func RespondError(err error) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{"exception": err.Error()})
	return events.APIGatewayProxyResponse{
		StatusCode: StatusOf(err),
		Headers:    corsHeaders,
		Body:       string(body),
	}, nil
}

// StatusOf maps the domain error taxonomy to HTTP status codes.
func StatusOf(err error) int {
	var (
		verr *types.ValidationError
		nerr *types.NotFoundError
		eerr *types.ExpiredError
		terr *types.TransportError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &nerr):
		return http.StatusNotFound
	case errors.As(err, &eerr):
		return http.StatusGone
	case errors.As(err, &terr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
