// Package httpx provides helper functions for creating HTTP responses and
// reading caller identity off API Gateway requests.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
)

// JSON creates a JSON HTTP response with the given status code and value.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, map[string]string{"error": msg})
}

// FromError maps workflow and asset errors to HTTP responses. The error
// text is surfaced verbatim; these are user-correctable and never retried
// server-side.
func FromError(err error) (events.APIGatewayV2HTTPResponse, error) {
	var (
		we *workflow.WorkflowError
		ve *workflow.ValidationError
		fe *workflow.FieldLockedError
		se *assets.StorageError
	)
	switch {
	case errors.As(err, &ve):
		return JSON(http.StatusBadRequest, map[string]any{
			"error":          ve.Error(),
			"missing_fields": ve.MissingLabels,
		})
	case errors.As(err, &we):
		return Error(http.StatusConflict, we.Error())
	case errors.As(err, &fe):
		return Error(http.StatusConflict, fe.Error())
	case errors.Is(err, workflow.ErrConflict):
		return Error(http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrNotFound):
		return Error(http.StatusNotFound, err.Error())
	case errors.Is(err, assets.ErrEmptyAsset), errors.Is(err, assets.ErrInvalidAssetFormat):
		return Error(http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		return Error(http.StatusBadGateway, "storage error, please retry")
	default:
		return Error(http.StatusInternalServerError, "internal error")
	}
}

// ClientIP resolves the caller's IP address from the request context.
func ClientIP(req events.APIGatewayV2HTTPRequest) string {
	return req.RequestContext.HTTP.SourceIP
}

// UserAgent returns the caller's client identification string.
func UserAgent(req events.APIGatewayV2HTTPRequest) string {
	return req.RequestContext.HTTP.UserAgent
}
