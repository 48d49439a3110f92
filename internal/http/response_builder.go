// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses. Successful
// payloads are wrapped as {"data": ...} and failures as {"message": ...}.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fintrax/internal/cache"
	"fintrax/internal/core"
	"fintrax/internal/sources"
	"fintrax/internal/sources/rest"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Message string `json:"message"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets v as the payload under the "data" key.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = dataEnvelope{Data: v}
	return b
}

// Message sets an error message payload.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.payload = errorEnvelope{Message: msg}
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates a standard {"message": ...} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// errBadRequest marks request parameters that could not be understood.
var errBadRequest = errors.New("bad request")

// errBodyTooLarge marks a request body over maxBodyBytes.
var errBodyTooLarge = errors.New("request body too large")

// statusFor maps a service error onto an HTTP status. Not-found is checked
// before *rest.APIError because the REST client joins both for a 404.
func statusFor(err error) int {
	var dateErr *core.DateError
	var apiErr *rest.APIError
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.As(err, &dateErr),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, cache.ErrInvalidPattern):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingDate),
		errors.Is(err, core.ErrDescriptionLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sources.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFor builds the response for err. Server-side failures get a generic
// message so backend details stay in the logs.
func ErrorFor(err error) *JSONResponseBuilder {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		return InternalServerError("internal server error")
	case http.StatusBadGateway:
		return ErrorResponse(status, "data backend request failed")
	case http.StatusGatewayTimeout:
		return ErrorResponse(status, "data backend timed out")
	default:
		return ErrorResponse(status, err.Error())
	}
}
