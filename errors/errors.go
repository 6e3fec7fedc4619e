// Package errors defines the bot's error type. Every failure of a
// transcription run, and every rejected webhook request, is an *AppError
// carrying a code, an HTTP status and a retry hint.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable kind of an AppError.
type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidSignature   ErrorCode = "INVALID_SIGNATURE"
	ErrCodeTooLarge           ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"

	// Pipeline stage failures.
	ErrCodeTransport   ErrorCode = "TRANSPORT_FAILED"
	ErrCodeTranscode   ErrorCode = "TRANSCODE_FAILED"
	ErrCodeProbe       ErrorCode = "PROBE_FAILED"
	ErrCodeRecognition ErrorCode = "RECOGNITION_FAILED"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeInvalidSignature:   {http.StatusUnauthorized, false},
	ErrCodeTooLarge:           {http.StatusRequestEntityTooLarge, false},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeExternalService:    {http.StatusBadGateway, true},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
	ErrCodeTransport:          {http.StatusBadGateway, true},
	ErrCodeTranscode:          {http.StatusUnprocessableEntity, false},
	ErrCodeProbe:              {http.StatusUnprocessableEntity, false},
	ErrCodeRecognition:        {http.StatusBadGateway, true},
}

// AppError is the error type shared by every package of the bot.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// New builds an AppError whose status and retry hint follow from code.
// Unknown codes map to 500 and are not retryable.
func New(code ErrorCode, message string) *AppError {
	info, ok := codes[code]
	if !ok {
		info = codeInfo{status: http.StatusInternalServerError}
	}
	return &AppError{Code: code, Message: message, HTTPStatus: info.status, Retryable: info.retryable}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds a key to Details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Validation rejects malformed input.
func Validation(message string) *AppError { return New(ErrCodeInvalidInput, message) }

// InvalidSignature rejects a webhook body whose signature does not match.
func InvalidSignature() *AppError {
	return New(ErrCodeInvalidSignature, "Request signature verification failed.")
}

// TooLarge rejects a request body over limit bytes.
func TooLarge(limit int64) *AppError {
	return New(ErrCodeTooLarge, "request body too large").WithDetail("limit_bytes", limit)
}

func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The request took too long. Please try again.").
		WithDetail("operation", operation)
}

func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service)).
		WithDetail("service", service)
}

func ExternalServiceError(service string, cause error) *AppError {
	return New(ErrCodeExternalService, fmt.Sprintf("The %s service encountered an error. Please try again.", service)).
		WithDetail("service", service).
		WithCause(cause)
}

func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}

// TransportFailed reports that a message's content could not be fetched.
func TransportFailed(messageID string, cause error) *AppError {
	return New(ErrCodeTransport, "Message content could not be retrieved.").
		WithDetail("message_id", messageID).
		WithCause(cause)
}

// TranscodeFailed reports a failed ffmpeg run. stderr is the tail of its
// diagnostics and is omitted when empty.
func TranscodeFailed(operation, stderr string, cause error) *AppError {
	e := New(ErrCodeTranscode, "Media could not be converted to audio.").
		WithDetail("operation", operation).
		WithCause(cause)
	if stderr != "" {
		e.WithDetail("stderr", stderr)
	}
	return e
}

// ProbeFailed reports that no usable audio stream metadata was found.
func ProbeFailed(reason string, cause error) *AppError {
	return New(ErrCodeProbe, "Audio metadata unavailable: "+reason).WithCause(cause)
}

// RecognitionFailed reports a failed OCR or speech provider call.
func RecognitionFailed(providerName string, cause error) *AppError {
	return New(ErrCodeRecognition, fmt.Sprintf("The %s recognition provider failed.", providerName)).
		WithDetail("provider", providerName).
		WithCause(cause)
}

// ErrorResponse is the JSON body written for a failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: e.Code, Message: e.Message, Retryable: e.Retryable, Details: e.Details}}
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsTransport(err error) bool   { return HasCode(err, ErrCodeTransport) }
func IsTranscode(err error) bool   { return HasCode(err, ErrCodeTranscode) }
func IsProbe(err error) bool       { return HasCode(err, ErrCodeProbe) }
func IsRecognition(err error) bool { return HasCode(err, ErrCodeRecognition) }
