// Package errors provides the service error taxonomy and its mapping to BPMN workflow errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeOrchestrationUnavailable ErrorCode = "ORCHESTRATION_UNAVAILABLE"
	ErrCodeSynthesisFailed          ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeGenerationTimeout        ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeGenerationFailed         ErrorCode = "GENERATION_FAILED"
	ErrCodeEmbeddingFailed          ErrorCode = "EMBEDDING_FAILED"

	ErrCodeVehicleNotFound ErrorCode = "VEHICLE_NOT_FOUND"
	ErrCodeLeadNotFound    ErrorCode = "LEAD_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeMemoryStoreFailed        ErrorCode = "MEMORY_STORE_FAILED"

	ErrCodeIndexFailed       ErrorCode = "INDEX_FAILED"
	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Orchestration failure
// ==========================

// HandoffMessage is what a customer sees when no reply can be produced.
const HandoffMessage = "Lo sentimos, en este momento no podemos completar tu consulta. " +
	"Un representante de ventas de nuestro equipo te contactará en breve, " +
	"o si prefieres puedes llamarnos directamente al concesionario."

// OrchestrationUnavailableError is returned when the pipeline cannot produce a reply at all.
type OrchestrationUnavailableError struct {
	Stage string
	Cause error
}

func (e *OrchestrationUnavailableError) Error() string {
	return fmt.Sprintf("orchestration unavailable at %s stage: %v", e.Stage, e.Cause)
}

func (e *OrchestrationUnavailableError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the apology and human handoff text for transports.
func (e *OrchestrationUnavailableError) UserMessage() string {
	return HandoffMessage
}

// NewOrchestrationUnavailable wraps a fatal stage failure.
func NewOrchestrationUnavailable(stage string, cause error) *OrchestrationUnavailableError {
	return &OrchestrationUnavailableError{Stage: stage, Cause: cause}
}

// IsOrchestrationUnavailable reports whether err is, or wraps, an OrchestrationUnavailableError.
func IsOrchestrationUnavailable(err error) bool {
	var target *OrchestrationUnavailableError
	return stderrors.As(err, &target)
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 4. Error Constructors
// ==========================

// NewSynthesisFailedError is the non-degradable generation failure.
func NewSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeSynthesisFailed, "Reply synthesis failed", err, true)
}

// NewGenerationFailedError reports a provider error.
func NewGenerationFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeGenerationFailed, fmt.Sprintf("Generative provider '%s' error", provider), err, true)
}

// NewEmbeddingFailedError reports an embedding provider error.
func NewEmbeddingFailedError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "Embedding generation failed", err, true)
}

// NewVehicleNotFoundError creates a non-retryable lookup error.
func NewVehicleNotFoundError(vehicleID string) *StandardError {
	e := newError(ErrCodeVehicleNotFound, "Vehicle not found in inventory", nil, false)
	e.Details = fmt.Sprintf("vehicleId: %s", vehicleID)
	return e
}

// NewLeadNotFoundError creates a non-retryable lookup error.
func NewLeadNotFoundError(leadID string) *StandardError {
	e := newError(ErrCodeLeadNotFound, "Lead not found", nil, false)
	e.Details = fmt.Sprintf("leadId: %s", leadID)
	return e
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err, true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "Database query execution error", err, true)
	e.Details = fmt.Sprintf("queryType: %s, error: %v", queryType, err)
	return e
}

// NewMemoryStoreFailedError reports a customer memory read or write failure.
func NewMemoryStoreFailedError(op string, err error) *StandardError {
	e := newError(ErrCodeMemoryStoreFailed, "Customer memory store error", err, true)
	e.Details = fmt.Sprintf("op: %s, error: %v", op, err)
	return e
}

// NewIndexFailedError reports a vector index write failure.
func NewIndexFailedError(itemID string, err error) *StandardError {
	e := newError(ErrCodeIndexFailed, "Semantic index write failed", err, true)
	e.Details = fmt.Sprintf("itemId: %s, error: %v", itemID, err)
	return e
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	e := newError(ErrCodeSearchQueryFailed, "Semantic search query error", err, true)
	e.Details = fmt.Sprintf("queryType: %s, error: %v", queryType, err)
	return e
}

// NewEventPublishFailedError reports a downstream event publication failure.
func NewEventPublishFailedError(topic string, err error) *StandardError {
	e := newError(ErrCodeEventPublishFailed, "Event publication failed", err, true)
	e.Details = fmt.Sprintf("topic: %s, error: %v", topic, err)
	return e
}

// NewValidationError creates a non-retryable input error.
func NewValidationError(details string) *StandardError {
	e := newError(ErrCodeInvalidInput, "Invalid input", nil, false)
	e.Details = details
	return e
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err, true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err, true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	e := newError(ErrCodeNotFound, fmt.Sprintf("Resource not found in %s", service), nil, false)
	e.Details = details
	return e
}

// ==========================
// 5. Normalization and BPMN conversion
// ==========================

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}

	var unavailable *OrchestrationUnavailableError
	if stderrors.As(err, &unavailable) {
		e := newError(ErrCodeOrchestrationUnavailable, "Sales assistant unavailable", err, true)
		e.Metadata = map[string]interface{}{"stage": unavailable.Stage}
		return e
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeMemoryStoreFailed,
		ErrCodeIndexFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeGenerationFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeGenerationTimeout,
		ErrCodeTimeout,
		ErrCodeEventPublishFailed:
		return 2

	case ErrCodeSynthesisFailed,
		ErrCodeOrchestrationUnavailable:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ORCHESTRATION") || strings.Contains(codeStr, "SYNTHESIS") ||
		strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "EMBEDDING"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION") ||
		strings.Contains(codeStr, "MEMORY"):
		return "DATABASE"
	case strings.Contains(codeStr, "INDEX") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "EVENT"):
		return "EVENTS"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
