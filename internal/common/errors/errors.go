// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
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
	ErrCodeGigNotFound       ErrorCode = "GIG_NOT_FOUND"
	ErrCodeGigNotUrgent      ErrorCode = "GIG_NOT_URGENT"
	ErrCodeAlreadyDispatched ErrorCode = "ALREADY_DISPATCHED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodePoolQueryFailed          ErrorCode = "POOL_QUERY_FAILED"
	ErrCodeProfileQueryFailed       ErrorCode = "PROFILE_QUERY_FAILED"
	ErrCodeLedgerQueryFailed        ErrorCode = "LEDGER_QUERY_FAILED"
	ErrCodeResponseInsertFailed     ErrorCode = "RESPONSE_INSERT_FAILED"
	ErrCodeEscrowUpdateFailed       ErrorCode = "ESCROW_UPDATE_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodePushSendFailed ErrorCode = "PUSH_SEND_FAILED"

	ErrCodeInvalidTriggerPayload ErrorCode = "INVALID_TRIGGER_PAYLOAD"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
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

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewGigNotFoundError creates a non-retryable error for an unknown
// payment correlation key. The triggering event is not replayed.
func NewGigNotFoundError(paymentRef string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGigNotFound,
		Message:   "No gig found for payment reference",
		Details:   fmt.Sprintf("paymentRef: %s", paymentRef),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGigNotUrgentError creates a non-retryable error for a gig outside
// the urgent-dispatch category.
func NewGigNotUrgentError(gigID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGigNotUrgent,
		Message:   "Gig is not in the urgent-dispatch category",
		Details:   fmt.Sprintf("gigId: %s", gigID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyDispatchedError creates a non-retryable error for a
// duplicate trigger delivery caught by the dispatch guard.
func NewAlreadyDispatchedError(gigID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyDispatched,
		Message:   "Gig has already been dispatched",
		Details:   fmt.Sprintf("gigId: %s", gigID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPoolQueryFailedError creates a retryable error for a failed
// candidate-pool read. A partial pool would bias the ranking silently,
// so the pass aborts instead.
func NewPoolQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePoolQueryFailed,
		Message:   "Candidate pool query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileQueryFailedError creates a retryable error for a failed
// batched profile enrichment read.
func NewProfileQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileQueryFailed,
		Message:   "Candidate profile query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerQueryFailedError creates a retryable error for a failed
// notification-ledger aggregation read.
func NewLedgerQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerQueryFailed,
		Message:   "Notification ledger query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResponseInsertFailedError creates a retryable error for a failed
// GigResponse or ledger insert.
func NewResponseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseInsertFailed,
		Message:   "Gig response insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEscrowUpdateFailedError creates a retryable error for a failed
// escrow status transition.
func NewEscrowUpdateFailedError(gigID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEscrowUpdateFailed,
		Message:   "Escrow status update failed",
		Details:   fmt.Sprintf("gigId: %s, error: %s", gigID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushSendFailedError creates a retryable push delivery error. Sends
// are best-effort; this surfaces in logs, never fails a pass.
func NewPushSendFailedError(candidateID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePushSendFailed,
		Message:   "Push notification delivery failed",
		Details:   fmt.Sprintf("candidateId: %s, error: %s", candidateID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTriggerPayloadError creates a non-retryable error for a
// malformed trigger event.
func NewInvalidTriggerPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTriggerPayload,
		Message:   "Trigger payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. The
// dispatch process model uses the same identifiers.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeGigNotFound:              "GIG_NOT_FOUND",
	ErrCodeGigNotUrgent:             "GIG_NOT_URGENT",
	ErrCodeAlreadyDispatched:        "ALREADY_DISPATCHED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodePoolQueryFailed:          "POOL_QUERY_FAILED",
	ErrCodeProfileQueryFailed:       "PROFILE_QUERY_FAILED",
	ErrCodeLedgerQueryFailed:        "LEDGER_QUERY_FAILED",
	ErrCodeResponseInsertFailed:     "RESPONSE_INSERT_FAILED",
	ErrCodeEscrowUpdateFailed:       "ESCROW_UPDATE_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodePushSendFailed:           "PUSH_SEND_FAILED",
	ErrCodeInvalidTriggerPayload:    "INVALID_TRIGGER_PAYLOAD",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodePoolQueryFailed,
		ErrCodeProfileQueryFailed,
		ErrCodeLedgerQueryFailed,
		ErrCodeResponseInsertFailed,
		ErrCodeEscrowUpdateFailed,
		ErrCodePushSendFailed,
		ErrCodeExternalService:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout, ErrCodeTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "GIG") || strings.Contains(codeStr, "DISPATCH"):
		return "DISPATCH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "INSERT") || strings.Contains(codeStr, "ESCROW") ||
		strings.Contains(codeStr, "POOL") || strings.Contains(codeStr, "PROFILE") ||
		strings.Contains(codeStr, "LEDGER"):
		return "DATABASE"
	case strings.Contains(codeStr, "PUSH"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
