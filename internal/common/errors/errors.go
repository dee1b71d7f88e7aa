// Package errors provides standardized error handling for BPMN workflow integration.
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

// Guard errors. Never retried; the caller must change its input or wait.
const (
	ErrCodeDuplicateInvitation  ErrorCode = "DUPLICATE_INVITATION"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeInvalidState         ErrorCode = "INVALID_STATE"
	ErrCodeSlotsFull            ErrorCode = "SLOTS_FULL"
	ErrCodeInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInputParsingFailed   ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeConflict             ErrorCode = "CONFLICT"
)

// Transient and infrastructure errors.
const (
	ErrCodeExternalService          ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                  ErrorCode = "TIMEOUT_ERROR"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// ErrCodeReconciliationNeeded marks a saga that stopped after some of its
// steps committed. The metadata carries the reconciliation record id.
const ErrCodeReconciliationNeeded ErrorCode = "RECONCILIATION_NEEDED"

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

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newGuard(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateInvitationError reports an active invitation for the pair.
func NewDuplicateInvitationError(jobID, freelancerID string) *StandardError {
	return newGuard(ErrCodeDuplicateInvitation,
		"Freelancer already has an open invitation for this job",
		fmt.Sprintf("jobId: %s, freelancerId: %s", jobID, freelancerID))
}

// NewDuplicateApplicationError is informational: the application already exists.
func NewDuplicateApplicationError(userID, jobID string) *StandardError {
	return newGuard(ErrCodeDuplicateApplication,
		"You have already applied to this job",
		fmt.Sprintf("userId: %s, jobId: %s", userID, jobID))
}

func NewInvalidStateError(message, details string) *StandardError {
	return newGuard(ErrCodeInvalidState, message, details)
}

func NewSlotsFullError(jobID string) *StandardError {
	return newGuard(ErrCodeSlotsFull,
		"All slots for this job are taken",
		fmt.Sprintf("jobId: %s", jobID))
}

func NewInsufficientFundsError(details string) *StandardError {
	return newGuard(ErrCodeInsufficientFunds, "Insufficient balance", details)
}

func NewForbiddenError(details string) *StandardError {
	return newGuard(ErrCodeForbidden, "Not allowed for this user", details)
}

func NewValidationError(details string) *StandardError {
	return newGuard(ErrCodeValidationFailed, "Input validation failed", details)
}

// NewInputParsingError reports job variables that are not valid JSON or do
// not fit the expected shape.
func NewInputParsingError(err error) *StandardError {
	return newGuard(ErrCodeInputParsingFailed, "Job variables could not be parsed", err.Error())
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newGuard(ErrCodeResourceNotFound,
		fmt.Sprintf("Resource not found in %s", service), details)
}

func NewConflictError(service, details string) *StandardError {
	return newGuard(ErrCodeConflict,
		fmt.Sprintf("Conflicting update rejected by %s", service), details)
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

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError describes a failed advisory delivery. It is
// only ever logged.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReconciliationNeededError reports a partially applied saga. The message
// stays generic; the code and record id are for operators.
func NewReconciliationNeededError(saga, recordID string, cause error) *StandardError {
	details := fmt.Sprintf("saga: %s", saga)
	if cause != nil {
		details = fmt.Sprintf("saga: %s, cause: %s", saga, cause.Error())
	}
	e := &StandardError{
		Code:      ErrCodeReconciliationNeeded,
		Message:   "The request was only partly applied, please try again later",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	if recordID != "" {
		e.WithMetadata("reconciliationId", recordID)
	}
	return e
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to BPMN error codes where they differ.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputParsingFailed: string(ErrCodeValidationFailed),
	ErrCodeConflict:           string(ErrCodeInvalidState),
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeExternalService,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard unwraps err to a *StandardError if one is in its chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsTransient reports whether err is a retryable failure whose outcome at the
// remote side is unknown.
func IsTransient(err error) bool {
	stdErr, ok := AsStandard(err)
	if !ok {
		return false
	}
	return stdErr.Retryable
}

// IsInformational reports codes that describe an already satisfied request.
func IsInformational(code ErrorCode) bool {
	return code == ErrCodeDuplicateApplication
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeReconciliationNeeded:
		return "RECONCILIATION"
	case strings.HasPrefix(codeStr, "DUPLICATE") || code == ErrCodeSlotsFull ||
		code == ErrCodeInsufficientFunds || code == ErrCodeInvalidState || code == ErrCodeConflict:
		return "GUARD"
	case code == ErrCodeForbidden:
		return "AUTHORIZATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case code == ErrCodeExternalService || code == ErrCodeTimeout:
		return "TRANSIENT"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSING") ||
		code == ErrCodeResourceNotFound:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
