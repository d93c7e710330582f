package domain

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or invalid required setting.
// It is fatal at startup, never recovered from.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Option, e.Reason)
}

// NewConfigError creates a ConfigError for the given option.
func NewConfigError(option, reason string) *ConfigError {
	return &ConfigError{Option: option, Reason: reason}
}

// IndexingError reports a recoverable per-batch failure during an
// indexing pass. The pipeline skips the batch and continues.
type IndexingError struct {
	Batch int
	Err   error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing batch %d: %v", e.Batch, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// RetrievalError reports an embedding or store failure while answering
// a query. It is surfaced to the caller as a failed answer.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval: %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Tool error codes.
const (
	ToolErrInvalidArgs  = "invalid_args"
	ToolErrInvalidRegex = "invalid_regex"
	ToolErrPathEscape   = "path_escape"
	ToolErrNotFound     = "not_found"
	ToolErrDenied       = "denied"
	ToolErrUnknownTool  = "unknown_tool"
	ToolErrIO           = "io_error"
	ToolErrExec         = "exec_error"
)

// ToolError is a structured per-tool failure. It is returned as data to
// the agent, CLI, or API caller, never raised as an unhandled crash.
type ToolError struct {
	Tool    string `json:"tool"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Code, e.Message)
}

// NewToolError creates a ToolError with the given code.
func NewToolError(tool, code, message string) *ToolError {
	return &ToolError{Tool: tool, Code: code, Message: message}
}

// ServiceError reports a failure talking to an external service such as
// the embedding API, the language model, or a remote vector store.
type ServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient. Rate limits,
// server errors and network timeouts qualify; auth and request errors
// do not.
func (e *ServiceError) Retryable() bool {
	switch {
	case e.StatusCode == 429:
		return true
	case e.StatusCode >= 500 && e.StatusCode <= 599:
		return true
	case e.StatusCode > 0:
		return false
	}
	if e.Err == nil {
		return false
	}
	msg := strings.ToLower(e.Err.Error())
	for _, s := range []string{"timeout", "connection reset", "connection refused", "temporary", "unavailable", "rate limit", "429", "500", "502", "503", "504"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
