package errors

import (
	"fmt"
	"time"

	"github.com/idr-analysis/idrconnect/internal/logging"
)

// ErrorSeverity indicates the impact level of an error
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// ContextualError provides enhanced error information with diagnostic context
type ContextualError struct {
	Type      Kind                   `json:"type"`
	Severity  ErrorSeverity          `json:"severity"`
	Message   string                 `json:"message"`
	Component string                 `json:"component"`
	Operation string                 `json:"operation,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *ContextualError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Type, e.Message)
}

// Unwrap provides access to the underlying error
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// Kind implements Kinded.
func (e *ContextualError) Kind() Kind {
	return e.Type
}

// ErrorBuilder provides a fluent interface for creating contextual errors
type ErrorBuilder struct {
	err    *ContextualError
	logger *logging.Logger
}

// NewErrorBuilder creates a new error builder with default settings
func NewErrorBuilder(kind Kind, component string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &ContextualError{
			Type:      kind,
			Severity:  SeverityMedium,
			Component: component,
			Context:   make(map[string]interface{}),
			Timestamp: time.Now(),
		},
		logger: logging.GetGlobalLogger().WithComponent(component),
	}
}

// WithSeverity sets the error severity level
func (eb *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	eb.err.Severity = severity
	return eb
}

// WithMessage sets the technical error message
func (eb *ErrorBuilder) WithMessage(format string, args ...interface{}) *ErrorBuilder {
	eb.err.Message = fmt.Sprintf(format, args...)
	return eb
}

// WithOperation sets the operation that failed
func (eb *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	eb.err.Operation = operation
	return eb
}

// WithCause sets the underlying error that caused this error
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.err.Cause = cause
	return eb
}

// WithContext adds contextual information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.err.Context[key] = value
	return eb
}

// Build creates the contextual error and logs it at a level matching its severity
func (eb *ErrorBuilder) Build() *ContextualError {
	logFields := map[string]interface{}{
		"error_type": eb.err.Type,
		"severity":   eb.err.Severity,
		"operation":  eb.err.Operation,
	}
	for k, v := range eb.err.Context {
		logFields["ctx_"+k] = v
	}

	logMessage := eb.err.Message
	if eb.err.Cause != nil {
		logMessage = fmt.Sprintf("%s: %v", eb.err.Message, eb.err.Cause)
	}

	loggerWithFields := eb.logger.WithFields(logFields)
	switch eb.err.Severity {
	case SeverityCritical, SeverityHigh:
		loggerWithFields.Error(logMessage)
	case SeverityMedium:
		loggerWithFields.Warn(logMessage)
	case SeverityLow:
		loggerWithFields.Debug(logMessage)
	}

	return eb.err
}

// NewConfigurationError starts an error for invalid local configuration (bad port, bad profile).
func NewConfigurationError(component string) *ErrorBuilder {
	return NewErrorBuilder(KindConfiguration, component).WithSeverity(SeverityMedium)
}

// NewHTTPError starts an error for web front-end failures.
func NewHTTPError(component string) *ErrorBuilder {
	return NewErrorBuilder(KindHTTP, component).WithSeverity(SeverityMedium)
}

// ErrorChain collects independent failures, such as one per probed server.
type ErrorChain struct {
	errors []error
	logger *logging.Logger
}

// NewErrorChain creates a new error chain
func NewErrorChain(logger *logging.Logger) *ErrorChain {
	return &ErrorChain{
		errors: make([]error, 0),
		logger: logger,
	}
}

// Add appends an error to the chain
func (ec *ErrorChain) Add(err error) *ErrorChain {
	if err != nil {
		ec.errors = append(ec.errors, err)
		if ec.logger != nil {
			ec.logger.Debug("Error added to chain", "error", err.Error(), "chain_length", len(ec.errors))
		}
	}
	return ec
}

// HasErrors returns true if the chain contains any errors
func (ec *ErrorChain) HasErrors() bool {
	return len(ec.errors) > 0
}

// GetErrors returns all errors in the chain
func (ec *ErrorChain) GetErrors() []error {
	return ec.errors
}

// Err joins the chain into a single error, or returns nil if it is empty.
func (ec *ErrorChain) Err() error {
	if !ec.HasErrors() {
		return nil
	}
	return Join(ec.errors...)
}
