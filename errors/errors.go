// Package errors classifies the failures that abort a training process.
package errors

import "errors"

type Category string

const (
	// CategoryConfig marks a descriptor that is missing required fields or
	// violates the descriptor schema.
	CategoryConfig Category = "config"
	// CategoryPath marks an invalid descriptor path or an empty checkpoint
	// directory.
	CategoryPath Category = "path"
	// CategorySequencing marks session components built out of order.
	CategorySequencing Category = "sequencing"
	// CategoryExecution marks a failure inside a replica computation,
	// gradient application or metric computation.
	CategoryExecution Category = "execution"
)

const (
	CodeMissingField       = "missing_field"
	CodeSchemaViolation    = "schema_violation"
	CodeUnknownComponent   = "unknown_component"
	CodeInvalidPath        = "invalid_experiment_path"
	CodeCheckpointNotFound = "checkpoint_not_found"
	CodeDatasetsNotBuilt   = "datasets_not_built"
	CodeReplicaFailed      = "replica_failed"
	CodeGradientFailed     = "gradient_failed"
	CodeMetricFailed       = "metric_failed"
)

type classifiedError struct {
	category Category
	code     string
	cause    error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Category() Category {
	return e.category
}

func (e *classifiedError) Code() string {
	return e.code
}

// Wrap classifies cause. A nil cause yields nil.
func Wrap(cause error, category Category, code string) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		category: category,
		code:     code,
		cause:    cause,
	}
}

// New classifies a plain message.
func New(category Category, code, message string) error {
	return Wrap(errors.New(message), category, code)
}

func CategoryOf(err error) Category {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.category
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

// IsNotFound reports whether err is a checkpoint directory without any
// checkpoint descriptor.
func IsNotFound(err error) bool {
	return CategoryOf(err) == CategoryPath && CodeOf(err) == CodeCheckpointNotFound
}
