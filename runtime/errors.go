package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deicod/webity/nodes"
)

// ErrorType represents different types of runtime errors
type ErrorType string

const (
	ErrorTypeTemplate   ErrorType = "template_error"
	ErrorTypeUndefined  ErrorType = "undefined_error"
	ErrorTypeSyntax     ErrorType = "syntax_error"
	ErrorTypeEvaluation ErrorType = "evaluation_error"
	ErrorTypeType       ErrorType = "type_error"
	ErrorTypeSecurity   ErrorType = "security_error"
	ErrorTypeAssignment ErrorType = "assignment_error"
	ErrorTypeImport     ErrorType = "import_error"
	ErrorTypeRead       ErrorType = "read_error"
	ErrorTypeStructure  ErrorType = "structure_warning"
)

// Error represents a runtime error with position information
type Error struct {
	Type     ErrorType
	Message  string
	Template string
	Position nodes.Position
	Node     nodes.Node
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	where := ""
	if e.Template != "" {
		where = " in " + e.Template
	}
	if e.Position.Line > 0 {
		if e.Position.Column > 0 {
			return fmt.Sprintf("%s%s at line %d, column %d: %s", e.Type, where, e.Position.Line, e.Position.Column, e.Message)
		}
		return fmt.Sprintf("%s%s at line %d: %s", e.Type, where, e.Position.Line, e.Message)
	}
	return fmt.Sprintf("%s%s: %s", e.Type, where, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new runtime error
func NewError(errorType ErrorType, message string, position nodes.Position, node nodes.Node) *Error {
	return &Error{
		Type:     errorType,
		Message:  message,
		Position: position,
		Node:     node,
	}
}

// NewErrorWithCause creates a new runtime error with an underlying cause
func NewErrorWithCause(errorType ErrorType, message string, position nodes.Position, node nodes.Node, cause error) *Error {
	return &Error{
		Type:     errorType,
		Message:  message,
		Position: position,
		Node:     node,
		Cause:    cause,
	}
}

// WrapError attaches position information to err. Runtime errors keep their
// type and only gain a position if they have none yet.
func WrapError(err error, position nodes.Position, node nodes.Node) error {
	if err == nil {
		return nil
	}

	var base *Error
	if errors.As(err, &base) {
		if base.Position.Line == 0 && position.Line != 0 {
			base.Position = position
		}
		if base.Node == nil && node != nil {
			base.Node = node
		}
		return err
	}

	return &Error{
		Type:     ErrorTypeTemplate,
		Message:  err.Error(),
		Position: position,
		Node:     node,
		Cause:    err,
	}
}

// UndefinedError represents a reference to a name that was never declared
type UndefinedError struct {
	error
	Name string
}

// NewUndefinedError creates a new undefined variable error
func NewUndefinedError(name string, position nodes.Position, node nodes.Node) *UndefinedError {
	return &UndefinedError{
		error: NewError(ErrorTypeUndefined, fmt.Sprintf("%s is not defined", name), position, node),
		Name:  name,
	}
}

func (e *UndefinedError) Unwrap() error {
	return e.error
}

// TypeError represents an operation applied to a value of the wrong type,
// such as calling a non-function or reading a property of null.
type TypeError struct {
	error
}

// NewTypeError creates a new type error
func NewTypeError(message string, position nodes.Position, node nodes.Node) *TypeError {
	return &TypeError{error: NewError(ErrorTypeType, message, position, node)}
}

func (e *TypeError) Unwrap() error {
	return e.error
}

// SecurityError represents a violated evaluation policy
type SecurityError struct {
	error
	Operation string
}

// NewSecurityError creates a new security error
func NewSecurityError(operation, message string, position nodes.Position, node nodes.Node) *SecurityError {
	return &SecurityError{
		error:     NewError(ErrorTypeSecurity, message, position, node),
		Operation: operation,
	}
}

func (e *SecurityError) Unwrap() error {
	return e.error
}

// AssignmentError represents an invalid assignment
type AssignmentError struct {
	error
	Target string
}

// NewAssignmentError creates a new assignment error
func NewAssignmentError(target, message string, position nodes.Position, node nodes.Node) *AssignmentError {
	return &AssignmentError{
		error:  NewError(ErrorTypeAssignment, fmt.Sprintf("cannot assign to %s: %s", target, message), position, node),
		Target: target,
	}
}

func (e *AssignmentError) Unwrap() error {
	return e.error
}

// EvaluationError wraps any failure of a directive, attribute, inline script
// or webity script. It is logged and the failing piece renders as nothing.
type EvaluationError struct {
	error
	Source string
}

// NewEvaluationError creates a new evaluation error for source
func NewEvaluationError(source, template string, cause error) *EvaluationError {
	base := NewErrorWithCause(ErrorTypeEvaluation, cause.Error(), nodes.Position{}, nil, cause)
	base.Template = template
	return &EvaluationError{error: base, Source: source}
}

func (e *EvaluationError) Unwrap() error {
	return e.error
}

// ReadError is returned when a template file cannot be read
type ReadError struct {
	Path  string
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: cannot read template %s: %v", ErrorTypeRead, e.Path, e.Cause)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

// CyclicImportError is returned when a template imports, directly or
// transitively, a template that is still being rendered. Chain lists the
// template paths from the outermost render to the repeated one.
type CyclicImportError struct {
	Chain []string
}

func (e *CyclicImportError) Error() string {
	return fmt.Sprintf("%s: cyclic import: %s", ErrorTypeImport, strings.Join(e.Chain, " -> "))
}

// StructuralWarning reports markup that a component import expects but the
// templates lack. It is logged, never returned from a render.
type StructuralWarning struct {
	File   string
	Marker string
}

func (w *StructuralWarning) Error() string {
	return fmt.Sprintf("%s: %s in %s", ErrorTypeStructure, w.Marker, w.File)
}

// IsUndefinedError checks if an error is an undefined variable error
func IsUndefinedError(err error) bool {
	var target *UndefinedError
	return errors.As(err, &target)
}

// IsEvaluationError checks if err is or wraps an EvaluationError
func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// IsCyclicImportError checks if err is or wraps a CyclicImportError
func IsCyclicImportError(err error) bool {
	var target *CyclicImportError
	return errors.As(err, &target)
}

// IsReadError checks if err is or wraps a ReadError
func IsReadError(err error) bool {
	var target *ReadError
	return errors.As(err, &target)
}

// IsSecurityError checks if err is or wraps a SecurityError
func IsSecurityError(err error) bool {
	var target *SecurityError
	return errors.As(err, &target)
}

// IsTypeError checks if err is or wraps a TypeError
func IsTypeError(err error) bool {
	var target *TypeError
	return errors.As(err, &target)
}
