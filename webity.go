// Package webity renders HTML templates composed of components.
//
// A template is plain HTML that may embed %{ expression }% directives and
// <script webity> blocks. Scripts import other templates as components with
// $import; the imported template's <template> content replaces every
// element named after it, and its scripts are carried into the importer's
// script list.
package webity

import (
	"github.com/deicod/webity/nodes"
	"github.com/deicod/webity/parser"
	"github.com/deicod/webity/runtime"
)

// Version of the webity library
const Version = "0.1.0"

// Environment holds the loader, logger, policy and caches renders share
type Environment = runtime.Environment

// Option configures an Environment
type Option = runtime.Option

// Result is the outcome of one render
type Result = runtime.Result

// Reference identifies a template by directory and file
type Reference = runtime.Reference

// Policy bounds what expressions and scripts may do
type Policy = runtime.Policy

// Loader loads template sources by slash-separated path
type Loader = runtime.Loader

// NewEnvironment creates a new environment
func NewEnvironment(opts ...Option) *Environment {
	return runtime.NewEnvironment(opts...)
}

// Environment options and error helpers
var (
	WithLoader           = runtime.WithLoader
	WithLogger           = runtime.WithLogger
	WithPolicy           = runtime.WithPolicy
	WithCache            = runtime.WithCache
	WithProgramCacheSize = runtime.WithProgramCacheSize
	NewFileSystemLoader  = runtime.NewFileSystemLoader
	NewMapLoader         = runtime.NewMapLoader
	NewFSLoader          = runtime.NewFSLoader
	DefaultPolicy        = runtime.DefaultPolicy
	ResolveReference     = runtime.ResolveReference
	IsReadError          = runtime.IsReadError
	IsCyclicImportError  = runtime.IsCyclicImportError
	IsEvaluationError    = runtime.IsEvaluationError
	IsSecurityError      = runtime.IsSecurityError
)

// Render renders dir/file from the file system relative to the working
// directory
func Render(dir, file string, locals map[string]interface{}, debug bool) (*Result, error) {
	return runtime.Render(dir, file, locals, debug)
}

// RenderString renders a template held in memory
func RenderString(source string, locals map[string]interface{}) (*Result, error) {
	return runtime.RenderString(source, locals)
}

// Evaluate evaluates a single directive expression against locals
func Evaluate(source string, locals map[string]interface{}) (string, error) {
	return runtime.Evaluate(source, locals)
}

// Node access for AST inspection

// Node represents an AST node
type Node = nodes.Node

// ParseScript parses the body of a <script webity> block
func ParseScript(source string) (*nodes.Program, error) {
	return parser.ParseScript(source)
}

// ParseExpression parses a directive expression
func ParseExpression(source string) (nodes.Expr, error) {
	return parser.ParseExpressionString(source)
}

// DumpAST returns a string representation of the AST for debugging
func DumpAST(node Node) string {
	return nodes.Dump(node)
}

// Walk traverses the AST using the visitor pattern
func Walk(visitor nodes.Visitor, node Node) {
	nodes.Walk(visitor, node)
}

// Error types

// Error represents an engine error
type Error = runtime.Error

// ErrorType represents the type of error
type ErrorType = runtime.ErrorType

// ReadError reports a template that could not be loaded
type ReadError = runtime.ReadError

// CyclicImportError reports a template importing itself through a chain
type CyclicImportError = runtime.CyclicImportError
