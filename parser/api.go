package parser

import (
	"github.com/deicod/webity/nodes"
)

// ParseScript parses the body of a script element into a program
func ParseScript(source string) (*nodes.Program, error) {
	return ParseScriptWithName(source, "script")
}

// ParseScriptWithName parses a script, using name in error messages
func ParseScriptWithName(source, name string) (*nodes.Program, error) {
	parser, err := NewParser(source, name)
	if err != nil {
		return nil, err
	}
	return parser.Parse()
}

// ParseExpressionString parses source as exactly one expression, as used by
// directives, interpolations and attribute values
func ParseExpressionString(source string) (nodes.Expr, error) {
	return ParseExpressionWithName(source, "expression")
}

// ParseExpressionWithName parses a single expression, using name in error
// messages
func ParseExpressionWithName(source, name string) (nodes.Expr, error) {
	parser, err := NewParser(source, name)
	if err != nil {
		return nil, err
	}
	return parser.ParseSingleExpression()
}
