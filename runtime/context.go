package runtime

import (
	"io"
	"log/slog"
	"sort"
)

// Scope represents a variable scope
type Scope struct {
	parent   *Scope
	vars     map[string]interface{}
	consts   map[string]bool
	function bool
}

// NewScope creates a new top-level scope
func NewScope() *Scope {
	return &Scope{
		vars:     make(map[string]interface{}),
		consts:   make(map[string]bool),
		function: true,
	}
}

// NewChildScope creates a block scope
func (s *Scope) NewChildScope() *Scope {
	child := NewScope()
	child.parent = s
	child.function = false
	return child
}

// newFunctionScope creates the scope of a function body; `var`
// declarations inside it stop here
func (s *Scope) newFunctionScope() *Scope {
	child := NewScope()
	child.parent = s
	return child
}

// Set sets a variable in the current scope
func (s *Scope) Set(name string, value interface{}) {
	s.vars[name] = value
}

// SetConst sets a variable in the current scope that cannot be reassigned
func (s *Scope) SetConst(name string, value interface{}) {
	s.vars[name] = value
	s.consts[name] = true
}

// Get gets a variable, searching parent scopes if not found
func (s *Scope) Get(name string) (interface{}, bool) {
	if owner := s.lookup(name); owner != nil {
		return owner.vars[name], true
	}
	return nil, false
}

// Has checks if a variable exists in any scope
func (s *Scope) Has(name string) bool {
	return s.lookup(name) != nil
}

// declaredHere reports whether name is declared in this scope itself
func (s *Scope) declaredHere(name string) bool {
	_, ok := s.vars[name]
	return ok
}

func (s *Scope) lookup(name string) *Scope {
	for scope := s; scope != nil; scope = scope.parent {
		if _, ok := scope.vars[name]; ok {
			return scope
		}
	}
	return nil
}

func (s *Scope) functionScope() *Scope {
	scope := s
	for !scope.function && scope.parent != nil {
		scope = scope.parent
	}
	return scope
}

// Keys returns all variable names in the current scope and parents
func (s *Scope) Keys() []string {
	seen := make(map[string]bool)
	for scope := s; scope != nil; scope = scope.parent {
		for k := range scope.vars {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Local returns a copy of variables in the current scope only
func (s *Scope) Local() map[string]interface{} {
	result := make(map[string]interface{}, len(s.vars))
	for k, v := range s.vars {
		result[k] = v
	}
	return result
}

// Context is the evaluation context of one directive, attribute or script.
// The outermost scope holds built-ins, locals and helpers; code runs in a
// child scope so its own declarations may shadow them.
type Context struct {
	globals *Scope
	scope   *Scope
	logger  *slog.Logger
	guard   *guard
	name    string
	ev      *Evaluator
}

// NewContext creates a context holding the language built-ins and vars,
// evaluated under the default policy
func NewContext(vars map[string]interface{}) *Context {
	ctx := newContext("", nil, DefaultPolicy())
	for k, v := range vars {
		ctx.Set(k, v)
	}
	ctx.shadow()
	return ctx
}

func newContext(name string, logger *slog.Logger, policy Policy) *Context {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	globals := NewScope()
	ctx := &Context{
		globals: globals,
		scope:   globals.newFunctionScope(),
		logger:  logger,
		guard:   newGuard(policy),
		name:    name,
	}
	installBuiltins(ctx)
	return ctx
}

// Evaluator returns the evaluator bound to this context
func (ctx *Context) Evaluator() *Evaluator {
	if ctx.ev == nil {
		ctx.ev = NewEvaluator(ctx)
	}
	return ctx.ev
}

// Set binds a global name
func (ctx *Context) Set(name string, value interface{}) {
	ctx.globals.Set(name, fromGo(value))
}

// Get looks a name up from the innermost scope outwards
func (ctx *Context) Get(name string) (interface{}, bool) {
	return ctx.scope.Get(name)
}

// shadow binds the policy's shadowed names to null. It runs after locals
// and helpers are bound so those names cannot be supplied by the caller.
func (ctx *Context) shadow() {
	for _, name := range ctx.guard.policy.Shadowed {
		ctx.globals.Set(name, nil)
	}
}

// Logger returns the logger console.log writes to
func (ctx *Context) Logger() *slog.Logger {
	return ctx.logger
}
