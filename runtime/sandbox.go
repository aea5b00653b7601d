package runtime

import (
	"fmt"
	"time"

	"github.com/deicod/webity/nodes"
)

// Policy bounds what directive expressions and scripts may do. It is not an
// isolation boundary: expressions still reach every helper they are given.
type Policy struct {
	// MaxCallDepth limits nested function calls, including recursion
	// through closures. Zero disables the check.
	MaxCallDepth int

	// MaxExecutionTime is the wall-clock budget of one script or
	// expression evaluation. Zero disables the check.
	MaxExecutionTime time.Duration

	// Shadowed names are bound to null in every evaluation context and
	// cannot be replaced by locals.
	Shadowed []string
}

// DefaultPolicy returns the policy environments use unless configured otherwise
func DefaultPolicy() Policy {
	return Policy{
		MaxCallDepth: 256,
		Shadowed:     []string{"eval", "Function"},
	}
}

// Clone returns a deep copy of the policy
func (p Policy) Clone() Policy {
	p.Shadowed = append([]string(nil), p.Shadowed...)
	return p
}

// guard tracks one evaluation against a policy
type guard struct {
	policy   Policy
	depth    int
	deadline time.Time
}

func newGuard(policy Policy) *guard {
	g := &guard{policy: policy}
	if policy.MaxExecutionTime > 0 {
		g.deadline = time.Now().Add(policy.MaxExecutionTime)
	}
	return g
}

// enter records a function call; the returned func must be deferred
func (g *guard) enter(pos nodes.Position, node nodes.Node) (func(), error) {
	if g.policy.MaxCallDepth > 0 && g.depth >= g.policy.MaxCallDepth {
		return nil, NewSecurityError("call_depth",
			fmt.Sprintf("maximum call depth of %d exceeded", g.policy.MaxCallDepth), pos, node)
	}
	g.depth++
	return func() { g.depth-- }, nil
}

// check fails once the execution budget is spent
func (g *guard) check(pos nodes.Position, node nodes.Node) error {
	if !g.deadline.IsZero() && time.Now().After(g.deadline) {
		return NewSecurityError("execution_time",
			fmt.Sprintf("execution time limit of %s exceeded", g.policy.MaxExecutionTime), pos, node)
	}
	return nil
}
