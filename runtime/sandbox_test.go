package runtime

import (
	"errors"
	"testing"
	"time"
)

func TestCallDepthLimit(t *testing.T) {
	_, err := execScript("const f = n => f(n + 1)\nreturn f(0)", NewContext(nil))
	if !IsSecurityError(err) {
		t.Fatalf("expected SecurityError, got %T: %v", err, err)
	}

	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Operation != "call_depth" {
		t.Fatalf("expected call_depth violation, got %v", err)
	}
}

func TestCallDepthWithinLimit(t *testing.T) {
	got, err := execScript("const f = n => n > 0 ? n + f(n - 1) : 0\nreturn f(10)", NewContext(nil))
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if got != float64(55) {
		t.Fatalf("expected 55, got %v", got)
	}
}

func TestExecutionTimeLimit(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxExecutionTime = time.Millisecond
	ctx := newContext("test", nil, policy)
	time.Sleep(5 * time.Millisecond)

	_, err := execScript("const a = 1", ctx)
	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Operation != "execution_time" {
		t.Fatalf("expected execution_time violation, got %v", err)
	}
}

func TestPolicyClone(t *testing.T) {
	policy := DefaultPolicy()
	clone := policy.Clone()
	clone.Shadowed[0] = "changed"
	if policy.Shadowed[0] != "eval" {
		t.Fatalf("expected clone to be independent, got %v", policy.Shadowed)
	}
}

func TestCustomShadowedNames(t *testing.T) {
	policy := DefaultPolicy()
	policy.Shadowed = append(policy.Shadowed, "JSON")
	env := newTestEnvironment(map[string]string{
		"views/index.html": "<p>%{ JSON === null }%</p>",
	}, WithPolicy(policy))

	result := mustRender(t, env, "views", "", map[string]interface{}{"JSON": "local"})
	if result.HTML != "<p>true</p>" {
		t.Fatalf("unexpected html %q", result.HTML)
	}
}
