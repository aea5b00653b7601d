package runtime

import "testing"

func TestStripControl(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "return tail",
			body:     "const a = 1\nreturn a\nconsole.log(a)",
			expected: "const a = 1\n",
		},
		{
			name:     "nested return kept",
			body:     "const f = () => { return 1 }\nf()",
			expected: "const f = () => { return 1 }\nf()",
		},
		{
			name:     "nested return then top-level return",
			body:     "function f() { return 1 }\nreturn f()",
			expected: "function f() { return 1 }\n",
		},
		{
			name:     "import declarations",
			body:     "const card = $import('card');\nlet b = $import(\"$widgets/badge\")\nuse(card)",
			expected: "\n\nuse(card)",
		},
		{
			name:     "bare import call kept",
			body:     "$import('card')",
			expected: "$import('card')",
		},
		{
			name:     "no control statements",
			body:     "console.log('hi')\n",
			expected: "console.log('hi')\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripControl(tt.body); got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStripReturnFallsBackOnLexerFailure(t *testing.T) {
	body := "const a = 1 # x\nreturn a"
	if got := stripReturn(body); got != "const a = 1 # x\n" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestMergeScripts(t *testing.T) {
	inherited := []string{"<script webity>child</script>"}
	own := []string{"<script webity>parent</script>"}

	merged := mergeScripts(inherited, own)
	if len(merged) != 2 || merged[0] != inherited[0] || merged[1] != own[0] {
		t.Fatalf("unexpected order %v", merged)
	}

	if merged := mergeScripts(nil, nil); merged == nil || len(merged) != 0 {
		t.Fatalf("expected an empty non-nil list, got %#v", merged)
	}
}
