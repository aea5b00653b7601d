package runtime

import "testing"

func TestStringMembers(t *testing.T) {
	tests := []struct {
		source   string
		expected interface{}
	}{
		{"'Hello'.length", float64(5)},
		{"'héllo'.length", float64(5)},
		{"' x '.trim()", "x"},
		{"' x'.trimStart()", "x"},
		{"'ärger'.toUpperCase()", "ÄRGER"},
		{"'ABC'.toLowerCase()", "abc"},
		{"'abc'.slice(-2)", "bc"},
		{"'abcdef'.substring(4, 1)", "bcd"},
		{"'abc'.padStart(5, '-')", "--abc"},
		{"'abc'.padEnd(4)", "abc "},
		{"'x'.repeat(3)", "xxx"},
		{"'aXbX'.replace('X', '-')", "a-bX"},
		{"'aXbX'.replaceAll('X', '-')", "a-b-"},
		{"'a,b,c'.split(',').length", float64(3)},
		{"'abc'.split('').join('|')", "a|b|c"},
		{"'abc'[1]", "b"},
		{"'abc'.at(-1)", "c"},
		{"'abc'.charAt(5)", ""},
		{"'banana'.indexOf('an')", float64(1)},
		{"'banana'.lastIndexOf('an')", float64(3)},
		{"'banana'.includes('nan')", true},
		{"'banana'.startsWith('ba')", true},
		{"'banana'.endsWith('na')", true},
		{"'a'.concat('b', 1)", "ab1"},
	}

	for _, tt := range tests {
		if got := evalExpr(t, tt.source, nil); got != tt.expected {
			t.Fatalf("%s: expected %#v, got %#v", tt.source, tt.expected, got)
		}
	}
}

func TestArrayMembers(t *testing.T) {
	tests := []struct {
		source   string
		expected interface{}
	}{
		{"[1, 2, 3].length", float64(3)},
		{"[1, 2, 3].map(x => x * 2).join()", "2,4,6"},
		{"[1, 2, 3].map((x, i) => i).join('')", "012"},
		{"[1, 2, 3].filter(x => x > 1).length", float64(2)},
		{"[1, 2, 3].find(x => x > 1)", float64(2)},
		{"[1, 2, 3].findIndex(x => x > 5)", float64(-1)},
		{"[1, 2, 3].some(x => x > 2)", true},
		{"[1, 2, 3].every(x => x > 2)", false},
		{"[1, 2, 3].reduce((a, b) => a + b, 0)", float64(6)},
		{"[1, 2, 3].reduce((a, b) => a + b)", float64(6)},
		{"[1, 2].includes(2)", true},
		{"['a', 'b'].indexOf('b')", float64(1)},
		{"[1, 2, 3, 4].slice(1, -1).join('-')", "2-3"},
		{"[1].concat([2, 3], 4).length", float64(4)},
		{"[3, 1, 2].sort().join('')", "123"},
		{"[3, 10, 2].sort((a, b) => a - b).join(',')", "2,3,10"},
		{"[1, 2, 3].reverse()[0]", float64(3)},
		{"[1, 2, 3].at(-1)", float64(3)},
		{"[1, null, 'x'].toString()", "1,,x"},
	}

	for _, tt := range tests {
		if got := evalExpr(t, tt.source, nil); got != tt.expected {
			t.Fatalf("%s: expected %#v, got %#v", tt.source, tt.expected, got)
		}
	}
}

func TestNumberMembers(t *testing.T) {
	if got := evalExpr(t, "(3.14159).toFixed(2)", nil); got != "3.14" {
		t.Fatalf("expected 3.14, got %v", got)
	}
	if got := evalExpr(t, "(255).toString(16)", nil); got != "ff" {
		t.Fatalf("expected ff, got %v", got)
	}
	if got := evalExpr(t, "(42).toString()", nil); got != "42" {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestObjectMemberAssignment(t *testing.T) {
	ctx := NewContext(nil)
	got, err := execScript("const c = {}\nc.title = 'x'\nreturn c.title", ctx)
	if err != nil {
		t.Fatalf("failed to run script: %v", err)
	}
	if got != "x" {
		t.Fatalf("expected x, got %v", got)
	}

	if _, err := execScript("const s = 'abc'\ns.length = 1", NewContext(nil)); err == nil {
		t.Fatal("expected assignment to a string member to fail")
	}
}
