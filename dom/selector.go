package dom

import (
	"fmt"
	"strings"
)

// Selector is a compiled subset of CSS selectors: compounds of a tag name,
// an `#id` and any number of `[attr]` / `[attr=value]` tests, combined with
// the descendant combinator (whitespace).
type Selector struct {
	source string
	parts  []compound
}

type compound struct {
	tag   string
	id    string
	attrs []attrTest
}

type attrTest struct {
	key      string
	value    string
	hasValue bool
}

// Compile parses a selector
func Compile(selector string) (*Selector, error) {
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty selector")
	}

	s := &Selector{source: selector}
	for _, field := range fields {
		c, err := parseCompound(field)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
		}
		s.parts = append(s.parts, c)
	}
	return s, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(selector string) *Selector {
	s, err := Compile(selector)
	if err != nil {
		panic(err)
	}
	return s
}

// TagSelector matches elements by tag name. The name is taken literally,
// so it may contain characters that Compile would reject.
func TagSelector(tag string) *Selector {
	return &Selector{
		source: tag,
		parts:  []compound{{tag: strings.ToLower(tag)}},
	}
}

func (s *Selector) String() string {
	return s.source
}

func parseCompound(field string) (compound, error) {
	var c compound
	i := 0
	for i < len(field) && isIdentChar(field[i]) {
		i++
	}
	c.tag = strings.ToLower(field[:i])
	if c.tag == "" && i < len(field) && field[i] == '*' {
		i++
	}

	for i < len(field) {
		switch field[i] {
		case '#':
			j := i + 1
			for j < len(field) && isIdentChar(field[j]) {
				j++
			}
			if j == i+1 {
				return c, fmt.Errorf("empty id at offset %d", i)
			}
			c.id = field[i+1 : j]
			i = j
		case '[':
			end := strings.IndexByte(field[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute test at offset %d", i)
			}
			body := field[i+1 : i+end]
			test := attrTest{key: strings.ToLower(body)}
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				test.key = strings.ToLower(body[:eq])
				test.value = strings.Trim(body[eq+1:], `"'`)
				test.hasValue = true
			}
			if test.key == "" {
				return c, fmt.Errorf("empty attribute name at offset %d", i)
			}
			c.attrs = append(c.attrs, test)
			i += end + 1
		default:
			return c, fmt.Errorf("unexpected %q at offset %d", field[i], i)
		}
	}
	return c, nil
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (c compound) match(d *Document, id NodeID) bool {
	if d.nodes[id].kind != ElementNode {
		return false
	}
	if c.tag != "" && d.nodes[id].tag != c.tag {
		return false
	}
	if c.id != "" {
		if v, ok := d.Attr(id, "id"); !ok || v != c.id {
			return false
		}
	}
	for _, t := range c.attrs {
		v, ok := d.Attr(id, t.key)
		if !ok || (t.hasValue && v != t.value) {
			return false
		}
	}
	return true
}

// Match reports whether the element id matches the selector. Ancestors for
// descendant combinators are searched up to the top of id's tree.
func (s *Selector) Match(d *Document, id NodeID) bool {
	last := len(s.parts) - 1
	if !s.parts[last].match(d, id) {
		return false
	}
	i := last - 1
	for anc := d.nodes[id].parent; anc != Nil && i >= 0; anc = d.nodes[anc].parent {
		if s.parts[i].match(d, anc) {
			i--
		}
	}
	return i < 0
}

// QueryAll returns the descendants of from matching s, in document order
func (d *Document) QueryAll(from NodeID, s *Selector) []NodeID {
	var out []NodeID
	for _, id := range d.Descendants(from) {
		if s.Match(d, id) {
			out = append(out, id)
		}
	}
	return out
}

// Query returns the first descendant of from matching s, or Nil
func (d *Document) Query(from NodeID, s *Selector) NodeID {
	var found = Nil
	var walk func(NodeID) bool
	walk = func(n NodeID) bool {
		for _, c := range d.nodes[n].children {
			if s.Match(d, c) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(from)
	return found
}
