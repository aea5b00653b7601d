// Package dom is a small mutable HTML tree used by the renderer.
//
// Documents are built from the golang.org/x/net/html tokenizer rather than
// the HTML5 tree construction algorithm: no elements are implied, nothing is
// re-ordered and the raw bytes of every token are kept, so a document that is
// not modified renders back to exactly its source.
package dom

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// NodeID addresses a node inside its Document
type NodeID int

// Nil is the zero handle; it never addresses a node
const Nil NodeID = -1

// NodeType identifies the kind of a node
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "param": true,
	"source": true, "track": true, "wbr": true,
}

type node struct {
	kind     NodeType
	tag      string
	attrs    []html.Attribute
	raw      string // start tag for elements, full text otherwise
	end      string // end tag as written, empty when absent
	leaf     bool   // void or self-closing element
	parent   NodeID
	children []NodeID
}

// Document is an arena of nodes. All handles returned by a Document are
// only meaningful for that Document. A Document is not safe for concurrent
// mutation.
type Document struct {
	nodes []node
}

// Parse builds a document from HTML source
func Parse(src string) (*Document, error) {
	d := &Document{}
	root := d.alloc(node{kind: DocumentNode, parent: Nil})
	if err := d.build(src, root); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseFragment parses src into this document and returns a detached
// fragment node holding the result. Splice the fragment's children into the
// tree with ReplaceWith or InsertBefore.
func (d *Document) ParseFragment(src string) (NodeID, error) {
	fragment := d.alloc(node{kind: DocumentNode, parent: Nil})
	if err := d.build(src, fragment); err != nil {
		return Nil, err
	}
	return fragment, nil
}

func (d *Document) alloc(n node) NodeID {
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

func (d *Document) build(src string, root NodeID) error {
	z := html.NewTokenizer(strings.NewReader(src))
	stack := []NodeID{root}
	top := func() NodeID { return stack[len(stack)-1] }

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return z.Err()
		}

		// Raw must be copied before Token reuses the buffer
		raw := string(z.Raw())

		switch tt {
		case html.TextToken:
			d.appendChild(top(), d.alloc(node{kind: TextNode, raw: raw}))

		case html.CommentToken:
			d.appendChild(top(), d.alloc(node{kind: CommentNode, raw: raw}))

		case html.DoctypeToken:
			d.appendChild(top(), d.alloc(node{kind: DoctypeNode, raw: raw}))

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			leaf := tt == html.SelfClosingTagToken || voidElements[tok.Data]
			id := d.alloc(node{
				kind:  ElementNode,
				tag:   tok.Data,
				attrs: tok.Attr,
				raw:   raw,
				leaf:  leaf,
			})
			d.appendChild(top(), id)
			if !leaf {
				stack = append(stack, id)
			}

		case html.EndTagToken:
			tag := z.Token().Data
			matched := -1
			for i := len(stack) - 1; i > 0; i-- {
				if d.nodes[stack[i]].tag == tag {
					matched = i
					break
				}
			}
			if matched < 0 {
				// stray end tag: keep its bytes as text
				d.appendChild(top(), d.alloc(node{kind: TextNode, raw: raw}))
				continue
			}
			d.nodes[stack[matched]].end = raw
			stack = stack[:matched]
		}
	}
}

// Root returns the document node
func (d *Document) Root() NodeID {
	return 0
}

// Type returns the kind of a node
func (d *Document) Type(id NodeID) NodeType {
	return d.nodes[id].kind
}

// Tag returns the lower-cased tag name of an element, or "" for other nodes
func (d *Document) Tag(id NodeID) string {
	return d.nodes[id].tag
}

// Attrs returns a copy of an element's attributes in source order
func (d *Document) Attrs(id NodeID) []html.Attribute {
	attrs := d.nodes[id].attrs
	out := make([]html.Attribute, len(attrs))
	copy(out, attrs)
	return out
}

// Attr returns the value of an attribute and whether it is present
func (d *Document) Attr(id NodeID, key string) (string, bool) {
	key = strings.ToLower(key)
	for _, a := range d.nodes[id].attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether an element carries an attribute
func (d *Document) HasAttr(id NodeID, key string) bool {
	_, ok := d.Attr(id, key)
	return ok
}

// HasValue reports whether a present attribute was written with a value.
// `<x a>` has no value while `<x a="">` has an empty one.
func (d *Document) HasValue(id NodeID, key string) bool {
	n := d.nodes[id]
	if !d.HasAttr(id, key) {
		return false
	}
	raw := strings.ToLower(n.raw)
	// scan the start tag for `key=` outside of quoted values
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if !strings.HasPrefix(raw[i:], key) || (i > 0 && !isSpace(raw[i-1])) {
			continue
		}
		rest := strings.TrimLeft(raw[i+len(key):], " \t\n\r\f")
		if strings.HasPrefix(rest, "=") {
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// Parent returns the parent of a node, or Nil for detached nodes
func (d *Document) Parent(id NodeID) NodeID {
	return d.nodes[id].parent
}

// Children returns a snapshot of a node's children
func (d *Document) Children(id NodeID) []NodeID {
	children := d.nodes[id].children
	out := make([]NodeID, len(children))
	copy(out, children)
	return out
}

// Text returns the raw text of a text, comment or doctype node
func (d *Document) Text(id NodeID) string {
	if d.nodes[id].kind == ElementNode || d.nodes[id].kind == DocumentNode {
		return ""
	}
	return d.nodes[id].raw
}

// NewText allocates a detached text node holding raw HTML
func (d *Document) NewText(raw string) NodeID {
	return d.alloc(node{kind: TextNode, raw: raw, parent: Nil})
}

func (d *Document) appendChild(parent, child NodeID) {
	d.nodes[child].parent = parent
	d.nodes[parent].children = append(d.nodes[parent].children, child)
}

// Detach removes a node from its parent. The node and its subtree stay
// valid and may be inserted elsewhere.
func (d *Document) Detach(id NodeID) {
	parent := d.nodes[id].parent
	if parent == Nil {
		return
	}
	siblings := d.nodes[parent].children
	for i, c := range siblings {
		if c == id {
			d.nodes[parent].children = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	d.nodes[id].parent = Nil
}

// AppendChild moves child to the end of parent's children
func (d *Document) AppendChild(parent, child NodeID) {
	d.Detach(child)
	d.appendChild(parent, child)
}

// InsertBefore moves nodes, in order, directly in front of ref
func (d *Document) InsertBefore(ref NodeID, nodes []NodeID) {
	for _, n := range nodes {
		d.Detach(n)
	}
	parent := d.nodes[ref].parent
	if parent == Nil {
		return
	}
	siblings := d.nodes[parent].children
	index := indexOf(siblings, ref)
	next := make([]NodeID, 0, len(siblings)+len(nodes))
	next = append(next, siblings[:index]...)
	next = append(next, nodes...)
	next = append(next, siblings[index:]...)
	d.nodes[parent].children = next
	for _, n := range nodes {
		d.nodes[n].parent = parent
	}
}

// ReplaceWith puts nodes where id is and detaches id
func (d *Document) ReplaceWith(id NodeID, nodes []NodeID) {
	if d.nodes[id].parent == Nil {
		return
	}
	d.InsertBefore(id, nodes)
	d.Detach(id)
}

// SetChildren replaces all children of parent with nodes
func (d *Document) SetChildren(parent NodeID, nodes []NodeID) {
	for _, c := range d.Children(parent) {
		d.nodes[c].parent = Nil
	}
	d.nodes[parent].children = nil
	for _, n := range nodes {
		d.AppendChild(parent, n)
	}
}

// SetRawContent replaces the children of an element with a single text node
func (d *Document) SetRawContent(id NodeID, raw string) {
	d.SetChildren(id, []NodeID{d.NewText(raw)})
}

// Clone deep-copies a node and returns the detached copy
func (d *Document) Clone(id NodeID) NodeID {
	src := d.nodes[id]
	cp := node{
		kind:   src.kind,
		tag:    src.tag,
		attrs:  append([]html.Attribute(nil), src.attrs...),
		raw:    src.raw,
		end:    src.end,
		leaf:   src.leaf,
		parent: Nil,
	}
	clone := d.alloc(cp)
	for _, c := range src.children {
		d.appendChild(clone, d.Clone(c))
	}
	return clone
}

// Contains reports whether id is ancestor or a descendant of ancestor
func (d *Document) Contains(ancestor, id NodeID) bool {
	for ; id != Nil; id = d.nodes[id].parent {
		if id == ancestor {
			return true
		}
	}
	return false
}

// Descendants returns every node below id in document order
func (d *Document) Descendants(id NodeID) []NodeID {
	var out []NodeID
	var walk func(NodeID)
	walk = func(n NodeID) {
		for _, c := range d.nodes[n].children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// InnerHTML renders the children of a node
func (d *Document) InnerHTML(id NodeID) string {
	var b strings.Builder
	for _, c := range d.nodes[id].children {
		d.write(&b, c)
	}
	return b.String()
}

// OuterHTML renders a node including its own tags
func (d *Document) OuterHTML(id NodeID) string {
	var b strings.Builder
	d.write(&b, id)
	return b.String()
}

// Render serializes the whole document
func (d *Document) Render() string {
	return d.InnerHTML(d.Root())
}

func (d *Document) write(b *strings.Builder, id NodeID) {
	n := &d.nodes[id]
	switch n.kind {
	case DocumentNode:
		for _, c := range n.children {
			d.write(b, c)
		}
	case ElementNode:
		b.WriteString(n.raw)
		for _, c := range n.children {
			d.write(b, c)
		}
		b.WriteString(n.end)
	default:
		b.WriteString(n.raw)
	}
}

func indexOf(ids []NodeID, id NodeID) int {
	for i, c := range ids {
		if c == id {
			return i
		}
	}
	return len(ids)
}
