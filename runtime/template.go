package runtime

import (
	"errors"
	"fmt"
	"path"
	goruntime "runtime"
	"strings"
	"unicode/utf8"

	"github.com/deicod/webity/dom"
)

// RootMarker prefixes a file name that is resolved against the first
// segment of the directory instead of the directory itself
const RootMarker = "$"

// DefaultFile is rendered when a reference names no file
const DefaultFile = "index.html"

const previewLength = 32

// defaultMainScript replaces `%main%` in templates that carry no
// `<script main>` of their own
const defaultMainScript = `<script main>
        class Component {
          constructor() {}
        }
        $import = file => file
        $export = file => file
      </script>`

// Reference identifies one template file
type Reference struct {
	Dir  string
	File string
}

// ResolveReference applies the root marker, default file name and `.html`
// suffix rules to a (directory, file) pair
func ResolveReference(dir, file string) Reference {
	if strings.HasPrefix(file, RootMarker) {
		dir = strings.SplitN(dir, "/", 2)[0]
		file = strings.TrimPrefix(file, RootMarker)
	}
	if file == "" {
		file = DefaultFile
	}
	if !strings.HasSuffix(file, ".html") {
		file += ".html"
	}
	return Reference{Dir: dir, File: file}
}

// Path returns the loader path of the reference
func (r Reference) Path() string {
	return path.Join(r.Dir, r.File)
}

func (r Reference) String() string {
	return r.Path()
}

// Result is the outcome of rendering one template
type Result struct {
	HTML       string
	Component  interface{}
	ScriptList []string
}

// renderCall is the state shared by one top-level Render and every nested
// render it triggers through `$import` or `include`
type renderCall struct {
	env    *Environment
	locals map[string]interface{}
	debug  bool
	chain  []string
}

// builder accumulates the result of a single template while it renders
type builder struct {
	call        *renderCall
	ref         Reference
	path        string
	doc         *dom.Document
	component   interface{}
	own         []string
	inherited   []string
	firstScript dom.NodeID
}

func (c *renderCall) render(ref Reference) (*Result, error) {
	p := ref.Path()
	for _, active := range c.chain {
		if active == p {
			chain := append(append([]string(nil), c.chain...), p)
			return nil, &CyclicImportError{Chain: chain}
		}
	}
	c.chain = append(c.chain, p)
	defer func() { c.chain = c.chain[:len(c.chain)-1] }()

	c.debugf("loading template", "file", ref.File, "dir", ref.Dir)

	source, err := c.env.load(p)
	if err != nil {
		return nil, &ReadError{Path: p, Cause: err}
	}

	doc, err := dom.Parse(source)
	if err != nil {
		return nil, &Error{Type: ErrorTypeTemplate, Message: "failed to parse html", Template: p, Cause: err}
	}

	b := &builder{
		call:        c,
		ref:         ref,
		path:        p,
		doc:         doc,
		component:   NewComponent(),
		firstScript: dom.Nil,
	}
	if err := b.runScripts(); err != nil {
		return nil, err
	}

	html, err := b.evaluateDirectives(doc.Render())
	if err != nil {
		return nil, err
	}
	if doc.Query(doc.Root(), mainScripts) == dom.Nil {
		html = mainTokenPattern.ReplaceAllLiteralString(html, defaultMainScript)
	}

	return &Result{
		HTML:       html,
		Component:  b.component,
		ScriptList: mergeScripts(b.inherited, b.own),
	}, nil
}

// runScripts executes the template's scripts in document order and strips
// their control statements. Only a cyclic import aborts the render.
func (b *builder) runScripts() error {
	scripts := ScanScripts(b.doc)
	if len(scripts) == 0 {
		return nil
	}
	b.firstScript = scripts[0]

	for _, id := range scripts {
		body := b.doc.InnerHTML(id)
		if err := b.runScript(body); err != nil {
			var cyclic *CyclicImportError
			if errors.As(err, &cyclic) {
				return cyclic
			}
			b.call.logError("script failed", NewEvaluationError(body, b.path, err))
		}
		b.doc.SetRawContent(id, stripControl(body))
		b.own = append(b.own, b.doc.OuterHTML(id))
	}
	return nil
}

// evaluateDirectives collects every `%{ … }%` span of html once and splices
// in the evaluated results in textual order. A cyclic include aborts the
// render; any other failure renders as the empty string.
func (b *builder) evaluateDirectives(html string) (string, error) {
	spans := ScanDirectives(html)
	if len(spans) == 0 {
		return html, nil
	}
	replacements := make([]string, len(spans))
	for i, span := range spans {
		rendered, err := b.call.evaluate(b.ref, span.Source)
		if err != nil {
			var cyclic *CyclicImportError
			if errors.As(err, &cyclic) {
				return "", cyclic
			}
			b.call.logError("directive failed", NewEvaluationError(span.Source, b.path, err))
			rendered = ""
		}
		replacements[i] = rendered
		b.call.debugf("directive rendered", "directive", span.Text, "result", preview(rendered))
	}
	return splice(html, spans, replacements), nil
}

// evaluate runs one directive expression against the call's locals and the
// template helpers
func (c *renderCall) evaluate(ref Reference, source string) (string, error) {
	expr, err := c.env.programs.Expression(source, ref.Path())
	if err != nil {
		return "", err
	}

	ctx := c.env.newContext(ref.Path())
	installTemplateHelpers(ctx)
	ctx.Set("include", NativeFunc(func(args ...interface{}) (interface{}, error) {
		result, err := c.render(ResolveReference(ref.Dir, ToString(arg(args, 0))))
		if err != nil {
			return nil, err
		}
		return result.HTML, nil
	}))
	ctx.Set("process", NewObjectFromMap(map[string]interface{}{
		"version": goruntime.Version(),
	}))
	for k, v := range c.locals {
		ctx.Set(k, v)
	}
	ctx.Set("locals", c.locals)
	ctx.shadow()

	value, err := ctx.Evaluator().EvalExpression(expr)
	if err != nil {
		return "", err
	}
	return toDisplayString(value), nil
}

func (c *renderCall) debugf(msg string, args ...interface{}) {
	if c.debug {
		c.env.logger.Debug(msg, args...)
	}
}

func (c *renderCall) logError(msg string, err error) {
	c.env.logger.Error(msg, "error", err)
}

// preview shortens a rendered value for the debug log
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return strings.Replace(s, "\n", "", 1)
	}
	runes := []rune(s)
	head := strings.Replace(string(runes[:previewLength]), "\n", "", 1)
	return fmt.Sprintf("%s ... %d more characters", head, len(runes)-previewLength)
}
