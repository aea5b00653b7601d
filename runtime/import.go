package runtime

import (
	"path"
	"strings"

	"github.com/deicod/webity/dom"
)

// importComponent backs `$import(file)`. It renders file with the locals of
// the current call and, when the file exports a component, splices it into
// every usage site of the importing template.
func (b *builder) importComponent(args ...interface{}) (interface{}, error) {
	file := ToString(arg(args, 0))
	ref := ResolveReference(b.ref.Dir, file)

	child, err := b.call.render(ref)
	if err != nil {
		return nil, err
	}
	if !ToBoolean(child.Component) {
		return false, nil
	}
	if err := b.resolveComponent(child, file, ref); err != nil {
		return nil, err
	}
	return child.Component, nil
}

// componentTag derives the element name a component is used under:
// `$widgets/Card.html` is used as `<card>`
func componentTag(file string) string {
	name := path.Base(strings.ReplaceAll(file, RootMarker, ""))
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func (b *builder) resolveComponent(child *Result, file string, ref Reference) error {
	childDoc, err := dom.Parse(child.HTML)
	if err != nil {
		return err
	}

	doc := b.doc
	transplant := childDoc.Query(childDoc.Root(), templates)
	stage := doc.Query(doc.Root(), templates)
	tag := componentTag(file)

	var sites []dom.NodeID
	if stage != dom.Nil {
		sites = doc.QueryAll(stage, dom.TagSelector(tag))
	}
	b.call.debugf("components found", "file", file, "tag", tag, "count", len(sites))

	switch {
	case stage == dom.Nil:
		b.warn(&StructuralWarning{File: b.path, Marker: "<template>"})
	case transplant == dom.Nil:
		b.warn(&StructuralWarning{File: ref.Path(), Marker: "<template>"})
	default:
		content := childDoc.InnerHTML(transplant)
		for _, site := range sites {
			if err := b.substitute(site, content, ref); err != nil {
				return err
			}
		}
	}

	if root := doc.Query(doc.Root(), rootElement); root != dom.Nil && stage != dom.Nil {
		var staged []dom.NodeID
		for _, c := range doc.Children(stage) {
			staged = append(staged, doc.Clone(c))
		}
		doc.SetChildren(root, staged)
	}

	return b.inheritScripts(child.ScriptList)
}

// substitute replaces one usage site with a copy of the component's
// template content. Interpolations and inline scripts of the copy see the
// site's evaluated attributes; the site's children move into the slot.
func (b *builder) substitute(site dom.NodeID, content string, ref Reference) error {
	doc := b.doc
	ctx := b.componentContext(b.siteAttributes(site))

	spans := ScanInterpolations(content)
	replacements := make([]string, len(spans))
	for i, span := range spans {
		replacements[i] = b.evaluateIn(ctx, span.Source)
	}
	fragment, err := doc.ParseFragment(splice(content, spans, replacements))
	if err != nil {
		return err
	}

	for _, script := range doc.QueryAll(fragment, inlineScripts) {
		rendered, err := doc.ParseFragment(b.evaluateIn(ctx, doc.InnerHTML(script)))
		if err != nil {
			return err
		}
		doc.ReplaceWith(script, doc.Children(rendered))
	}

	nodes := doc.Children(fragment)
	if slot := doc.Query(fragment, slots); slot != dom.Nil {
		doc.ReplaceWith(slot, doc.Children(site))
		nodes = doc.Children(fragment)
	} else {
		// without a slot the site's children lead the component content
		b.warn(&StructuralWarning{File: ref.Path(), Marker: "<slot>"})
		nodes = append(doc.Children(site), nodes...)
	}

	doc.ReplaceWith(site, nodes)
	return nil
}

// siteAttributes evaluates the attributes of a usage site. Each value is
// an expression over the built-ins alone; a value that fails to evaluate
// is kept as the literal string and an attribute without a value is true.
func (b *builder) siteAttributes(site dom.NodeID) *Object {
	props := NewObject()
	for _, attr := range b.doc.Attrs(site) {
		if !b.doc.HasValue(site, attr.Key) {
			props.Set(attr.Key, true)
			continue
		}
		value, err := b.evaluateAttribute(attr.Val)
		if err != nil {
			b.call.logError("attribute failed", NewEvaluationError(attr.Val, b.path, err))
			value = attr.Val
		}
		props.Set(attr.Key, value)
	}
	return props
}

func (b *builder) evaluateAttribute(source string) (interface{}, error) {
	expr, err := b.call.env.programs.Expression(source, b.path)
	if err != nil {
		return nil, err
	}
	ctx := b.call.env.newContext(b.path)
	ctx.shadow()
	return ctx.Evaluator().EvalExpression(expr)
}

// componentContext binds the helpers, each attribute by name and all of
// them as `props`
func (b *builder) componentContext(props *Object) *Context {
	ctx := b.call.env.newContext(b.path)
	installTemplateHelpers(ctx)
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		ctx.Set(k, v)
	}
	ctx.Set("props", props)
	ctx.shadow()
	return ctx
}

// evaluateIn evaluates an interpolation or inline script. Failures are
// logged and render as nothing.
func (b *builder) evaluateIn(ctx *Context, source string) string {
	expr, err := b.call.env.programs.Expression(source, b.path)
	if err == nil {
		var value interface{}
		if value, err = ctx.Evaluator().EvalExpression(expr); err == nil {
			return toDisplayString(value)
		}
	}
	b.call.logError("interpolation failed", NewEvaluationError(source, b.path, err))
	return ""
}

// inheritScripts places a component's script list in front of the
// importing template's first script, keeping import order
func (b *builder) inheritScripts(scripts []string) error {
	if len(scripts) == 0 {
		return nil
	}
	b.inherited = append(b.inherited, scripts...)
	if b.firstScript == dom.Nil {
		return nil
	}
	fragment, err := b.doc.ParseFragment(strings.Join(scripts, ""))
	if err != nil {
		return err
	}
	b.doc.InsertBefore(b.firstScript, b.doc.Children(fragment))
	return nil
}

func (b *builder) warn(w *StructuralWarning) {
	b.call.debugf("template tags missing", "warning", w)
}
