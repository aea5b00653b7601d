package runtime

import (
	"regexp"

	"github.com/deicod/webity/dom"
)

var (
	directivePattern     = regexp.MustCompile(`%\{((?s:.)+?)\}%`)
	interpolationPattern = regexp.MustCompile(`\{\{((?s:.)+?)\}\}`)
	mainTokenPattern     = regexp.MustCompile(`%[ ]*main[ ]*%`)

	webityScripts = dom.MustCompile("script[webity]")
	mainScripts   = dom.MustCompile("script[main]")
	inlineScripts = dom.MustCompile("script[inline]")
	templates     = dom.MustCompile("template")
	slots         = dom.MustCompile("slot")
	rootElement   = dom.MustCompile("#root")
)

// Span is one delimited expression found in a template. Start and End are
// byte offsets of the whole match including delimiters; Source is the
// expression between them and Text the match itself.
type Span struct {
	Start  int
	End    int
	Source string
	Text   string
}

func scan(pattern *regexp.Regexp, html string) []Span {
	matches := pattern.FindAllStringSubmatchIndex(html, -1)
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, Span{
			Start:  m[0],
			End:    m[1],
			Source: html[m[2]:m[3]],
			Text:   html[m[0]:m[1]],
		})
	}
	return spans
}

// ScanDirectives returns the `%{ … }%` spans of html in textual order
func ScanDirectives(html string) []Span {
	return scan(directivePattern, html)
}

// ScanInterpolations returns the `{{ … }}` spans of html in textual order
func ScanInterpolations(html string) []Span {
	return scan(interpolationPattern, html)
}

// ScanScripts returns the executable `<script webity>` elements of a
// document in document order
func ScanScripts(doc *dom.Document) []dom.NodeID {
	return doc.QueryAll(doc.Root(), webityScripts)
}

// splice replaces each span of html by the corresponding replacement
func splice(html string, spans []Span, replacements []string) string {
	if len(spans) == 0 {
		return html
	}
	out := make([]byte, 0, len(html))
	last := 0
	for i, span := range spans {
		out = append(out, html[last:span.Start]...)
		out = append(out, replacements[i]...)
		last = span.End
	}
	out = append(out, html[last:]...)
	return string(out)
}
