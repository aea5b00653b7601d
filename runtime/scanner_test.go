package runtime

import (
	"testing"

	"github.com/deicod/webity/dom"
)

func TestScanDirectives(t *testing.T) {
	html := "<p>%{ a }%</p>%{b}%<i>%{ `x\ny` }%</i>"
	spans := ScanDirectives(html)
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}

	expected := []string{" a ", "b", " `x\ny` "}
	for i, span := range spans {
		if span.Source != expected[i] {
			t.Fatalf("span %d: expected source %q, got %q", i, expected[i], span.Source)
		}
		if html[span.Start:span.End] != span.Text {
			t.Fatalf("span %d: offsets do not cover %q", i, span.Text)
		}
	}
}

func TestScanDirectivesNonGreedy(t *testing.T) {
	spans := ScanDirectives("%{ 1 }% and %{ 2 }%")
	if len(spans) != 2 || spans[0].Source != " 1 " || spans[1].Source != " 2 " {
		t.Fatalf("unexpected spans %+v", spans)
	}
}

func TestScanDirectivesIgnoresEmpty(t *testing.T) {
	if spans := ScanDirectives("<p>%{}%</p>"); len(spans) != 0 {
		t.Fatalf("expected no spans, got %+v", spans)
	}
}

func TestScanInterpolations(t *testing.T) {
	spans := ScanInterpolations(`<b class="{{ kind }}">{{name}}</b>`)
	if len(spans) != 2 || spans[0].Source != " kind " || spans[1].Source != "name" {
		t.Fatalf("unexpected spans %+v", spans)
	}
}

func TestSplice(t *testing.T) {
	html := "a%{1}%b%{2}%c"
	got := splice(html, ScanDirectives(html), []string{"X", ""})
	if got != "aXbc" {
		t.Fatalf("expected aXbc, got %q", got)
	}
	if got := splice("plain", nil, nil); got != "plain" {
		t.Fatalf("expected plain, got %q", got)
	}
}

func TestScanScripts(t *testing.T) {
	doc, err := dom.Parse(`<script>a()</script><script webity>b()</script><div><script webity>c()</script></div><script main></script>`)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	ids := ScanScripts(doc)
	if len(ids) != 2 {
		t.Fatalf("expected 2 scripts, got %d", len(ids))
	}
	if got := doc.InnerHTML(ids[0]); got != "b()" {
		t.Fatalf("expected b(), got %q", got)
	}
	if got := doc.InnerHTML(ids[1]); got != "c()" {
		t.Fatalf("expected c(), got %q", got)
	}
}
