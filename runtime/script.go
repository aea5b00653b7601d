package runtime

import (
	"regexp"

	"github.com/deicod/webity/lexer"
)

var (
	returnTail = regexp.MustCompile(`return (?s:.)*`)
	importLine = regexp.MustCompile("(var|const|let) \\w+[ ]*=[ ]*\\$import\\((\"|'|`).+(\"|'|`)\\);*")
)

// stripControl removes the statements of a script that only drive
// resolution: the top-level `return …` tail and every `x = $import('…')`
// declaration. What is left is emitted to the client.
func stripControl(body string) string {
	body = stripReturn(body)
	return importLine.ReplaceAllString(body, "")
}

// stripReturn cuts body at its first `return` outside of any bracket pair.
// Bodies the lexer rejects fall back to cutting at the first `return `.
func stripReturn(body string) string {
	stream, err := lexer.Tokenize(body)
	if err != nil {
		if loc := returnTail.FindStringIndex(body); loc != nil {
			return body[:loc[0]]
		}
		return body
	}

	depth := 0
	for !stream.Eof() {
		tok := stream.Next()
		switch tok.Type {
		case lexer.TokenLeftParen, lexer.TokenLeftBracket, lexer.TokenLeftCurly:
			depth++
		case lexer.TokenRightParen, lexer.TokenRightBracket, lexer.TokenRightCurly:
			depth--
		case lexer.TokenName:
			if depth == 0 && tok.Value == "return" {
				return body[:tok.Position]
			}
		}
	}
	return body
}

// mergeScripts orders a template's script list: scripts inherited from
// imported components come before the template's own
func mergeScripts(inherited, own []string) []string {
	merged := make([]string, 0, len(inherited)+len(own))
	merged = append(merged, inherited...)
	return append(merged, own...)
}

// runScript executes one `<script webity>` body. The script sees the
// language built-ins plus `$import`, `$export` and `Component`; it does not
// see the call's locals.
func (b *builder) runScript(body string) error {
	program, err := b.call.env.programs.Script(body, b.path)
	if err != nil {
		return err
	}

	ctx := b.call.env.newContext(b.path)
	ctx.Set("$import", NativeFunc(b.importComponent))
	ctx.Set("$export", NativeFunc(func(args ...interface{}) (interface{}, error) {
		b.component = arg(args, 0)
		return undefinedValue, nil
	}))
	ctx.Set("Component", componentConstructor)
	ctx.shadow()

	_, err = ctx.Evaluator().ExecProgram(program)
	return err
}
