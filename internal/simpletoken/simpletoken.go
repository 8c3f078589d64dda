// Package simpletoken substitutes named placeholders in address templates.
//
// A template contains {token} placeholders and optional {if token}...{endif}
// blocks. Placeholders are replaced literally and never re-evaluated; a block
// is kept when its token is non-empty and not "0". Placeholders naming an
// unknown token render as empty text. Braces that do not enclose a token name
// are copied through unchanged.
package simpletoken

import (
	"io"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{"
	endTag   = "}"
)

var (
	tokenName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	blockTag  = regexp.MustCompile(`\{if ([A-Za-z_][A-Za-z0-9_]*)\}|\{endif\}`)
)

// Renderer renders simple-token templates. The zero value is ready to use.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render returns tpl with its blocks resolved and placeholders substituted.
func (r *Renderer) Render(tpl string, tokens map[string]string) string {
	return Parse(tpl, tokens)
}

// Parse resolves the blocks of tpl against tokens and substitutes its placeholders.
func Parse(tpl string, tokens map[string]string) string {
	resolved := resolveBlocks(tpl, tokens)
	if !strings.Contains(resolved, startTag) {
		return resolved
	}

	return fasttemplate.ExecuteFuncString(resolved, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		if !tokenName.MatchString(tag) {
			return io.WriteString(w, startTag+tag+endTag)
		}
		return io.WriteString(w, tokens[tag])
	})
}

// Truthy reports whether a token value enables an {if} block.
func Truthy(v string) bool {
	return v != "" && v != "0"
}

// resolveBlocks drops the content of {if} blocks whose token is falsy.
// Blocks nest; a stray {endif} is dropped and an unterminated {if} runs to
// the end of the template.
func resolveBlocks(tpl string, tokens map[string]string) string {
	matches := blockTag.FindAllStringSubmatchIndex(tpl, -1)
	if len(matches) == 0 {
		return tpl
	}

	var (
		b     strings.Builder
		stack []bool
		pos   int
	)
	emitting := func() bool {
		for _, on := range stack {
			if !on {
				return false
			}
		}
		return true
	}

	for _, m := range matches {
		if emitting() {
			b.WriteString(tpl[pos:m[0]])
		}
		pos = m[1]

		if m[2] >= 0 {
			stack = append(stack, Truthy(tokens[tpl[m[2]:m[3]]]))
			continue
		}
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}
	if emitting() {
		b.WriteString(tpl[pos:])
	}

	return b.String()
}
