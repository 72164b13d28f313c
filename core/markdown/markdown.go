// Package markdown converts the constrained markdown dialect used by news
// articles into HTML.
//
// The output is injected as-is into pages: article authors are admins, and
// escaping here would change what the editor preview shows. Render is only
// ever called on raw markdown, never on its own output.
package markdown

import (
	"regexp"
	"strings"
)

const imageStyle = "max-width:100%;height:auto;margin:10px 0;"

type rule struct {
	re   *regexp.Regexp
	repl string
}

var (
	boldRule   = rule{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>$1</strong>"}
	italicRule = rule{regexp.MustCompile(`\*(.*?)\*`), "<em>$1</em>"}
	h1Rule     = rule{regexp.MustCompile(`(?m)^# (.*)$`), "<h1>$1</h1>"}
	h2Rule     = rule{regexp.MustCompile(`(?m)^## (.*)$`), "<h2>$1</h2>"}

	// editor extension
	h3Rule    = rule{regexp.MustCompile(`(?m)^### (.*)$`), "<h3>$1</h3>"}
	quoteRule = rule{regexp.MustCompile(`(?m)^> (.*)$`), "<blockquote>$1</blockquote>"}
	itemRule  = rule{regexp.MustCompile(`(?m)^- (.*)$`), "<li>$1</li>"}
	listRe    = regexp.MustCompile(`(?m)(?:^<li>.*</li>(?:\n|$))+`)

	imageRule = rule{regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`), `<img src="$2" alt="$1" style="` + imageStyle + `">`}
	linkRule  = rule{regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), `<a href="$2" target="_blank">$1</a>`}
)

func (r rule) apply(s string) string {
	return r.re.ReplaceAllString(s, r.repl)
}

// Render applies the article transforms in their fixed order.
// The published article view and the editor preview both call it, so their output is identical.
func Render(src string) string {
	return render(src, false)
}

// RenderExtended is Render plus h3, blockquote and unordered list support.
func RenderExtended(src string) string {
	return render(src, true)
}

func render(s string, extended bool) string {
	// bold before italic so "**" is never split by the single-asterisk rule
	s = boldRule.apply(s)
	s = italicRule.apply(s)
	s = h1Rule.apply(s)
	s = h2Rule.apply(s)
	if extended {
		s = h3Rule.apply(s)
		s = quoteRule.apply(s)
		s = itemRule.apply(s)
		s = listRe.ReplaceAllStringFunc(s, func(items string) string {
			return "<ul>" + strings.ReplaceAll(items, "\n", "") + "</ul>"
		})
	}
	// images before links: "![a](b)" also matches the link pattern
	s = imageRule.apply(s)
	s = linkRule.apply(s)
	return strings.ReplaceAll(s, "\n", "<br/>")
}

// Truncate returns the first n characters of the raw source followed by "...".
// Sources of n characters or fewer are returned unchanged.
func Truncate(src string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(src)
	if len(runes) <= n {
		return src
	}
	return string(runes[:n]) + "..."
}
