package utils

import (
	"html/template"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	// StrictPolicy removes all markup
	StrictPolicy *bluemonday.Policy
	// UGCPolicy for email bodies and rendered suggestions
	UGCPolicy *bluemonday.Policy

	htmlHint = regexp.MustCompile(`(?i)<(html|body|div|p|br|table|span|a|ul|ol|li)\b`)
)

func init() {
	StrictPolicy = bluemonday.StrictPolicy()

	UGCPolicy = bluemonday.UGCPolicy()
	UGCPolicy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	UGCPolicy.AllowElements("strong", "em", "u", "s", "code", "pre")
	UGCPolicy.AllowElements("ul", "ol", "li", "blockquote")
	UGCPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	UGCPolicy.AllowAttrs("href").OnElements("a")
	UGCPolicy.RequireParseableURLs(true)
	UGCPolicy.AllowURLSchemes("http", "https", "mailto")
	UGCPolicy.RequireNoFollowOnLinks(true)
}

// SanitizeHTML sanitizes HTML content using the UGC policy
func SanitizeHTML(s string) string {
	return UGCPolicy.Sanitize(s)
}

// StripHTML removes all HTML tags from content
func StripHTML(s string) string {
	return StrictPolicy.Sanitize(s)
}

// LooksLikeHTML reports whether s contains common block or inline tags
func LooksLikeHTML(s string) bool {
	return htmlHint.MatchString(s)
}

// RenderMarkdown converts model output to sanitized HTML. Plain prose comes
// back as paragraphs; "As bullet points" replies become lists.
func RenderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	doc := p.Parse([]byte(strings.TrimSpace(md)))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	out := markdown.Render(doc, renderer)
	return template.HTML(UGCPolicy.SanitizeBytes(out))
}

// RenderBody prepares an email body for display. HTML bodies are sanitized,
// plain text is escaped with line breaks preserved.
func RenderBody(body string) template.HTML {
	if LooksLikeHTML(body) {
		return template.HTML(SanitizeHTML(body))
	}
	escaped := template.HTMLEscapeString(body)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// HTMLToText flattens an HTML document to plain text, one block per line.
// Script and style contents are dropped.
func HTMLToText(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseLines(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if isBlockTag(tag) {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if isBlockTag(tag) {
				b.WriteByte('\n')
			}
		}
	}
}

// PlainText returns body as plain text whatever its format
func PlainText(body string) string {
	if LooksLikeHTML(body) {
		return HTMLToText(body)
	}
	return strings.TrimSpace(body)
}

func isBlockTag(tag string) bool {
	switch tag {
	case "br", "p", "div", "li", "tr", "table", "ul", "ol", "blockquote",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func collapseLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// NormalizeSubject strips reply and forward prefixes
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)

	prefixes := []string{"re:", "fwd:", "fw:", "aw:", "wg:"}
	for {
		trimmed := false
		lower := strings.ToLower(subject)
		for _, prefix := range prefixes {
			if strings.HasPrefix(lower, prefix) {
				subject = strings.TrimSpace(subject[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}

	return subject
}
