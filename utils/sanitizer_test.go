package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	in := `<html><head><style>p { color: red }</style></head><body>
<p>Hello&nbsp;there,</p><p>Please review the <b>Q3</b> budget.</p>
<script>alert(1)</script><ul><li>One</li><li>Two</li></ul></body></html>`

	assert.Equal(t, "Hello there,\nPlease review the Q3 budget.\nOne\nTwo", HTMLToText(in))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "just text", PlainText("  just text \n"))
	assert.Equal(t, "Hi\nBye", PlainText("<div>Hi</div><div>Bye</div>"))
}

func TestRenderMarkdown(t *testing.T) {
	out := string(RenderMarkdown("- first\n- second"))
	assert.Contains(t, out, "<ul>")
	assert.Contains(t, out, "<li>first</li>")

	unsafe := string(RenderMarkdown("hello <script>alert(1)</script>"))
	assert.NotContains(t, unsafe, "<script>")
	assert.Contains(t, unsafe, "hello")
}

func TestRenderBody(t *testing.T) {
	plain := string(RenderBody("Line one\nLine <two>"))
	assert.Equal(t, "Line one<br>Line &lt;two&gt;", plain)

	rich := string(RenderBody(`<p onclick="x()">Hi</p><script>bad()</script>`))
	assert.Equal(t, "<p>Hi</p>", rich)
}

func TestNormalizeSubject(t *testing.T) {
	assert.Equal(t, "Budget", NormalizeSubject("Re: Fwd: Budget"))
	assert.Equal(t, "Budget", NormalizeSubject("RE:Budget"))
	assert.Equal(t, "Return policy", NormalizeSubject("Return policy"))
	assert.False(t, strings.HasPrefix(NormalizeSubject("fw: re: x"), "re"))
}
