// Package templates embeds the HTML pages of the public blog.
package templates

import (
	"embed"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Page names passed to gin's HTML renderer.
const (
	PostList   = "blog/post/list.html"
	PostDetail = "blog/post/detail.html"
	NotFound   = "errors/404.html"
	ServerErr  = "errors/500.html"
)

//go:embed blog errors
var files embed.FS

var (
	bodyPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

var functions = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan. 2, 2006, 15:04")
	},
	"excerpt":    Excerpt,
	"linebreaks": Linebreaks,
}

// Load parses every embedded page and partial into one template set.
func Load() (*template.Template, error) {
	return template.New("").Funcs(functions).ParseFS(files,
		"blog/*.html",
		"blog/post/*.html",
		"errors/*.html",
	)
}

// Excerpt strips markup from body and keeps its first n words.
func Excerpt(n int, body string) string {
	return TruncateWords(n, html.UnescapeString(plainPolicy.Sanitize(body)))
}

// TruncateWords keeps the first n words of s, appending an ellipsis when cut.
func TruncateWords(n int, s string) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}

// Linebreaks sanitizes body with the UGC policy, wraps blank-line separated
// blocks in paragraphs and turns single newlines into <br>.
func Linebreaks(body string) template.HTML {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var b strings.Builder
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(strings.Split(para, "\n"), "<br>"))
		b.WriteString("</p>\n")
	}
	return template.HTML(bodyPolicy.Sanitize(b.String()))
}
