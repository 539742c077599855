package templates

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefinesAllPages(t *testing.T) {
	tmpl, err := Load()
	require.NoError(t, err)
	for _, name := range []string{PostList, PostDetail, NotFound, ServerErr, "header", "footer"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestExcerpt(t *testing.T) {
	body := "<p>Tom &amp; Jerry</p> " + strings.Repeat("word ", 40)
	got := Excerpt(5, body)
	assert.Equal(t, "Tom & Jerry word word …", got)
	assert.Equal(t, "short body", Excerpt(30, "short   body"))
}

func TestLinebreaks(t *testing.T) {
	got := string(Linebreaks("first line\nsecond line\r\n\r\nnext <script>alert(1)</script>para"))
	assert.Equal(t, "<p>first line<br>second line</p>\n<p>next para</p>\n", got)
}

func TestRenderList(t *testing.T) {
	tmpl, err := Load()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, PostList, map[string]any{
		"SiteTitle": "Blog",
		"Posts": []map[string]any{
			{"ID": 3, "Title": "A <b> title", "Publish": time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
				"Author": map[string]any{"Username": "ann"}, "Body": "hello"},
		},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `<a href="/blog/3/">A &lt;b&gt; title</a>`)
	assert.Contains(t, out, "Jan. 2, 2024, 03:04 by ann")
}
