// Package admin holds the declarative back-office configuration for posts and
// the query machinery that turns it into changelist pages.
package admin

// ModelAdmin describes how a model is listed, filtered, searched and edited
// in the back office.
type ModelAdmin struct {
	// ListDisplay are the columns of the changelist, in order.
	ListDisplay []string
	// ListFilter are the fields offered as filter facets.
	ListFilter []string
	// SearchFields are matched case-insensitively by the q parameter.
	SearchFields []string
	// PrepopulatedFields maps a field to the fields it is derived from.
	PrepopulatedFields map[string][]string
	// RawIDFields are relations edited by primary key through a lookup widget
	// instead of a full dropdown.
	RawIDFields []string
	// DateHierarchy is the date field used for year/month/day drill-down.
	DateHierarchy string
	// Ordering is the default changelist sort; "-" prefixes mean descending.
	Ordering []string
	// ListPerPage caps the rows of one changelist page.
	ListPerPage int
}

// PostAdmin is the back-office configuration of blog posts.
var PostAdmin = ModelAdmin{
	ListDisplay:        []string{"title", "slug", "author", "publish", "status"},
	ListFilter:         []string{"status", "created", "publish", "author"},
	SearchFields:       []string{"title", "body"},
	PrepopulatedFields: map[string][]string{"slug": {"title"}},
	RawIDFields:        []string{"author"},
	DateHierarchy:      "publish",
	Ordering:           []string{"status", "publish"},
	ListPerPage:        100,
}

// postColumns maps admin field names onto blog_posts columns.
var postColumns = map[string]string{
	"id":      "id",
	"title":   "title",
	"slug":    "slug",
	"author":  "author_id",
	"body":    "body",
	"publish": "publish",
	"created": "created",
	"updated": "updated",
	"status":  "status",
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
