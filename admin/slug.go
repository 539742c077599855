package admin

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cppla/inkblog/models"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugHyphens  = regexp.MustCompile(`[-\s]+`)
	validSlugExp = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Slugify derives a URL-safe slug from a title: accents are folded to ASCII,
// everything else outside letters, digits, underscores and hyphens is dropped,
// and runs of whitespace or hyphens become a single hyphen.
func Slugify(title string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	s, _, err := transform.String(fold, title)
	if err != nil {
		s = title
	}
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "")
	s = strings.Trim(slugHyphens.ReplaceAllString(s, "-"), "-_")
	if len(s) > models.SlugMaxLength {
		s = strings.TrimRight(s[:models.SlugMaxLength], "-_")
	}
	return s
}

// ValidSlug reports whether s only holds letters, digits, underscores or hyphens.
func ValidSlug(s string) bool {
	return validSlugExp.MatchString(s)
}

// Prepopulate fills every blank prepopulated field from its source fields.
// Only the post slug is prepopulated, from the title.
func Prepopulate(p *models.Post) {
	if _, ok := PostAdmin.PrepopulatedFields["slug"]; ok && strings.TrimSpace(p.Slug) == "" {
		p.Slug = Slugify(p.Title)
	}
}
