package admin

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
)

// ErrInvalidQuery wraps every changelist parameter the admin cannot honour.
var ErrInvalidQuery = errors.New("invalid changelist query")

// Date facet values accepted by the created and publish filters.
const (
	DateAny       = ""
	DateToday     = "today"
	DatePast7Days = "past_7_days"
	DateThisMonth = "this_month"
	DateThisYear  = "this_year"
)

var dateFacetLabels = []Choice{
	{Value: DateAny, Label: "Any date"},
	{Value: DateToday, Label: "Today"},
	{Value: DatePast7Days, Label: "Past 7 days"},
	{Value: DateThisMonth, Label: "This month"},
	{Value: DateThisYear, Label: "This year"},
}

// Query is a parsed changelist request.
type Query struct {
	Search  string
	Status  models.PostStatus
	Author  uint
	Created string
	Publish string
	Year    int
	Month   int
	Day     int
	Order   []string
	Page    int
}

// ParseQuery validates changelist parameters:
// q, status, author, created, publish, year, month, day, o (comma separated) and p.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{Search: strings.TrimSpace(v.Get("q")), Page: 1}

	if s := v.Get("status"); s != "" {
		q.Status = models.PostStatus(s)
		if !q.Status.Valid() {
			return q, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, s)
		}
	}
	if s := v.Get("author"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return q, fmt.Errorf("%w: author must be a user id", ErrInvalidQuery)
		}
		q.Author = uint(id)
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{{"created", &q.Created}, {"publish", &q.Publish}} {
		s := v.Get(f.name)
		if !validDateFacet(s) {
			return q, fmt.Errorf("%w: unknown %s filter %q", ErrInvalidQuery, f.name, s)
		}
		*f.dst = s
	}

	var err error
	if q.Year, err = optionalInt(v, "year", 1, 9999); err != nil {
		return q, err
	}
	if q.Month, err = optionalInt(v, "month", 1, 12); err != nil {
		return q, err
	}
	if q.Day, err = optionalInt(v, "day", 1, 31); err != nil {
		return q, err
	}
	if (q.Month != 0 && q.Year == 0) || (q.Day != 0 && q.Month == 0) {
		return q, fmt.Errorf("%w: date drill-down must go year, month, day", ErrInvalidQuery)
	}
	if q.Day != 0 && time.Date(q.Year, time.Month(q.Month), q.Day, 0, 0, 0, 0, time.UTC).Day() != q.Day {
		return q, fmt.Errorf("%w: %04d-%02d has no day %d", ErrInvalidQuery, q.Year, q.Month, q.Day)
	}

	if s := v.Get("o"); s != "" {
		for _, f := range strings.Split(s, ",") {
			f = strings.TrimSpace(f)
			if !contains(PostAdmin.ListDisplay, strings.TrimPrefix(f, "-")) {
				return q, fmt.Errorf("%w: cannot order by %q", ErrInvalidQuery, f)
			}
			q.Order = append(q.Order, f)
		}
	}

	if s := v.Get("p"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return q, fmt.Errorf("%w: page must be a positive number", ErrInvalidQuery)
		}
		q.Page = page
	}
	return q, nil
}

func optionalInt(v url.Values, key string, lo, hi int) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidQuery, key)
	}
	return n, nil
}

func validDateFacet(s string) bool {
	for _, c := range dateFacetLabels {
		if c.Value == s {
			return true
		}
	}
	return false
}

// Choice is one option of a filter facet.
type Choice struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Facet is a filter shown next to the changelist.
type Facet struct {
	Field   string   `json:"field"`
	Title   string   `json:"title"`
	Choices []Choice `json:"choices"`
}

// DateLink is one drill-down step of the date hierarchy.
type DateLink struct {
	Year  int    `json:"year"`
	Month int    `json:"month,omitempty"`
	Day   int    `json:"day,omitempty"`
	Label string `json:"label"`
}

// Row is one changelist line; Cells follow Columns.
type Row struct {
	ID    uint  `json:"id"`
	Cells []any `json:"cells"`
}

// ChangeList is one page of the post admin listing.
type ChangeList struct {
	Columns       []string   `json:"columns"`
	Rows          []Row      `json:"rows"`
	Total         int64      `json:"total"`
	Page          int        `json:"page"`
	PerPage       int        `json:"per_page"`
	TotalPages    int        `json:"total_pages"`
	Ordering      []string   `json:"ordering"`
	Search        string     `json:"search"`
	SearchFields  []string   `json:"search_fields"`
	Facets        []Facet    `json:"facets"`
	DateHierarchy []DateLink `json:"date_hierarchy"`
}

// Changelist runs q against the posts table. now anchors the relative date
// facets and the date hierarchy's time zone.
func Changelist(db *gorm.DB, q Query, now time.Time) (*ChangeList, error) {
	base := db.Model(&models.Post{}).
		Scopes(filterScope(q, now), searchScope(q.Search)).
		Session(&gorm.Session{})

	links, err := dateHierarchy(base, q, now.Location())
	if err != nil {
		return nil, err
	}

	filtered := base.Scopes(drillDownScope(q, now.Location())).Session(&gorm.Session{})

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return nil, err
	}

	ordering := q.Order
	if len(ordering) == 0 {
		ordering = PostAdmin.Ordering
	}
	perPage := PostAdmin.ListPerPage

	var posts []models.Post
	err = filtered.
		Scopes(orderScope(ordering)).
		Preload("Author").
		Offset((q.Page - 1) * perPage).
		Limit(perPage).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	facets, err := buildFacets(db, q)
	if err != nil {
		return nil, err
	}

	cl := &ChangeList{
		Columns:       PostAdmin.ListDisplay,
		Rows:          make([]Row, 0, len(posts)),
		Total:         total,
		Page:          q.Page,
		PerPage:       perPage,
		TotalPages:    int((total + int64(perPage) - 1) / int64(perPage)),
		Ordering:      ordering,
		Search:        q.Search,
		SearchFields:  PostAdmin.SearchFields,
		Facets:        facets,
		DateHierarchy: links,
	}
	for _, p := range posts {
		cl.Rows = append(cl.Rows, Row{ID: p.ID, Cells: displayCells(p)})
	}
	return cl, nil
}

func displayCells(p models.Post) []any {
	cells := make([]any, 0, len(PostAdmin.ListDisplay))
	for _, f := range PostAdmin.ListDisplay {
		switch f {
		case "title":
			cells = append(cells, p.Title)
		case "slug":
			cells = append(cells, p.Slug)
		case "author":
			cells = append(cells, p.Author.Username)
		case "publish":
			cells = append(cells, p.Publish)
		case "status":
			cells = append(cells, p.Status.Label())
		}
	}
	return cells
}

func filterScope(q Query, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.Author != 0 {
			db = db.Where("author_id = ?", q.Author)
		}
		if from, to, ok := dateFacetRange(q.Created, now); ok {
			db = db.Where("created >= ? AND created < ?", from, to)
		}
		if from, to, ok := dateFacetRange(q.Publish, now); ok {
			db = db.Where("publish >= ? AND publish < ?", from, to)
		}
		return db
	}
}

// dateFacetRange returns the half-open interval of a date facet.
func dateFacetRange(facet string, now time.Time) (time.Time, time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	switch facet {
	case DateToday:
		return today, tomorrow, true
	case DatePast7Days:
		return today.AddDate(0, 0, -7), tomorrow, true
	case DateThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0), true
	case DateThisYear:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(1, 0, 0), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// searchScope requires every whitespace separated term to appear in at least one search field.
func searchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, term := range strings.Fields(search) {
			like := "%" + escapeLike(strings.ToLower(term)) + "%"
			clauses := make([]string, 0, len(PostAdmin.SearchFields))
			args := make([]any, 0, len(PostAdmin.SearchFields))
			for _, f := range PostAdmin.SearchFields {
				clauses = append(clauses, "LOWER("+postColumns[f]+") LIKE ? ESCAPE '!'")
				args = append(args, like)
			}
			db = db.Where(strings.Join(clauses, " OR "), args...)
		}
		return db
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func drillDownScope(q Query, loc *time.Location) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Year == 0 {
			return db
		}
		col := postColumns[PostAdmin.DateHierarchy]
		from := time.Date(q.Year, time.January, 1, 0, 0, 0, 0, loc)
		to := from.AddDate(1, 0, 0)
		if q.Month != 0 {
			from = time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, loc)
			to = from.AddDate(0, 1, 0)
		}
		if q.Day != 0 {
			from = time.Date(q.Year, time.Month(q.Month), q.Day, 0, 0, 0, 0, loc)
			to = from.AddDate(0, 0, 1)
		}
		return db.Where(col+" >= ? AND "+col+" < ?", from, to)
	}
}

func orderScope(ordering []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, f := range ordering {
			dir := "ASC"
			if strings.HasPrefix(f, "-") {
				dir = "DESC"
				f = f[1:]
			}
			db = db.Order(postColumns[f] + " " + dir)
		}
		// Stable pages when the requested fields tie
		return db.Order("id DESC")
	}
}

// dateHierarchy lists the next drill-down level below the selected year/month.
func dateHierarchy(db *gorm.DB, q Query, loc *time.Location) ([]DateLink, error) {
	if q.Day != 0 {
		return []DateLink{}, nil
	}
	var dates []time.Time
	scoped := db.Scopes(drillDownScope(q, loc))
	if err := scoped.Pluck(postColumns[PostAdmin.DateHierarchy], &dates).Error; err != nil {
		return nil, err
	}

	seen := map[DateLink]bool{}
	links := []DateLink{}
	for _, d := range dates {
		d = d.In(loc)
		var link DateLink
		switch {
		case q.Month != 0:
			link = DateLink{Year: d.Year(), Month: int(d.Month()), Day: d.Day(), Label: d.Format("January 2")}
		case q.Year != 0:
			link = DateLink{Year: d.Year(), Month: int(d.Month()), Label: d.Format("January")}
		default:
			link = DateLink{Year: d.Year(), Label: strconv.Itoa(d.Year())}
		}
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Day < b.Day
	})
	return links, nil
}

func buildFacets(db *gorm.DB, q Query) ([]Facet, error) {
	facets := make([]Facet, 0, len(PostAdmin.ListFilter))
	for _, f := range PostAdmin.ListFilter {
		switch f {
		case "status":
			choices := []Choice{{Value: "", Label: "All", Selected: q.Status == ""}}
			for _, s := range models.PostStatuses {
				choices = append(choices, Choice{Value: string(s), Label: s.Label(), Selected: q.Status == s})
			}
			facets = append(facets, Facet{Field: f, Title: "status", Choices: choices})
		case "created", "publish":
			selected := q.Created
			if f == "publish" {
				selected = q.Publish
			}
			choices := make([]Choice, 0, len(dateFacetLabels))
			for _, c := range dateFacetLabels {
				c.Selected = c.Value == selected
				choices = append(choices, c)
			}
			facets = append(facets, Facet{Field: f, Title: f, Choices: choices})
		case "author":
			var users []models.User
			if err := db.Model(&models.User{}).Order("username").Find(&users).Error; err != nil {
				return nil, err
			}
			choices := []Choice{{Value: "", Label: "All", Selected: q.Author == 0}}
			for _, u := range users {
				choices = append(choices, Choice{
					Value:    strconv.FormatUint(uint64(u.ID), 10),
					Label:    u.Username,
					Selected: q.Author == u.ID,
				})
			}
			facets = append(facets, Facet{Field: f, Title: f, Choices: choices})
		}
	}
	return facets, nil
}
