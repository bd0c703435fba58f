package crawler

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// articleDatePattern matches the /YYYY/MM/DD/ segment that identifies a
// dated article path on the source site.
var articleDatePattern = regexp.MustCompile(`/(\d{4})/(\d{2})/(\d{2})/`)

// URLFilter decides which discovered links are article candidates.
type URLFilter struct {
	host     string
	excluded []string
}

// NewURLFilter builds a filter for one source site. excludePaths entries
// are path prefixes; a trailing "*" wildcard is accepted and ignored.
func NewURLFilter(listingURL string, excludePaths []string) (*URLFilter, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return nil, err
	}
	var excluded []string
	for _, p := range excludePaths {
		p = strings.TrimSuffix(strings.TrimSpace(p), "*")
		if p != "" && p != "/" {
			excluded = append(excluded, p)
		}
	}
	return &URLFilter{host: bareHost(u.Host), excluded: excluded}, nil
}

// IsArticleURL reports whether a link points to a dated article on the
// source site. Category, tag, author and pagination paths are rejected
// even when they carry a date-like segment.
func (f *URLFilter) IsArticleURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if bareHost(u.Host) != f.host {
		return false
	}
	if !articleDatePattern.MatchString(u.Path) {
		return false
	}
	for _, p := range f.excluded {
		if strings.HasPrefix(u.Path, p) {
			return false
		}
	}
	return true
}

// PublishDate derives the publish date from the article path. ok is
// false when the path has no valid date segment.
func PublishDate(raw string) (time.Time, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return time.Time{}, false
	}
	m := articleDatePattern.FindStringSubmatch(u.Path)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006/01/02", m[1]+"/"+m[2]+"/"+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeURL strips the query and fragment so the same article always
// dedupes to one key.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Path != "" && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

func bareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
