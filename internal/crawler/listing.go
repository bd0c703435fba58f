package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// ListingPageURL returns the URL of the nth listing page. Page 1 is the
// listing itself; later pages use the /page/N/ convention.
func ListingPageURL(listingURL string, page int) string {
	if page <= 1 {
		return listingURL
	}
	base := strings.TrimSuffix(listingURL, "/")
	return fmt.Sprintf("%s/page/%d/", base, page)
}

// ExtractLinks pulls every anchor href out of a rendered listing page,
// resolved against the page URL and normalized, in document order with
// duplicates removed.
func ExtractLinks(html, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "crawler: parse listing html")
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		abs := resolveHref(pageURL, href)
		norm := NormalizeURL(abs)
		if seen[norm] {
			return
		}
		seen[norm] = true
		links = append(links, norm)
	})
	return links, nil
}

// ParseArticle extracts the title and body text from a rendered article
// page.
func ParseArticle(html, articleURL string) (model.ArticleCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.ArticleCandidate{}, eris.Wrapf(err, "crawler: parse article %s", articleURL)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var paragraphs []string
	doc.Find("article p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	candidate := model.ArticleCandidate{
		URL:        articleURL,
		Title:      title,
		RawContent: strings.Join(paragraphs, "\n\n"),
	}
	if date, ok := PublishDate(articleURL); ok {
		candidate.PublishedAt = date
	} else {
		// Undated URL, pin ordering to crawl time.
		candidate.PublishedAt = time.Now()
	}
	return candidate, nil
}

// resolveHref makes a relative href absolute against the page URL.
func resolveHref(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
