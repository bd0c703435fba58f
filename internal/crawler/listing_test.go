package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingPageURL(t *testing.T) {
	listing := "https://techcrunch.com/category/venture/"
	assert.Equal(t, listing, ListingPageURL(listing, 1))
	assert.Equal(t, listing, ListingPageURL(listing, 0))
	assert.Equal(t, "https://techcrunch.com/category/venture/page/2/", ListingPageURL(listing, 2))
	assert.Equal(t, "https://techcrunch.com/category/venture/page/5/", ListingPageURL(listing, 5))
}

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="https://techcrunch.com/2025/11/20/acme-ai-raises/">Acme AI raises $12M</a>
		<a href="/2025/11/19/beta-bio-seed/">Beta Bio</a>
		<a href="https://techcrunch.com/2025/11/20/acme-ai-raises/?utm_source=feed">Acme again</a>
		<a href="#comments">Comments</a>
		<a href="javascript:void(0)">Menu</a>
		<a href="https://twitter.com/techcrunch">Follow us</a>
	</body></html>`

	links, err := ExtractLinks(html, "https://techcrunch.com/category/venture/")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://techcrunch.com/2025/11/20/acme-ai-raises/",
		"https://techcrunch.com/2025/11/19/beta-bio-seed/",
		"https://twitter.com/techcrunch/",
	}, links)
}

func TestParseArticle(t *testing.T) {
	html := `<html><head><title>TechCrunch</title></head><body>
		<h1>Acme AI raises $12M Series A</h1>
		<article>
			<p>Acme AI raises $12 million in Series A funding.</p>
			<p>The San Francisco company builds warehouse agents.</p>
		</article>
	</body></html>`

	article, err := ParseArticle(html, "https://techcrunch.com/2025/11/20/acme-ai-raises/")
	require.NoError(t, err)
	assert.Equal(t, "Acme AI raises $12M Series A", article.Title)
	assert.Contains(t, article.RawContent, "Acme AI raises $12 million")
	assert.Contains(t, article.RawContent, "warehouse agents")
	assert.Equal(t, 2025, article.PublishedAt.Year())
}

func TestParseArticleFallsBackToTitleTagAndBodyParagraphs(t *testing.T) {
	html := `<html><head><title>Beta Bio lands seed round</title></head><body>
		<p>Beta Bio lands a seed round.</p>
	</body></html>`

	article, err := ParseArticle(html, "https://techcrunch.com/2025/11/19/beta-bio-seed/")
	require.NoError(t, err)
	assert.Equal(t, "Beta Bio lands seed round", article.Title)
	assert.Equal(t, "Beta Bio lands a seed round.", article.RawContent)
}
