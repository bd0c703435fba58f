package crawler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedscout/seedscout-cli/internal/config"
	"github.com/seedscout/seedscout-cli/internal/extract"
	"github.com/seedscout/seedscout-cli/internal/model"
	"github.com/seedscout/seedscout-cli/internal/record"
	"github.com/seedscout/seedscout-cli/internal/schedule"
	"github.com/seedscout/seedscout-cli/internal/store"
)

// stubRenderer serves canned HTML per URL and records fetch order.
type stubRenderer struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (r *stubRenderer) Render(_ context.Context, url string, _ time.Duration) (string, error) {
	r.mu.Lock()
	r.fetched = append(r.fetched, url)
	r.mu.Unlock()
	html, ok := r.pages[url]
	if !ok {
		return "", eris.Errorf("render %s: context deadline exceeded", url)
	}
	return html, nil
}

func (r *stubRenderer) Close() {}

func (r *stubRenderer) articleFetches(listing string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, u := range r.fetched {
		if !strings.HasPrefix(u, listing) {
			out = append(out, u)
		}
	}
	return out
}

const testListing = "https://techcrunch.com/category/venture/"

func fundingArticle(name, amount, stageSentence, city string) string {
	return fmt.Sprintf(`<html><body>
		<h1>%s raises %s</h1>
		<article>
			<p>%s raises %s in new funding. %s</p>
			<p>The %s company plans to hire aggressively.</p>
		</article>
	</body></html>`, name, amount, name, amount, stageSentence, city)
}

// listingHTML links the given article URLs plus a fixed set of
// non-article links.
func listingHTML(articleURLs []string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, u := range articleURLs {
		fmt.Fprintf(&b, `<a href="%s">story</a>`, u)
	}
	for _, u := range []string{
		"https://techcrunch.com/category/ai/",
		"https://techcrunch.com/category/apps/",
		"https://techcrunch.com/tag/funding/",
		"https://techcrunch.com/tag/venture/",
		"https://techcrunch.com/author/jane-rivera/",
		"https://techcrunch.com/author/sam-okafor/",
		"https://techcrunch.com/category/venture/page/2/",
		"https://techcrunch.com/events/2026/01/15/disrupt/",
		"https://techcrunch.com/podcasts/equity/",
		"https://techcrunch.com/about/",
		"https://twitter.com/techcrunch",
		"https://www.facebook.com/techcrunch",
	} {
		fmt.Fprintf(&b, `<a href="%s">nav</a>`, u)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newCrawlStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testCrawlConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		ListingURL:         testListing,
		PageBudget:         3,
		ListingTimeoutSecs: 1,
		ArticleTimeoutSecs: 1,
		FetchDelayMillis:   1,
		MaxConcurrent:      1,
		ExcludePaths:       testExcludes,
	}
}

func newTestCrawler(t *testing.T, s store.Store, r Renderer) *Crawler {
	t.Helper()
	c, err := New(s, r, extract.NewEngine(), record.NewMerger(s), schedule.New(time.Hour, 0, 24), testCrawlConfig())
	require.NoError(t, err)
	return c
}

func TestRunFullScenario(t *testing.T) {
	s := newCrawlStore(t)
	ctx := context.Background()

	unseen := []string{
		"https://techcrunch.com/2025/11/24/acme-ai-raises/",
		"https://techcrunch.com/2025/11/23/beta-bio-seed/",
		"https://techcrunch.com/2025/11/22/gamma-sec-series-b/",
		"https://techcrunch.com/2025/11/21/delta-climate-round/",
		"https://techcrunch.com/2025/11/20/weekly-roundup/",
	}
	known := []string{
		"https://techcrunch.com/2025/11/18/old-one/",
		"https://techcrunch.com/2025/11/17/old-two/",
		"https://techcrunch.com/2025/11/16/old-three/",
	}
	for i, u := range known {
		_, err := s.InsertStartup(ctx, &model.StartupRecord{
			Name:             fmt.Sprintf("Old Co %d", i),
			SourceArticleURL: u,
		})
		require.NoError(t, err)
	}

	listing := listingHTML(append(append([]string{}, unseen...), known...))
	renderer := &stubRenderer{pages: map[string]string{
		testListing: listing,
		"https://techcrunch.com/category/venture/page/2/": listing,
		unseen[0]: fundingArticle("Acme AI", "$12 million", "The Series A was led by Index.", "San Francisco"),
		unseen[1]: fundingArticle("Beta Bio", "$3 million", "The seed round closed quickly.", "Boston"),
		unseen[2]: fundingArticle("Gamma Security", "$40 million", "The Series B values the cybersecurity firm at $400M.", "Tel Aviv"),
		unseen[3]: fundingArticle("Delta Climate", "$8 million", "The seed funding supports climate work.", "Denver"),
		unseen[4]: `<html><body><h1>This Week In Venture</h1><article>
			<p>Venture funding totals reached $2 billion last week.</p>
			<p>Ten deals closed across fintech and healthcare.</p>
		</article></body></html>`,
	}}

	c := newTestCrawler(t, s, renderer)
	report, err := c.Run(ctx)
	require.NoError(t, err)

	assert.Empty(t, report.SkippedReason)
	assert.Equal(t, 2, report.PagesVisited)
	assert.Equal(t, 5, report.Candidates)
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 1, report.Discarded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Skipped)

	// Newest article first.
	fetched := renderer.articleFetches(testListing)
	require.Len(t, fetched, 5)
	assert.Equal(t, unseen[0], fetched[0])
	assert.Equal(t, unseen[4], fetched[4])

	got, err := s.GetStartupByURL(ctx, unseen[0])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme AI", got.Name)
	assert.Equal(t, "$12M", got.FundingAmount)
	assert.Equal(t, "Series A", got.FundingStage)
	assert.Equal(t, "San Francisco", got.Location)
	assert.Equal(t, model.EnrichmentPending, got.EnrichmentStatus)
	assert.Equal(t, "techcrunch.com", got.DataSource)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
}

func TestRunIsIdempotent(t *testing.T) {
	s := newCrawlStore(t)
	ctx := context.Background()

	articleURL := "https://techcrunch.com/2025/11/24/acme-ai-raises/"
	listing := listingHTML([]string{articleURL})
	pages := map[string]string{
		testListing: listing,
		"https://techcrunch.com/category/venture/page/2/": listing,
		articleURL: fundingArticle("Acme AI", "$12 million", "The Series A was oversubscribed.", "San Francisco"),
	}

	first := newTestCrawler(t, s, &stubRenderer{pages: pages})
	report, err := first.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	rerun := &stubRenderer{pages: pages}
	second := newTestCrawler(t, s, rerun)
	report, err = second.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Candidates)
	assert.Equal(t, 0, report.Created)
	assert.Empty(t, rerun.articleFetches(testListing))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestRunGatedByMinInterval(t *testing.T) {
	s := newCrawlStore(t)
	ctx := context.Background()

	renderer := &stubRenderer{pages: map[string]string{testListing: listingHTML(nil)}}
	c := newTestCrawler(t, s, renderer)

	_, err := c.Run(ctx)
	require.NoError(t, err)

	report, err := c.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, report.SkippedReason)
	assert.Equal(t, 0, report.PagesVisited)
}

func TestRunListingFailureKeepsCollected(t *testing.T) {
	s := newCrawlStore(t)
	ctx := context.Background()

	articleURL := "https://techcrunch.com/2025/11/24/acme-ai-raises/"
	// Page 2 is missing, so pagination stops after page 1 with the
	// collected candidate intact.
	renderer := &stubRenderer{pages: map[string]string{
		testListing: listingHTML([]string{articleURL}),
		articleURL:  fundingArticle("Acme AI", "$12 million", "A seed round.", "Austin"),
	}}

	c := newTestCrawler(t, s, renderer)
	report, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PagesVisited)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Created)
}

func TestRunArticleFailureIsIsolated(t *testing.T) {
	s := newCrawlStore(t)
	ctx := context.Background()

	good := "https://techcrunch.com/2025/11/24/acme-ai-raises/"
	bad := "https://techcrunch.com/2025/11/23/unreachable/"
	listing := listingHTML([]string{good, bad})
	renderer := &stubRenderer{pages: map[string]string{
		testListing: listing,
		"https://techcrunch.com/category/venture/page/2/": listing,
		good: fundingArticle("Acme AI", "$12 million", "A seed round.", "Austin"),
	}}

	c := newTestCrawler(t, s, renderer)
	report, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Failed)
}

func TestCancelledRunAccountsForEveryCandidate(t *testing.T) {
	s := newCrawlStore(t)
	renderer := &stubRenderer{pages: map[string]string{}}
	c := newTestCrawler(t, s, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates := []string{
		"https://techcrunch.com/2025/11/24/acme-ai-raises/",
		"https://techcrunch.com/2025/11/23/beta-bio-seed/",
		"https://techcrunch.com/2025/11/22/gamma-closes/",
	}
	report := &RunReport{Candidates: len(candidates)}
	c.processArticles(ctx, candidates, report)

	assert.Equal(t, report.Candidates, report.Created+report.Skipped+report.Discarded+report.Failed)
	assert.Equal(t, 3, report.Failed)
}
