package crawler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/seedscout/seedscout-cli/internal/config"
	"github.com/seedscout/seedscout-cli/internal/extract"
	"github.com/seedscout/seedscout-cli/internal/record"
	"github.com/seedscout/seedscout-cli/internal/schedule"
	"github.com/seedscout/seedscout-cli/internal/store"
)

// RunReport summarizes one crawl run. A gated run carries only
// SkippedReason.
type RunReport struct {
	SkippedReason string `json:"skipped_reason,omitempty"`
	PagesVisited  int    `json:"pages_visited"`
	LinksSeen     int    `json:"links_seen"`
	Candidates    int    `json:"candidates"`
	Created       int    `json:"created"`
	Skipped       int    `json:"skipped"`
	Discarded     int    `json:"discarded"`
	Failed        int    `json:"failed"`
}

// Crawler runs the discover, fetch, extract, merge pipeline for one
// listing site.
type Crawler struct {
	store    store.Store
	renderer Renderer
	engine   *extract.Engine
	merger   *record.Merger
	gate     *schedule.Gate
	filter   *URLFilter
	cfg      config.CrawlerConfig

	dataSource string
}

// New builds a crawler. The filter is derived from the listing URL and
// the configured exclude paths.
func New(s store.Store, r Renderer, e *extract.Engine, m *record.Merger, g *schedule.Gate, cfg config.CrawlerConfig) (*Crawler, error) {
	filter, err := NewURLFilter(cfg.ListingURL, cfg.ExcludePaths)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: parse listing url")
	}
	return &Crawler{
		store:      s,
		renderer:   r,
		engine:     e,
		merger:     m,
		gate:       g,
		filter:     filter,
		cfg:        cfg,
		dataSource: filter.host,
	}, nil
}

// Run executes one gated crawl. A run refused by the schedule gate
// returns a skipped report, not an error; per-article failures are
// counted and never abort the run.
func (c *Crawler) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{}

	if err := c.gate.TryStart(time.Now()); err != nil {
		switch {
		case errors.Is(err, schedule.ErrAlreadyRunning),
			errors.Is(err, schedule.ErrTooSoon),
			errors.Is(err, schedule.ErrOutsideWindow):
			zap.L().Info("crawler: run gated", zap.Error(err))
			report.SkippedReason = err.Error()
			return report, nil
		default:
			return nil, eris.Wrap(err, "crawler: start run")
		}
	}
	defer c.gate.Finish()

	known, err := c.store.KnownSourceURLs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: load known urls")
	}

	candidates := c.discover(ctx, known, report)
	report.Candidates = len(candidates)

	// Newest first so fresh funding news lands before backfill.
	sort.SliceStable(candidates, func(i, j int) bool {
		di, _ := PublishDate(candidates[i])
		dj, _ := PublishDate(candidates[j])
		return di.After(dj)
	})

	c.processArticles(ctx, candidates, report)

	zap.L().Info("crawler: run complete",
		zap.Int("pages_visited", report.PagesVisited),
		zap.Int("links_seen", report.LinksSeen),
		zap.Int("candidates", report.Candidates),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("discarded", report.Discarded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// discover paginates the listing until the page budget runs out, a page
// yields nothing new, or a listing fetch fails. Collected candidates
// survive a mid-pagination failure.
func (c *Crawler) discover(ctx context.Context, known map[string]bool, report *RunReport) []string {
	seen := make(map[string]bool)
	var candidates []string

	for page := 1; page <= c.pageBudget(); page++ {
		pageURL := ListingPageURL(c.cfg.ListingURL, page)
		html, err := c.renderer.Render(ctx, pageURL, c.listingTimeout())
		if err != nil {
			zap.L().Warn("crawler: listing fetch failed, keeping collected",
				zap.String("url", pageURL),
				zap.Error(err),
			)
			break
		}
		report.PagesVisited++

		links, err := ExtractLinks(html, pageURL)
		if err != nil {
			zap.L().Warn("crawler: listing parse failed", zap.String("url", pageURL), zap.Error(err))
			break
		}
		report.LinksSeen += len(links)

		newOnPage := 0
		for _, link := range links {
			if !c.filter.IsArticleURL(link) {
				continue
			}
			if seen[link] || known[link] {
				continue
			}
			seen[link] = true
			candidates = append(candidates, link)
			newOnPage++
		}

		if newOnPage == 0 {
			zap.L().Debug("crawler: no new links, stopping pagination", zap.Int("page", page))
			break
		}
	}
	return candidates
}

// processArticles fetches and extracts candidates with bounded
// concurrency. The shared limiter keeps the politeness delay between
// page loads regardless of worker count.
func (c *Crawler) processArticles(ctx context.Context, candidates []string, report *RunReport) {
	limiter := rate.NewLimiter(rate.Every(c.fetchDelay()), 1)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent())

	for _, articleURL := range candidates {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				// Run cancelled before this article's turn. Count it so
				// the report still accounts for every candidate.
				zap.L().Warn("crawler: article not fetched, run cancelled",
					zap.String("url", articleURL),
					zap.Error(err),
				)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}

			outcome, err := c.processOne(gctx, articleURL)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, extract.ErrNoCompanyName):
				report.Discarded++
			case err != nil:
				zap.L().Warn("crawler: article failed",
					zap.String("url", articleURL),
					zap.Error(err),
				)
				report.Failed++
			case outcome == record.OutcomeCreated:
				report.Created++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Crawler) processOne(ctx context.Context, articleURL string) (record.Outcome, error) {
	html, err := c.renderer.Render(ctx, articleURL, c.articleTimeout())
	if err != nil {
		return "", err
	}
	article, err := ParseArticle(html, articleURL)
	if err != nil {
		return "", err
	}

	extracted, err := c.engine.Extract(ctx, article)
	if err != nil {
		return "", err
	}
	return c.merger.Merge(ctx, record.FromExtraction(extracted, c.dataSource))
}

func (c *Crawler) pageBudget() int {
	if c.cfg.PageBudget > 0 {
		return c.cfg.PageBudget
	}
	return 5
}

func (c *Crawler) listingTimeout() time.Duration {
	if c.cfg.ListingTimeoutSecs > 0 {
		return time.Duration(c.cfg.ListingTimeoutSecs) * time.Second
	}
	return 45 * time.Second
}

func (c *Crawler) articleTimeout() time.Duration {
	if c.cfg.ArticleTimeoutSecs > 0 {
		return time.Duration(c.cfg.ArticleTimeoutSecs) * time.Second
	}
	return 25 * time.Second
}

func (c *Crawler) fetchDelay() time.Duration {
	if c.cfg.FetchDelayMillis > 0 {
		return time.Duration(c.cfg.FetchDelayMillis) * time.Millisecond
	}
	return 2 * time.Second
}

func (c *Crawler) maxConcurrent() int {
	if c.cfg.MaxConcurrent > 0 {
		return c.cfg.MaxConcurrent
	}
	return 3
}
