// Package crawler discovers funding articles on a listing site, fetches
// them through a headless browser and hands them to extraction.
package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Renderer returns the rendered DOM for a URL. Implementations must be
// safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, url string, timeout time.Duration) (string, error)
	Close()
}

// ChromedpRenderer drives headless Chrome. The exec allocator is shared;
// every Render gets a fresh browsing context so one article cannot leak
// state into the next.
type ChromedpRenderer struct {
	userAgent   string
	allocator   context.Context
	allocCancel context.CancelFunc
}

func NewChromedpRenderer(userAgent string) *ChromedpRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromedpRenderer{
		userAgent:   userAgent,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

func (r *ChromedpRenderer) Close() {
	r.allocCancel()
}

// Render navigates and returns the page HTML. A navigation timeout or a
// detached browsing context gets one retry in a new context with a
// lenient wait.
func (r *ChromedpRenderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	html, err := r.renderOnce(ctx, url, timeout, false)
	if err == nil {
		return html, nil
	}
	if !retryableRenderError(err) {
		return "", eris.Wrapf(err, "crawler: render %s", url)
	}

	zap.L().Debug("crawler: retrying render with lenient wait",
		zap.String("url", url),
		zap.Error(err),
	)
	html, err = r.renderOnce(ctx, url, timeout, true)
	if err != nil {
		return "", eris.Wrapf(err, "crawler: render %s", url)
	}
	return html, nil
}

func (r *ChromedpRenderer) renderOnce(ctx context.Context, url string, timeout time.Duration, lenient bool) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	// Stop early if the caller's context dies mid-navigation.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var html string
	actions := []chromedp.Action{
		r.setupAction(),
		chromedp.Navigate(url),
	}
	if lenient {
		actions = append(actions, chromedp.Sleep(2*time.Second))
	} else {
		actions = append(actions,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(500*time.Millisecond),
		)
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", err
	}
	return html, nil
}

func (r *ChromedpRenderer) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return eris.Wrap(err, "crawler: enable network domain")
		}
		if r.userAgent != "" {
			if err := emulation.SetUserAgentOverride(r.userAgent).Do(ctx); err != nil {
				return eris.Wrap(err, "crawler: set user-agent")
			}
		}
		return nil
	})
}

// retryableRenderError matches the two failure shapes worth one more
// try: a navigation that timed out before the ready wait fired, and a
// browser target that detached mid-run.
func retryableRenderError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "detached") ||
		strings.Contains(msg, "target closed")
}
