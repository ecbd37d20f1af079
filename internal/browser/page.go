package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Page is a single tab bound to one topic scrape.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	topic  news.Topic
	settle time.Duration

	once sync.Once
}

var _ news.Page = (*Page)(nil)

// Render navigates to url and returns the rendered document. There is no
// navigation timeout: a hung load blocks until ctx is cancelled.
func (p *Page) Render(ctx context.Context, url string) (string, error) {
	stop := context.AfterFunc(ctx, p.cancel)
	defer stop()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if p.settle > 0 {
		actions = append(actions, chromedp.Sleep(p.settle))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(p.ctx, actions...); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// Close closes the tab. Repeated calls are no-ops.
func (p *Page) Close() error {
	p.once.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		if p.cancel != nil {
			p.cancel()
		}
	})
	return nil
}
