// Package browser owns the single headless Chrome process used for scraping
// and hands out fingerprinted, stealth-patched pages one topic at a time.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// ErrSessionClosed is returned when a page is requested after Close.
var ErrSessionClosed = errors.New("browser session closed")

// Session is one browser process plus the browsing context shared by every
// page it opens. A crash of the process fails every later page operation.
type Session struct {
	cfg    Config
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

var _ news.Browser = (*Session)(nil)

// Open launches the browser and prepares the shared context. Any failure here
// is a setup failure: everything created so far is torn down and the error is
// returned for the caller to treat as fatal.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s := &Session{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}

	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()
	if err := chromedp.Run(browserCtx, grantGeolocation()); err != nil {
		s.teardown()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	logger.Info("browser session opened",
		zap.Bool("headless", cfg.Headless),
		zap.String("timezone", cfg.Timezone),
		zap.String("locale", cfg.Locale),
	)
	return s, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

func grantGeolocation() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		if c == nil || c.Browser == nil {
			return errors.New("browser not started")
		}
		perms := []cdpbrowser.PermissionType{cdpbrowser.PermissionTypeGeolocation}
		if err := cdpbrowser.GrantPermissions(perms).Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
			return fmt.Errorf("grant geolocation: %w", err)
		}
		return nil
	})
}

// NewPage opens a fresh tab for one topic scrape. The fingerprint and stealth
// patches are installed before the caller can navigate. The tab closes when
// ctx is cancelled or when the returned page is closed, whichever is first.
func (s *Session) NewPage(ctx context.Context, topic news.Topic) (news.Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	p := &Page{
		ctx:    tabCtx,
		cancel: tabCancel,
		stop:   context.AfterFunc(ctx, tabCancel),
		topic:  topic,
		settle: s.cfg.SettleDelay,
	}
	if err := chromedp.Run(tabCtx, s.profileActions()...); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("prepare page for %q: %w", topic, err)
	}
	return p, nil
}

func (s *Session) profileActions() []chromedp.Action {
	cfg := s.cfg
	return []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript(cfg.Locale)).Do(ctx); err != nil {
				return fmt.Errorf("install stealth script: %w", err)
			}
			return nil
		}),
		network.Enable(),
		network.SetExtraHTTPHeaders(toNetworkHeaders(cfg.Headers)),
		emulation.SetUserAgentOverride(cfg.UserAgent).
			WithAcceptLanguage(cfg.acceptLanguage()).
			WithPlatform(platformFor(cfg.UserAgent)),
		emulation.SetDeviceMetricsOverride(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight), 1, false),
		emulation.SetLocaleOverride().WithLocale(cfg.Locale),
		emulation.SetTimezoneOverride(cfg.Timezone),
		emulation.SetGeolocationOverride().
			WithLatitude(cfg.Latitude).
			WithLongitude(cfg.Longitude).
			WithAccuracy(100),
		emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
			{Name: "prefers-color-scheme", Value: cfg.ColorScheme},
		}),
	}
}

// Close tears down every tab, the browser, and the allocator. It is safe to
// call more than once and never fails because the browser is already gone.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.teardown()
		s.logger.Info("browser session closed")
	})
	return nil
}

func (s *Session) teardown() {
	if s.browserCtx != nil {
		if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("browser shutdown reported error", zap.Error(err))
		}
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

func toNetworkHeaders(h map[string]string) network.Headers {
	headers := network.Headers{}
	for key, value := range h {
		if key == "" || value == "" {
			continue
		}
		headers[key] = value
	}
	return headers
}
