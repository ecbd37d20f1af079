package browser

import (
	"strings"
	"time"
)

// Fingerprint defaults mirror an ordinary desktop Chrome on macOS.
const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultLocale         = "en-US"
	DefaultTimezone       = "America/Los_Angeles"
	DefaultLatitude       = 34.0522
	DefaultLongitude      = -118.2437
	DefaultColorScheme    = "light"
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultSettleDelay    = 1500 * time.Millisecond
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
)

// Config controls the browser process and the fingerprint applied to every page.
type Config struct {
	Headless       bool
	ExecPath       string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Timezone       string
	Latitude       float64
	Longitude      float64
	ColorScheme    string
	// Headers are sent with every request made by a page.
	Headers map[string]string
	// SettleDelay is waited after the document is ready so client-side
	// rendering can finish before the DOM is read.
	SettleDelay time.Duration
}

// DefaultHeaders returns the baseline request headers.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept-Language": DefaultAcceptLanguage,
		"Accept":          DefaultAccept,
	}
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = DefaultViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = DefaultViewportHeight
	}
	if c.Locale == "" {
		c.Locale = DefaultLocale
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ColorScheme == "" {
		c.ColorScheme = DefaultColorScheme
	}
	if len(c.Headers) == 0 {
		c.Headers = DefaultHeaders()
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

// acceptLanguage picks the Accept-Language header if configured, otherwise
// derives one from the locale.
func (c Config) acceptLanguage() string {
	for k, v := range c.Headers {
		if strings.EqualFold(k, "Accept-Language") && v != "" {
			return v
		}
	}
	lang, _, _ := strings.Cut(c.Locale, "-")
	if lang == c.Locale {
		return c.Locale
	}
	return c.Locale + "," + lang + ";q=0.9"
}

// platformFor keeps navigator.platform consistent with the user agent.
func platformFor(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Macintosh"):
		return "MacIntel"
	case strings.Contains(userAgent, "Windows"):
		return "Win32"
	default:
		return "Linux x86_64"
	}
}
