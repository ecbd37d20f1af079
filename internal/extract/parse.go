package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

// Card selectors for the news vertical, most specific first.
var (
	cardSelectors    = []string{"div.SoaBEf", "div#rso div.dbsr", "div#rso g-card"}
	titleSelectors   = []string{"div[role='heading']", "div.n0jPhd", "div.mCBkyc", "h3"}
	sourceSelectors  = []string{"div.MgUUmf span", "div.NUnG9d span", "div.CEMjEf span"}
	snippetSelectors = []string{"div.GI74Re", "div.Y3v8qd"}
	timeSelectors    = []string{"div.OSrXXb span", "span.LfVVr", "div.OSrXXb", "span.WG9SHc span"}
	blockedMarkers   = []string{
		"our systems have detected unusual traffic",
		"before you continue to google",
		"/sorry/index",
	}
)

var relativeTime = regexp.MustCompile(`(?i)(\d+)\s*(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days|w|week|weeks)\s+ago`)

// parsed is the outcome of reading one results page.
type parsed struct {
	Entries []news.Entry
	Blocked bool
	// Dropped counts cards older than the window or missing a title/link.
	Dropped int
}

// parseResults reads a rendered results page. Entries keep the page order,
// which the search surface already sorts by recency.
func parseResults(html string, topic news.Topic, base *url.URL, now time.Time, window time.Duration) (parsed, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return parsed{}, fmt.Errorf("parse results html: %w", err)
	}
	if isBlocked(doc, html) {
		return parsed{Blocked: true}, nil
	}

	var out parsed
	cards := findCards(doc)
	cards.Each(func(_ int, card *goquery.Selection) {
		entry, ok := parseCard(card, topic, base, now)
		if !ok {
			out.Dropped++
			return
		}
		if window > 0 && entry.PublishedAt != nil && now.Sub(*entry.PublishedAt) > window {
			out.Dropped++
			return
		}
		out.Entries = append(out.Entries, entry)
	})
	return out, nil
}

func isBlocked(doc *goquery.Document, raw string) bool {
	if doc.Find("form#captcha-form, div#recaptcha, div.g-recaptcha").Length() > 0 {
		return true
	}
	lower := strings.ToLower(raw)
	for _, marker := range blockedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func findCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range cardSelectors {
		if cards := doc.Find(sel); cards.Length() > 0 {
			return cards
		}
	}
	return doc.Find("div#rso > div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("a[href]").Length() > 0 && s.Find("div[role='heading']").Length() > 0
	})
}

func parseCard(card *goquery.Selection, topic news.Topic, base *url.URL, now time.Time) (news.Entry, bool) {
	title := firstText(card, titleSelectors)
	href, _ := card.Find("a[href]").First().Attr("href")
	link := resolveLink(base, href)
	if title == "" || link == "" {
		return news.Entry{}, false
	}
	entry := news.Entry{
		Topic:     string(topic),
		Title:     title,
		URL:       link,
		Snippet:   firstText(card, snippetSelectors),
		ScrapedAt: now,
	}
	if source := firstText(card, sourceSelectors); source != "" {
		entry.Source = &source
	}
	if ts, ok := parseRelative(firstText(card, timeSelectors), now); ok {
		entry.PublishedAt = &ts
	}
	return entry, true
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := collapse(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLink unwraps redirect links ("/url?q=...") and makes relative links
// absolute. Non-http(s) links are discarded.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.Path == "/url" {
		for _, key := range []string{"q", "url"} {
			if target := u.Query().Get(key); target != "" {
				return resolveLink(base, target)
			}
		}
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// parseRelative understands "5 mins ago", "1 hour ago", "just now".
func parseRelative(text string, now time.Time) (time.Time, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return time.Time{}, false
	}
	if text == "now" || text == "just now" {
		return now, true
	}
	m := relativeTime.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	var unit time.Duration
	switch m[2] {
	case "s", "sec", "secs", "second", "seconds":
		unit = time.Second
	case "m", "min", "mins", "minute", "minutes":
		unit = time.Minute
	case "h", "hr", "hrs", "hour", "hours":
		unit = time.Hour
	case "d", "day", "days":
		unit = 24 * time.Hour
	default:
		unit = 7 * 24 * time.Hour
	}
	return now.Add(-time.Duration(n) * unit), true
}
