package extract

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const resultsFixture = `<html><body><div id="rso">
<div class="SoaBEf"><a class="WlydOe" href="https://www.example.com/go-126">
  <div class="MgUUmf"><span>Example News</span></div>
  <div role="heading" class="n0jPhd">Go 1.26   released
  </div>
  <div class="GI74Re">The Go team shipped a new release.</div>
  <div class="OSrXXb"><span>5 mins ago</span></div>
</a></div>
<div class="SoaBEf"><a href="/url?q=https://blog.example.org/post&amp;sa=U">
  <div role="heading">Generics one year later</div>
  <div class="OSrXXb"><span>just now</span></div>
</a></div>
<div class="SoaBEf"><a href="https://old.example.com/x">
  <div class="MgUUmf"><span>Old Times</span></div>
  <div role="heading">Stale story</div>
  <div class="OSrXXb"><span>3 hours ago</span></div>
</a></div>
<div class="SoaBEf"><a href="javascript:void(0)"><div role="heading">No link</div></a></div>
</div></body></html>`

func TestParseResultsExtractsCards(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	base, _ := url.Parse(DefaultBaseURL)

	got, err := parseResults(resultsFixture, "golang", base, now, time.Hour)
	require.NoError(t, err)
	require.False(t, got.Blocked)
	require.Equal(t, 2, got.Dropped)
	require.Len(t, got.Entries, 2)

	first := got.Entries[0]
	require.Equal(t, "golang", first.Topic)
	require.Equal(t, "Go 1.26 released", first.Title)
	require.NotNil(t, first.Source)
	require.Equal(t, "Example News", *first.Source)
	require.Equal(t, "https://www.example.com/go-126", first.URL)
	require.Equal(t, "The Go team shipped a new release.", first.Snippet)
	require.NotNil(t, first.PublishedAt)
	require.Equal(t, now.Add(-5*time.Minute), *first.PublishedAt)

	second := got.Entries[1]
	require.Nil(t, second.Source)
	require.Equal(t, "https://blog.example.org/post", second.URL)
	require.Equal(t, now, *second.PublishedAt)
}

func TestParseResultsDetectsChallenge(t *testing.T) {
	t.Parallel()

	html := `<html><body><form id="captcha-form"></form></body></html>`
	got, err := parseResults(html, "golang", nil, time.Now(), time.Hour)
	require.NoError(t, err)
	require.True(t, got.Blocked)
	require.Empty(t, got.Entries)

	html = `<html><body>Our systems have detected unusual traffic from your computer network.</body></html>`
	got, err = parseResults(html, "golang", nil, time.Now(), time.Hour)
	require.NoError(t, err)
	require.True(t, got.Blocked)
}

func TestParseRelative(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30 seconds ago", 30 * time.Second, true},
		{"1 min ago", time.Minute, true},
		{"12 mins ago", 12 * time.Minute, true},
		{"1 hour ago", time.Hour, true},
		{"2 days ago", 48 * time.Hour, true},
		{"1 week ago", 7 * 24 * time.Hour, true},
		{"Just now", 0, true},
		{"Oct 3, 2026", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, ok := parseRelative(tc.in, now)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, now.Add(-tc.want), got)
			}
		})
	}
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://www.google.com/search")
	require.Equal(t, "https://a.example/x", resolveLink(base, "/url?q=https://a.example/x&sa=U"))
	require.Equal(t, "https://www.google.com/news/x", resolveLink(base, "/news/x"))
	require.Equal(t, "", resolveLink(base, "javascript:void(0)"))
	require.Equal(t, "", resolveLink(base, "  "))
}
