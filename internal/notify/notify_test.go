package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

func sampleEntries() []news.Entry {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []news.Entry{
		{Topic: "golang", Title: "Go 1.30 released", Source: news.StringPtr("Go Blog"), URL: "https://www.go.dev/blog/go1.30", ScrapedAt: at},
		{Topic: "rust", Title: "Rust news", URL: "https://blog.rust-lang.org/x", ScrapedAt: at},
	}
}

func TestNewAnnouncement(t *testing.T) {
	t.Parallel()

	a := NewAnnouncement("cycle-1", sampleEntries())
	require.Equal(t, "cycle-1", a.CycleID)
	require.Equal(t, 2, a.Count)
	require.Equal(t, "go.dev", a.Entries[0].Domain)
	require.Nil(t, a.Entries[1].Source)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.Contains(t, string(data), `"source":"Go Blog"`)
	require.NotContains(t, string(data), "published_at")
}

func TestMemoryAnnounce(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	require.NoError(t, m.Announce(context.Background(), "c", nil))
	require.Empty(t, m.Sent())

	require.NoError(t, m.Announce(context.Background(), "c", sampleEntries()))
	require.Len(t, m.Sent(), 1)

	boom := errors.New("boom")
	m.Fail(boom)
	require.ErrorIs(t, m.Announce(context.Background(), "c", sampleEntries()), boom)
}

func TestPubSubWithoutTopic(t *testing.T) {
	t.Parallel()

	p := NewPubSub(nil)
	require.NoError(t, p.Announce(context.Background(), "c", nil))
	require.Error(t, p.Announce(context.Background(), "c", sampleEntries()))
}
