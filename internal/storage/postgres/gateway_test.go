package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/topicstreams-scraper/internal/news"
)

func newMockGateway(t *testing.T) (*Gateway, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	gw, err := NewWithPool(mock)
	require.NoError(t, err)
	return gw, mock
}

func TestTopicsReturnsNames(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectQuery("SELECT name FROM topics").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("golang").AddRow("rust"))

	topics, err := gw.Topics(context.Background())
	require.NoError(t, err)
	require.Equal(t, []news.Topic{"golang", "rust"}, topics)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicsWrapsQueryError(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	boom := errors.New("connection refused")
	mock.ExpectQuery("SELECT name FROM topics").WillReturnError(boom)

	_, err := gw.Topics(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "query topics")
}

func TestInsertNewsEntriesSendsColumns(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	scraped := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	published := scraped.Add(-5 * time.Minute)
	entries := []news.Entry{
		{
			Topic:       "golang",
			Title:       "Go 1.26 released",
			Source:      news.StringPtr("Example News"),
			URL:         "https://www.Example.com/go",
			PublishedAt: &published,
			ScrapedAt:   scraped,
		},
		{
			Topic:     "golang",
			Title:     "Generics",
			URL:       "https://blog.example.org/post",
			Snippet:   "snippet",
			ScrapedAt: scraped,
		},
	}

	mock.ExpectExec("INSERT INTO news_entries").
		WithArgs(
			[]string{"golang", "golang"},
			[]string{"Go 1.26 released", "Generics"},
			[]pgtype.Text{{String: "Example News", Valid: true}, {}},
			[]string{"https://www.Example.com/go", "https://blog.example.org/post"},
			[]string{"example.com", "blog.example.org"},
			[]string{"", "snippet"},
			[]pgtype.Timestamptz{{Time: published, Valid: true}, {}},
			[]time.Time{scraped, scraped},
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, gw.InsertNewsEntries(context.Background(), entries))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertNewsEntriesEmptyIsNoop(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	require.NoError(t, gw.InsertNewsEntries(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertNewsEntriesWrapsError(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	boom := errors.New("deadlock detected")
	mock.ExpectExec("INSERT INTO news_entries").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(boom)

	err := gw.InsertNewsEntries(context.Background(), []news.Entry{{Topic: "t", Title: "x", URL: "https://a.example"}})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "insert news entries")
}

func TestInsertScraperLogs(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	logs := []news.ScraperLog{{
		Topic:       "golang",
		Page:        1,
		Status:      news.LogStatusEmpty,
		Message:     "no results",
		SnapshotURI: "file:///tmp/x.html",
		CycleID:     "cycle-1",
		CreatedAt:   at,
	}}

	mock.ExpectExec("INSERT INTO scraper_logs").
		WithArgs(
			[]string{"golang"},
			[]int32{1},
			[]string{"empty"},
			[]int32{0},
			[]string{"no results"},
			[]string{"file:///tmp/x.html"},
			[]string{"cycle-1"},
			[]time.Time{at},
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, gw.InsertScraperLogs(context.Background(), logs))
	require.NoError(t, gw.InsertScraperLogs(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaAndSeed(t *testing.T) {
	t.Parallel()

	gw, mock := newMockGateway(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS topics").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO topics").WithArgs("golang").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO topics").WithArgs("rust").WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, gw.EnsureSchema(context.Background()))
	require.NoError(t, gw.SeedTopics(context.Background(), []string{"golang", "rust"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	_, err = NewWithPool(nil)
	require.Error(t, err)
}
