package track

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"ewintr.nl/uploadwatch/model"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var today = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// fakeFeed serves a playlist newest first, pageSize videos per page, with
// page tokens holding the offset of the next page.
type fakeFeed struct {
	videos   []model.Video
	pageSize int
	// total overrides the reported count when set
	total *int
	// onFirstPage runs before every first page request, with the number of
	// first page requests so far
	onFirstPage func(n int)
	// fail makes continuation requests return this error
	fail error
	// omitFirstTotal and omitNextTotal leave the count out of first and
	// continuation pages
	omitFirstTotal bool
	omitNextTotal  bool

	calls      int
	firstPages int
}

func newFakeFeed(n int) *fakeFeed {
	f := &fakeFeed{pageSize: 50}
	for i := n; i > 0; i-- {
		f.videos = append(f.videos, model.Video{
			ID:          model.YoutubeVideoID(fmt.Sprintf("old%03d", i)),
			Title:       fmt.Sprintf("Old %d", i),
			PublishedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
		})
	}

	return f
}

func (f *fakeFeed) add(videos ...model.Video) {
	f.videos = append(append([]model.Video{}, videos...), f.videos...)
}

func (f *fakeFeed) remove(id model.YoutubeVideoID) {
	for i, v := range f.videos {
		if v.ID == id {
			f.videos = append(f.videos[:i:i], f.videos[i+1:]...)
			return
		}
	}
}

func (f *fakeFeed) report(total int) { f.total = &total }

func (f *fakeFeed) FetchPage(_ context.Context, _ model.PlaylistID, token string) (model.Page, error) {
	f.calls++
	start := 0
	if token == "" {
		f.firstPages++
		if f.onFirstPage != nil {
			f.onFirstPage(f.firstPages)
		}
	} else {
		if f.fail != nil {
			return model.Page{}, f.fail
		}
		var err error
		if start, err = strconv.Atoi(token); err != nil {
			return model.Page{}, errors.New("bad token")
		}
	}

	end := min(start+f.pageSize, len(f.videos))
	page := model.Page{
		Videos:   append([]model.Video{}, f.videos[start:end]...),
		Total:    len(f.videos),
		HasTotal: true,
	}
	if f.total != nil {
		page.Total = *f.total
	}
	if (token == "" && f.omitFirstTotal) || (token != "" && f.omitNextTotal) {
		page.Total, page.HasTotal = 0, false
	}
	if end < len(f.videos) {
		page.NextPageToken = strconv.Itoa(end)
	}

	return page, nil
}

type fakeSink struct {
	subs  []model.Submission
	calls int
	fail  map[string]bool
}

func (s *fakeSink) Submit(_ context.Context, sub model.Submission) error {
	s.calls++
	if s.fail[sub.URL] || s.fail["*"] {
		return errors.New("reddit said no")
	}
	s.subs = append(s.subs, sub)

	return nil
}

func fresh(id, title string) model.Video {
	return model.Video{ID: model.YoutubeVideoID(id), Title: title, PublishedAt: today.Add(-time.Hour)}
}

var testChannel = model.Channel{Name: "Game Grumps", Playlist: "UU9CuvdOVfMPvKCiwdGKL3cQ", Target: "gamegrumps"}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return today }

	return opts
}

func newTestTracker(t *testing.T, feed *fakeFeed, sink *fakeSink, opts Options) (*Tracker, *bytes.Buffer) {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr, err := New(context.Background(), testChannel, feed, sink, opts, logger)
	require.NoError(t, err)

	return tr, logs
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
