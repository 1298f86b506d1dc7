package track

import (
	"context"

	"ewintr.nl/uploadwatch/model"
	"golang.org/x/exp/slog"
)

// Detect returns the videos that appeared in the playlist since the last
// call. Every returned video is recorded as known before Detect returns, so
// it is never reported twice.
//
// A reported count below the known count, a stray video that was not
// published today, or a walk that keeps running out of pages before the
// expected number of new videos is found all cause the snapshot to be
// rebuilt.
func (t *Tracker) Detect(ctx context.Context) ([]model.Video, error) {
	t.resynced = false
	logger := t.log(ctx)

	first, err := t.pages.FetchPage(ctx, t.channel.Playlist, "")
	if err != nil {
		return nil, err
	}

	switch {
	case !first.HasTotal:
		logger.Warn("playlist did not report a video count, skipping check")
		return nil, nil
	case first.Total == t.state.count:
		return nil, nil
	case first.Total < t.state.count:
		logger.Warn("video removed by channel, reinitializing",
			slog.Int("known", t.state.count),
			slog.Int("reported", first.Total),
		)
		return nil, t.resync(ctx)
	}

	delta := first.Total - t.state.count
	t.state.count = first.Total

	var found []model.Video
	page := first
	for attempt := 0; ; attempt++ {
		batch, stray, err := t.walk(ctx, page, delta-len(found))
		if err != nil {
			return found, err
		}
		t.commit(batch)
		found = append(found, batch...)

		if stray != nil {
			logger.Warn("found a stray video not uploaded today, reinitializing",
				slog.String("video", string(stray.ID)),
				slog.Time("published", stray.PublishedAt),
			)
			return t.resyncKeeping(ctx, found)
		}
		if len(found) >= delta {
			return found, nil
		}
		if attempt >= t.opts.WalkRetries {
			logger.Warn("new videos still missing after retries, reinitializing",
				slog.Int("found", len(found)),
				slog.Int("expected", delta),
			)
			return t.resyncKeeping(ctx, found)
		}

		logger.Warn("loop reached while searching for latest video",
			slog.Int("loop", attempt+1),
			slog.Int("found", len(found)),
			slog.Int("expected", delta),
		)
		if page, err = t.pages.FetchPage(ctx, t.channel.Playlist, ""); err != nil {
			return found, err
		}
	}
}

// walk collects unknown videos starting at page until at least want are
// found or the pages run out. Whole pages are consumed. Nothing is recorded
// here: on error the batch is discarded, so an interrupted walk leaves the
// known set untouched. A stray video stops the walk and is returned
// separately.
func (t *Tracker) walk(ctx context.Context, page model.Page, want int) ([]model.Video, *model.Video, error) {
	var batch []model.Video
	seen := make(map[model.YoutubeVideoID]struct{})
	for {
		for _, v := range page.Videos {
			if _, ok := seen[v.ID]; ok || t.state.knows(v.ID) {
				continue
			}
			if t.opts.StaleGuard && !v.PublishedOn(t.opts.Clock()) {
				stray := v
				return batch, &stray, nil
			}
			seen[v.ID] = struct{}{}
			batch = append(batch, v)
		}

		if len(batch) >= want || page.Last() {
			return batch, nil, nil
		}

		var err error
		if page, err = t.pages.FetchPage(ctx, t.channel.Playlist, page.NextPageToken); err != nil {
			return nil, nil, err
		}
	}
}

func (t *Tracker) commit(videos []model.Video) {
	for _, v := range videos {
		t.state.known[v.ID] = struct{}{}
	}
}

func (t *Tracker) resync(ctx context.Context) error {
	t.resynced = true

	return t.Snapshot(ctx)
}

// resyncKeeping rebuilds the snapshot and returns the videos from found that
// survived it.
func (t *Tracker) resyncKeeping(ctx context.Context, found []model.Video) ([]model.Video, error) {
	if err := t.resync(ctx); err != nil {
		return found, err
	}

	kept := found[:0]
	for _, v := range found {
		if t.state.knows(v.ID) {
			kept = append(kept, v)
		}
	}

	return kept, nil
}
