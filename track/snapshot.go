package track

import (
	"context"
	"fmt"

	"ewintr.nl/uploadwatch/model"
	"golang.org/x/exp/slog"
)

// Snapshot rebuilds the known videos from scratch and replaces the current
// state in one step. Videos still queued but gone from the playlist are
// dropped.
func (t *Tracker) Snapshot(ctx context.Context) error {
	st, err := t.snapshot(ctx)
	if err != nil {
		return err
	}
	t.replace(ctx, st)

	return nil
}

func (t *Tracker) snapshot(ctx context.Context) (state, error) {
	for restart := 0; ; restart++ {
		st, complete, err := t.walkAll(ctx)
		if err != nil {
			return state{}, err
		}
		if complete {
			return st, nil
		}
		if t.opts.SnapshotRestarts > 0 && restart >= t.opts.SnapshotRestarts {
			return state{}, fmt.Errorf("%w: found %d of %d videos after %d restarts", ErrSnapshotIncomplete, len(st.known), st.count, restart)
		}

		t.log(ctx).Warn("loop reached while generating video list",
			slog.Int("restart", restart+1),
			slog.Int("found", len(st.known)),
			slog.Int("expected", st.count),
		)
	}
}

// walkAll reads pages until the collected ids cover the most recently
// reported total. Pages without a total keep the previous one. It reports
// false when the pages ran out first, or when no page reported a total.
func (t *Tracker) walkAll(ctx context.Context) (state, bool, error) {
	st := state{known: make(map[model.YoutubeVideoID]struct{})}

	token := ""
	reported := false
	for {
		page, err := t.pages.FetchPage(ctx, t.channel.Playlist, token)
		if err != nil {
			return state{}, false, err
		}

		if page.HasTotal {
			st.count = page.Total
			reported = true
		}
		for _, v := range page.Videos {
			st.known[v.ID] = struct{}{}
		}
		if reported && len(st.known) >= st.count {
			return st, true, nil
		}
		if page.Last() {
			return st, false, nil
		}
		token = page.NextPageToken
	}
}

func (t *Tracker) replace(ctx context.Context, st state) {
	t.state = st
	dropped := t.queue.Retain(func(id model.YoutubeVideoID) bool {
		return st.knows(id)
	})
	for _, p := range dropped {
		t.log(ctx).Warn("dropped queued video no longer in playlist",
			slog.String("video", string(p.ID)),
			slog.String("title", p.Title),
		)
	}
}
