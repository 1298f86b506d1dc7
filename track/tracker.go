// Package track keeps the set of videos already seen in one uploads
// playlist and turns newly appeared videos into link submissions.
//
// A Tracker is built from a complete snapshot of the playlist. Every tick
// compares the reported item count with the last known count, walks the
// playlist for the difference and queues what it finds. When the upstream
// contradicts itself (the count drops, a walk cannot find the promised
// videos, or an old video shows up as new) the snapshot is rebuilt from
// scratch instead of patched.
package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ewintr.nl/uploadwatch/model"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

var (
	// ErrBackpressure means more videos are waiting than may be posted at once.
	ErrBackpressure = errors.New("too many videos queued")
	// ErrResyncLimit means the playlist kept contradicting itself over
	// consecutive ticks.
	ErrResyncLimit = errors.New("too many consecutive resynchronizations")
	// ErrSnapshotIncomplete means a full walk never reached the reported count.
	ErrSnapshotIncomplete = errors.New("snapshot incomplete")
)

type PageFetcher interface {
	FetchPage(ctx context.Context, playlistID model.PlaylistID, pageToken string) (model.Page, error)
}

type Sink interface {
	Submit(ctx context.Context, sub model.Submission) error
}

type Backpressure string

const (
	BackpressureFatal Backpressure = "fatal"
	BackpressureCap   Backpressure = "cap"
)

type Options struct {
	// QueueLimit is the largest number of videos posted in one flush.
	QueueLimit int
	// Backpressure decides what happens when more than QueueLimit are queued.
	Backpressure Backpressure
	// StaleGuard treats a new video not published today (UTC) as a sign of
	// upstream reordering.
	StaleGuard bool
	// WalkRetries is how many times a short walk is repeated before the
	// snapshot is rebuilt.
	WalkRetries int
	// ResyncLimit is how many consecutive ticks may end in a rebuild. Zero
	// means no limit.
	ResyncLimit int
	// SnapshotRestarts is how many times a snapshot walk may start over.
	// Zero means no limit.
	SnapshotRestarts int
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

func DefaultOptions() Options {
	return Options{
		QueueLimit:       3,
		Backpressure:     BackpressureFatal,
		StaleGuard:       true,
		WalkRetries:      5,
		ResyncLimit:      5,
		SnapshotRestarts: 10,
	}
}

// state is what a snapshot produces. It is replaced as a whole, never merged.
type state struct {
	count int
	known map[model.YoutubeVideoID]struct{}
}

func (s state) knows(id model.YoutubeVideoID) bool {
	_, ok := s.known[id]
	return ok
}

type Tracker struct {
	channel model.Channel
	pages   PageFetcher
	sink    Sink
	opts    Options
	logger  *slog.Logger

	state    state
	queue    *Queue
	resynced bool
	streak   int
}

// New builds a tracker with a complete snapshot of the channel's playlist.
func New(ctx context.Context, channel model.Channel, pages PageFetcher, sink Sink, opts Options, logger *slog.Logger) (*Tracker, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Backpressure == "" {
		opts.Backpressure = BackpressureFatal
	}

	t := &Tracker{
		channel: channel,
		pages:   pages,
		sink:    sink,
		opts:    opts,
		logger: logger.With(
			slog.String("channel", channel.Name),
			slog.String("playlist", string(channel.Playlist)),
		),
		queue: NewQueue(opts.QueueLimit, opts.Backpressure),
	}

	st, err := t.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize channel %s: %w", channel.Name, err)
	}
	t.state = st
	t.logger.Info("initialized channel", slog.Int("videos", st.count))

	return t, nil
}

func (t *Tracker) Channel() model.Channel { return t.channel }

// KnownCount is the last item count reported by the playlist.
func (t *Tracker) KnownCount() int { return t.state.count }

// KnownIDs returns the number of distinct videos seen.
func (t *Tracker) KnownIDs() int { return len(t.state.known) }

func (t *Tracker) Knows(id model.YoutubeVideoID) bool { return t.state.knows(id) }

func (t *Tracker) Queue() *Queue { return t.queue }

// Tick runs one poll: detect new videos, queue them and try to post
// everything that is queued. Returned errors are fatal for the polling loop;
// transient problems are handled inside.
func (t *Tracker) Tick(ctx context.Context) error {
	ctx = withTick(ctx, uuid.NewString())
	logger := t.log(ctx)

	videos, err := t.Detect(ctx)
	for _, v := range videos {
		if t.queue.Enqueue(v) {
			logger.Debug("queued video", slog.String("video", string(v.ID)), slog.String("title", v.Title))
		}
	}
	if err != nil {
		return err
	}

	if t.resynced {
		t.streak++
		if t.opts.ResyncLimit > 0 && t.streak > t.opts.ResyncLimit {
			return fmt.Errorf("%w: %d in a row for channel %s", ErrResyncLimit, t.streak, t.channel.Name)
		}
	} else {
		t.streak = 0
	}

	if t.queue.Len() == 0 {
		logger.Debug("no new uploads found")
		return nil
	}

	logger.Info("found new content", slog.Int("queued", t.queue.Len()))
	_, err = t.queue.Flush(ctx, t.sink, t.channel.Target, logger)

	return err
}

type tickKey struct{}

func withTick(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tickKey{}, id)
}

func (t *Tracker) log(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(tickKey{}).(string); ok {
		return t.logger.With(slog.String("tick", id))
	}

	return t.logger
}
