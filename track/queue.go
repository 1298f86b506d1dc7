package track

import (
	"context"
	"fmt"

	"ewintr.nl/uploadwatch/model"
	"golang.org/x/exp/slog"
)

// Pending is a detected video that has not been posted yet.
type Pending struct {
	ID    model.YoutubeVideoID
	Title string
	URL   string
}

// Queue holds videos waiting to be posted, in detection order. A video id
// is present at most once.
type Queue struct {
	order  []model.YoutubeVideoID
	items  map[model.YoutubeVideoID]Pending
	limit  int
	policy Backpressure
}

func NewQueue(limit int, policy Backpressure) *Queue {
	return &Queue{
		items:  make(map[model.YoutubeVideoID]Pending),
		limit:  limit,
		policy: policy,
	}
}

// Enqueue adds the video unless it is already waiting. It reports whether
// the queue changed.
func (q *Queue) Enqueue(v model.Video) bool {
	if _, ok := q.items[v.ID]; ok {
		return false
	}
	q.items[v.ID] = Pending{ID: v.ID, Title: v.Title, URL: v.URL()}
	q.order = append(q.order, v.ID)

	return true
}

func (q *Queue) Len() int { return len(q.order) }

func (q *Queue) Contains(id model.YoutubeVideoID) bool {
	_, ok := q.items[id]
	return ok
}

// Pending returns the waiting videos, oldest first.
func (q *Queue) Pending() []Pending {
	res := make([]Pending, 0, len(q.order))
	for _, id := range q.order {
		res = append(res, q.items[id])
	}

	return res
}

// Retain removes every video for which keep returns false and returns the
// removed ones.
func (q *Queue) Retain(keep func(model.YoutubeVideoID) bool) []Pending {
	var dropped []Pending
	order := q.order[:0]
	for _, id := range q.order {
		if keep(id) {
			order = append(order, id)
			continue
		}
		dropped = append(dropped, q.items[id])
		delete(q.items, id)
	}
	q.order = order

	return dropped
}

func (q *Queue) remove(id model.YoutubeVideoID) {
	delete(q.items, id)
	for i, o := range q.order {
		if o == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// Flush tries to post every waiting video once. A video leaves the queue
// only after the sink accepted it; a failed one stays for the next flush
// and does not stop the others. It returns the number of posted videos.
//
// Posting a large burst risks the sink's anti-abuse measures, so with more
// than limit videos waiting the fatal policy posts nothing and returns
// ErrBackpressure, while the cap policy posts only the oldest limit videos.
func (q *Queue) Flush(ctx context.Context, sink Sink, target string, logger *slog.Logger) (int, error) {
	batch := q.Pending()
	if q.limit > 0 && len(batch) > q.limit {
		ids := make([]string, 0, len(batch))
		for _, p := range batch {
			ids = append(ids, string(p.ID))
		}
		if q.policy != BackpressureCap {
			logger.Error("more videos detected than may be posted at once",
				slog.Int("queued", len(batch)),
				slog.Int("limit", q.limit),
				slog.Any("videos", ids),
			)
			return 0, fmt.Errorf("%w: %d waiting, limit is %d", ErrBackpressure, len(batch), q.limit)
		}

		logger.Warn("more videos detected than may be posted at once, posting oldest only",
			slog.Int("queued", len(batch)),
			slog.Int("limit", q.limit),
			slog.Any("videos", ids),
		)
		batch = batch[:q.limit]
	}

	posted := 0
	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		err := sink.Submit(ctx, model.Submission{
			Target:                target,
			Title:                 p.Title,
			URL:                   p.URL,
			AllowDuplicate:        true,
			SuppressNotifications: true,
		})
		if err != nil {
			logger.Error("failed to submit video",
				slog.String("video", string(p.ID)),
				slog.String("title", p.Title),
				slog.String("error", err.Error()),
			)
			continue
		}

		q.remove(p.ID)
		posted++
		logger.Info("submitted video", slog.String("video", string(p.ID)), slog.String("title", p.Title))
	}

	return posted, nil
}
