package track

import (
	"context"
	"testing"

	"ewintr.nl/uploadwatch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueue(t *testing.T) {
	q := NewQueue(3, BackpressureFatal)

	assert.True(t, q.Enqueue(fresh("a", "A")))
	assert.True(t, q.Enqueue(fresh("b", "B")))
	assert.False(t, q.Enqueue(fresh("a", "A again")))

	assert.Equal(t, []Pending{
		{ID: "a", Title: "A", URL: "https://www.youtube.com/watch?v=a"},
		{ID: "b", Title: "B", URL: "https://www.youtube.com/watch?v=b"},
	}, q.Pending())
}

func TestQueueRetain(t *testing.T) {
	q := NewQueue(3, BackpressureFatal)
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(fresh(id, id))
	}

	dropped := q.Retain(func(id model.YoutubeVideoID) bool { return id != "b" })

	require.Len(t, dropped, 1)
	assert.Equal(t, model.YoutubeVideoID("b"), dropped[0].ID)
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Contains("b"))
	assert.Equal(t, model.YoutubeVideoID("c"), q.Pending()[1].ID)
}

func TestQueueFlushKeepsFailures(t *testing.T) {
	q := NewQueue(3, BackpressureFatal)
	q.Enqueue(fresh("a", "A"))
	q.Enqueue(fresh("b", "B"))
	q.Enqueue(fresh("c", "C"))
	sink := &fakeSink{fail: map[string]bool{"https://www.youtube.com/watch?v=b": true}}

	posted, err := q.Flush(context.Background(), sink, "gamegrumps", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, posted)
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, []Pending{{ID: "b", Title: "B", URL: "https://www.youtube.com/watch?v=b"}}, q.Pending())
}

func TestQueueFailingItemStaysWithoutDuplicates(t *testing.T) {
	q := NewQueue(3, BackpressureFatal)
	sink := &fakeSink{fail: map[string]bool{"*": true}}

	for i := 0; i < 5; i++ {
		q.Enqueue(fresh("a", "A"))
		_, err := q.Flush(context.Background(), sink, "gamegrumps", discardLogger())
		require.NoError(t, err)
		assert.Equal(t, 1, q.Len())
	}
	assert.Equal(t, 5, sink.calls)

	sink.fail = nil
	_, err := q.Flush(context.Background(), sink, "gamegrumps", discardLogger())
	require.NoError(t, err)
	assert.Zero(t, q.Len())
	assert.Len(t, sink.subs, 1)
}

func TestQueueBackpressureFatal(t *testing.T) {
	q := NewQueue(3, BackpressureFatal)
	for _, id := range []string{"a", "b", "c", "d"} {
		q.Enqueue(fresh(id, id))
	}
	sink := &fakeSink{}

	posted, err := q.Flush(context.Background(), sink, "gamegrumps", discardLogger())

	assert.ErrorIs(t, err, ErrBackpressure)
	assert.Zero(t, posted)
	assert.Zero(t, sink.calls)
	assert.Equal(t, 4, q.Len())
}

func TestQueueBackpressureCap(t *testing.T) {
	q := NewQueue(3, BackpressureCap)
	for _, id := range []string{"a", "b", "c", "d"} {
		q.Enqueue(fresh(id, id))
	}
	sink := &fakeSink{}

	posted, err := q.Flush(context.Background(), sink, "gamegrumps", discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, posted)
	assert.Equal(t, []Pending{{ID: "d", Title: "d", URL: "https://www.youtube.com/watch?v=d"}}, q.Pending())
}

func TestQueueFlushCanceled(t *testing.T) {
	q := NewQueue(3, BackpressureFatal)
	q.Enqueue(fresh("a", "A"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Flush(ctx, &fakeSink{}, "gamegrumps", discardLogger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, q.Len())
}

func TestTickBackpressureTrip(t *testing.T) {
	feed := newFakeFeed(10)
	sink := &fakeSink{fail: map[string]bool{"*": true}}
	tr, _ := newTestTracker(t, feed, sink, testOptions())

	feed.add(fresh("a", "A"), fresh("b", "B"), fresh("c", "C"))
	require.NoError(t, tr.Tick(context.Background()))
	require.Equal(t, 3, tr.Queue().Len())
	calls := sink.calls

	feed.add(fresh("d", "D"))
	err := tr.Tick(context.Background())

	assert.ErrorIs(t, err, ErrBackpressure)
	assert.Equal(t, calls, sink.calls, "no flush attempted")
	assert.Equal(t, 4, tr.Queue().Len())
}
