package publish

import (
	"context"
	"fmt"
	"time"

	"ewintr.nl/uploadwatch/model"
	"golang.org/x/time/rate"
)

// Limited spaces out submissions to the wrapped sink. One Limited is shared
// by every channel posting to the same account, so the spacing holds across
// channels.
type Limited struct {
	next    Sink
	limiter *rate.Limiter
}

func NewLimited(next Sink, every time.Duration) *Limited {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}

	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (l *Limited) Submit(ctx context.Context, sub model.Submission) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting to submit: %w", err)
	}

	return l.next.Submit(ctx, sub)
}
