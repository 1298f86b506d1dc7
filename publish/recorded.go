package publish

import (
	"context"
	"time"

	"ewintr.nl/uploadwatch/model"
	"ewintr.nl/uploadwatch/storage"
	"golang.org/x/exp/slog"
)

// Recorded writes every accepted submission to a log. A failure to record
// is reported but does not turn a successful post into a failed one, which
// would make it be posted again.
type Recorded struct {
	next   Sink
	log    storage.SubmissionLog
	logger *slog.Logger
	now    func() time.Time
}

func NewRecorded(next Sink, log storage.SubmissionLog, logger *slog.Logger) *Recorded {
	return &Recorded{
		next:   next,
		log:    log,
		logger: logger,
		now:    time.Now,
	}
}

func (r *Recorded) Submit(ctx context.Context, sub model.Submission) error {
	if err := r.next.Submit(ctx, sub); err != nil {
		return err
	}

	if err := r.log.Record(ctx, sub, r.now()); err != nil {
		r.logger.Warn("failed to record submission",
			slog.String("url", sub.URL),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
