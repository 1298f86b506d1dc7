package storage

import (
	"context"
	"time"

	"ewintr.nl/uploadwatch/model"
)

// SubmissionLog keeps an audit trail of posted videos. It is write only;
// nothing reads it back to decide what to post.
type SubmissionLog interface {
	Record(ctx context.Context, sub model.Submission, at time.Time) error
}
