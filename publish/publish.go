// Package publish posts detected videos to their destination and holds
// the policies shared by every channel that posts there.
package publish

import (
	"context"

	"ewintr.nl/uploadwatch/model"
)

// Sink submits one link. Implementations are safe for concurrent use.
type Sink interface {
	Submit(ctx context.Context, sub model.Submission) error
}
