package fetch

import (
	"context"
	"time"

	"ewintr.nl/uploadwatch/model"
	"ewintr.nl/uploadwatch/retry"
	"golang.org/x/exp/slog"
)

type PageReader interface {
	ListPage(ctx context.Context, playlistID model.PlaylistID, pageToken string) (model.Page, error)
}

// Pager fetches playlist pages and keeps asking until the upstream answers.
// Re-reading a page is harmless, so transient failures are retried without
// limit.
type Pager struct {
	reader PageReader
	policy retry.Policy
	logger *slog.Logger
}

func NewPager(reader PageReader, policy retry.Policy, logger *slog.Logger) *Pager {
	if policy.Classifier == nil {
		policy.Classifier = IsTransient
	}

	return &Pager{
		reader: reader,
		policy: policy,
		logger: logger,
	}
}

func (p *Pager) FetchPage(ctx context.Context, playlistID model.PlaylistID, pageToken string) (model.Page, error) {
	policy := p.policy
	policy.OnRetry = func(attempt int, backoff time.Duration, err error) {
		p.logger.Warn("connection error while getting playlist items",
			slog.String("playlist", string(playlistID)),
			slog.Bool("first_page", pageToken == ""),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
	}

	var page model.Page
	err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		page, err = p.reader.ListPage(ctx, playlistID, pageToken)
		return err
	})
	if err != nil {
		return model.Page{}, err
	}

	p.logger.Debug("fetched playlist page",
		slog.String("playlist", string(playlistID)),
		slog.Int("count", len(page.Videos)),
		slog.Int("total", page.Total),
		slog.Bool("last", page.Last()),
	)

	return page, nil
}
