package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ewintr.nl/uploadwatch/config"
	"ewintr.nl/uploadwatch/fetch"
	"ewintr.nl/uploadwatch/model"
	"ewintr.nl/uploadwatch/publish"
	"ewintr.nl/uploadwatch/retry"
	"ewintr.nl/uploadwatch/schedule"
	"ewintr.nl/uploadwatch/storage"
	"ewintr.nl/uploadwatch/track"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func newRunCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the configured channels and post new uploads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "check every channel once and exit")

	return cmd
}

func runWatch(ctx context.Context, once bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(os.Stderr)

	settings, keys, err := loadSettings()
	if err != nil {
		return err
	}

	ytClient, err := youtube.NewService(ctx, option.WithAPIKey(keys.YoutubeAPIKey))
	if err != nil {
		return fmt.Errorf("unable to create youtube service: %w", err)
	}
	pager := fetch.NewPager(fetch.NewYoutube(ytClient, settings.PageSize), retryPolicy(settings), logger)

	rdt, err := publish.NewReddit(publish.RedditInfo{
		ID:        keys.RedditID,
		Secret:    keys.RedditSecret,
		UserAgent: keys.RedditAgent,
		Username:  keys.RedditUsername,
		Password:  keys.RedditPassword,
	})
	if err != nil {
		return err
	}
	var sink publish.Sink = publish.NewLimited(rdt, settings.SubmitInterval)

	if settings.PostgresDSN != "" {
		postgres, err := storage.OpenPostgres(ctx, settings.PostgresDSN)
		if err != nil {
			return fmt.Errorf("unable to connect to postgres: %w", err)
		}
		defer postgres.Close()
		sink = publish.NewRecorded(sink, postgres, logger)
	}

	trackers, err := startTrackers(ctx, settings, pager, sink, logger)
	if stopped(ctx, err) {
		logger.Info("service stopped during startup")
		return nil
	}
	if err != nil {
		return err
	}

	scheduler := schedule.New(trackers, settings.Interval, settings.Offset, logger)
	if once {
		err = scheduler.RunOnce(ctx)
	} else {
		err = scheduler.Run(ctx)
	}
	if stopped(ctx, err) {
		logger.Info("service stopped")
		return nil
	}

	return err
}

// stopped reports whether err only says that ctx, the process lifetime,
// was canceled.
func stopped(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled)
}

// startTrackers takes the initial snapshot of every channel concurrently.
// Order of the result follows the config.
func startTrackers(ctx context.Context, settings config.Settings, pages track.PageFetcher, sink track.Sink, logger *slog.Logger) ([]schedule.Tracker, error) {
	trackers := make([]schedule.Tracker, len(settings.Channels))
	opts := trackOptions(settings)

	g, gctx := errgroup.WithContext(ctx)
	for i, ch := range settings.Channels {
		i, ch := i, ch
		g.Go(func() error {
			tr, err := track.New(gctx, model.Channel{
				Name:     ch.Name,
				Playlist: model.PlaylistID(ch.Playlist),
				Target:   ch.Subreddit,
			}, pages, sink, opts, logger)
			if err != nil {
				return err
			}
			trackers[i] = tr

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return trackers, nil
}

func trackOptions(s config.Settings) track.Options {
	return track.Options{
		QueueLimit:       s.QueueLimit,
		Backpressure:     track.Backpressure(s.Backpressure),
		StaleGuard:       s.StaleGuard,
		WalkRetries:      s.WalkRetries,
		ResyncLimit:      s.ResyncLimit,
		SnapshotRestarts: s.SnapshotRestarts,
	}
}

func retryPolicy(s config.Settings) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxBackoff = s.MaxBackoff
	policy.AttemptTimeout = s.AttemptTimeout

	return policy
}
