package publish

import (
	"context"
	"fmt"

	"ewintr.nl/uploadwatch/model"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

type RedditInfo struct {
	ID        string
	Secret    string
	UserAgent string
	Username  string
	Password  string
}

type linkSubmitter interface {
	SubmitLink(ctx context.Context, opts reddit.SubmitLinkRequest) (*reddit.Submitted, *reddit.Response, error)
}

type Reddit struct {
	posts linkSubmitter
}

// NewReddit logs in with a script app's credentials. Extra options go to
// the client after the user agent.
func NewReddit(info RedditInfo, opts ...reddit.Opt) (*Reddit, error) {
	client, err := reddit.NewClient(reddit.Credentials{
		ID:       info.ID,
		Secret:   info.Secret,
		Username: info.Username,
		Password: info.Password,
	}, append([]reddit.Opt{reddit.WithUserAgent(info.UserAgent)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create reddit client: %w", err)
	}

	return &Reddit{posts: client.Post}, nil
}

// Submit posts the link to the subreddit named by the target. Resubmitting
// a link that was posted before is allowed, so a retry after an unclear
// failure is not rejected as a duplicate.
func (r *Reddit) Submit(ctx context.Context, sub model.Submission) error {
	sendReplies := !sub.SuppressNotifications
	if _, _, err := r.posts.SubmitLink(ctx, reddit.SubmitLinkRequest{
		Subreddit:   sub.Target,
		Title:       sub.Title,
		URL:         sub.URL,
		Resubmit:    sub.AllowDuplicate,
		SendReplies: &sendReplies,
	}); err != nil {
		return fmt.Errorf("failed to submit %q to r/%s: %w", sub.Title, sub.Target, err)
	}

	return nil
}
