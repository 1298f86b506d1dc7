package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ewintr.nl/uploadwatch/model"
	"ewintr.nl/uploadwatch/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

const MaxPageSize = 50

// ErrInvalidRequest marks a listing call that can never succeed as made.
var ErrInvalidRequest = errors.New("invalid playlist request")

type Youtube struct {
	Client   *youtube.Service
	PageSize int
}

func NewYoutube(client *youtube.Service, pageSize int) *Youtube {
	return &Youtube{Client: client, PageSize: pageSize}
}

// ListPage fetches one page of the playlist. An empty pageToken requests
// the first page.
func (y *Youtube) ListPage(ctx context.Context, playlistID model.PlaylistID, pageToken string) (model.Page, error) {
	if playlistID == "" {
		return model.Page{}, retry.Permanent(fmt.Errorf("%w: empty playlist id", ErrInvalidRequest))
	}
	if y.PageSize < 1 || y.PageSize > MaxPageSize {
		return model.Page{}, retry.Permanent(fmt.Errorf("%w: page size %d not in 1..%d", ErrInvalidRequest, y.PageSize, MaxPageSize))
	}

	call := y.Client.PlaylistItems.
		List([]string{"snippet", "contentDetails"}).
		PlaylistId(string(playlistID)).
		MaxResults(int64(y.PageSize)).
		Context(ctx)

	if pageToken != "" {
		call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		return model.Page{}, err
	}

	page := model.Page{
		Videos:        make([]model.Video, 0, len(response.Items)),
		NextPageToken: response.NextPageToken,
	}
	if response.PageInfo != nil {
		page.Total = int(response.PageInfo.TotalResults)
		page.HasTotal = true
	}
	for _, item := range response.Items {
		if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
			continue
		}
		video := model.Video{
			ID:          model.YoutubeVideoID(item.ContentDetails.VideoId),
			PublishedAt: parseTime(item.ContentDetails.VideoPublishedAt),
		}
		if item.Snippet != nil {
			video.Title = item.Snippet.Title
			if video.PublishedAt.IsZero() {
				video.PublishedAt = parseTime(item.Snippet.PublishedAt)
			}
		}
		page.Videos = append(page.Videos, video)
	}

	return page, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t
}

// IsTransient reports whether a listing error may go away by asking again.
// Malformed requests and unknown playlists will not.
func IsTransient(err error) bool {
	if !retry.IsRetryable(err) || errors.Is(err, ErrInvalidRequest) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusNotFound:
			return false
		}
	}

	return true
}
