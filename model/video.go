package model

import (
	"fmt"
	"time"
)

const watchURL = "https://www.youtube.com/watch?v=%s"

type YoutubeVideoID string

type PlaylistID string

type Video struct {
	ID          YoutubeVideoID
	Title       string
	PublishedAt time.Time
}

// URL is the public watch link for the video.
func (v Video) URL() string {
	return fmt.Sprintf(watchURL, v.ID)
}

// PublishedOn reports whether the video was published on the same UTC
// calendar day as t.
func (v Video) PublishedOn(t time.Time) bool {
	vy, vm, vd := v.PublishedAt.UTC().Date()
	ty, tm, td := t.UTC().Date()

	return vy == ty && vm == tm && vd == td
}

// Page is one page of a playlist listing. Total is the item count the
// upstream reported alongside this page; it is only meaningful when
// HasTotal is set, continuation pages may leave it out.
type Page struct {
	Videos        []Video
	NextPageToken string
	Total         int
	HasTotal      bool
}

func (p Page) Last() bool {
	return p.NextPageToken == ""
}
