package model

// Channel is a monitored uploads playlist and the subreddit its new videos
// are posted to.
type Channel struct {
	Name     string
	Playlist PlaylistID
	Target   string
}

type Submission struct {
	Target                string
	Title                 string
	URL                   string
	AllowDuplicate        bool
	SuppressNotifications bool
}
