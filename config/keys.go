package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Keys are the credentials for YouTube and reddit.
type Keys struct {
	YoutubeAPIKey  string
	RedditID       string
	RedditSecret   string
	RedditAgent    string
	RedditUsername string
	RedditPassword string
}

var ErrInvalidKeys = errors.New("invalid keys")

// LoadKeys reads the keys file: one value per line, in the order YouTube
// API key, reddit client id, secret, user agent, username, password.
// Environment variables override single values. A missing file is only
// accepted when the environment supplies every value.
func LoadKeys(path string) (Keys, error) {
	var lines []string
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines = append(lines, strings.TrimSpace(scanner.Text()))
		}
		if err := scanner.Err(); err != nil {
			return Keys{}, fmt.Errorf("reading keys file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Keys{}, fmt.Errorf("opening keys file %s: %w", path, err)
	}

	line := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	keys := Keys{
		YoutubeAPIKey:  getParam("YOUTUBE_API_KEY", line(0)),
		RedditID:       getParam("REDDIT_ID", line(1)),
		RedditSecret:   getParam("REDDIT_SECRET", line(2)),
		RedditAgent:    getParam("REDDIT_AGENT", line(3)),
		RedditUsername: getParam("REDDIT_USERNAME", line(4)),
		RedditPassword: getParam("REDDIT_PASSWORD", line(5)),
	}

	var missing []string
	for _, k := range []struct {
		name  string
		value string
	}{
		{"youtube api key", keys.YoutubeAPIKey},
		{"reddit id", keys.RedditID},
		{"reddit secret", keys.RedditSecret},
		{"reddit user agent", keys.RedditAgent},
		{"reddit username", keys.RedditUsername},
		{"reddit password", keys.RedditPassword},
	} {
		if k.value == "" {
			missing = append(missing, k.name)
		}
	}
	if len(missing) > 0 {
		return Keys{}, fmt.Errorf("%w: %s missing from %s", ErrInvalidKeys, strings.Join(missing, ", "), path)
	}

	return keys, nil
}
