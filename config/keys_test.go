package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeys(t *testing.T) {
	path := writeFile(t, "keys.txt", "yt-key\nreddit-id\nreddit-secret\nbot/1.0\nuser\n pass \n")

	keys, err := LoadKeys(path)
	require.NoError(t, err)

	assert.Equal(t, Keys{
		YoutubeAPIKey:  "yt-key",
		RedditID:       "reddit-id",
		RedditSecret:   "reddit-secret",
		RedditAgent:    "bot/1.0",
		RedditUsername: "user",
		RedditPassword: "pass",
	}, keys)
}

func TestLoadKeysEnvOverride(t *testing.T) {
	path := writeFile(t, "keys.txt", "yt-key\nreddit-id\nreddit-secret\nbot/1.0\nuser\npass\n")
	t.Setenv("REDDIT_PASSWORD", "from-env")

	keys, err := LoadKeys(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", keys.RedditPassword)
	assert.Equal(t, "yt-key", keys.YoutubeAPIKey)
}

func TestLoadKeysTooShort(t *testing.T) {
	path := writeFile(t, "keys.txt", "yt-key\nreddit-id\n")

	_, err := LoadKeys(path)
	require.ErrorIs(t, err, ErrInvalidKeys)
	assert.Contains(t, err.Error(), "reddit secret")
}

func TestLoadKeysMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")

	_, err := LoadKeys(path)
	assert.ErrorIs(t, err, ErrInvalidKeys)

	for k, v := range map[string]string{
		"YOUTUBE_API_KEY": "a",
		"REDDIT_ID":       "b",
		"REDDIT_SECRET":   "c",
		"REDDIT_AGENT":    "d",
		"REDDIT_USERNAME": "e",
		"REDDIT_PASSWORD": "f",
	} {
		t.Setenv(k, v)
	}
	keys, err := LoadKeys(path)
	require.NoError(t, err)
	assert.Equal(t, "a", keys.YoutubeAPIKey)
}
