package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config and keys without contacting any service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _, err := loadSettings()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "polling every %s at offset %s\n", settings.Interval, settings.Offset)
			for _, ch := range settings.Channels {
				fmt.Fprintf(out, "%s (%s) -> r/%s\n", ch.Name, ch.Playlist, ch.Subreddit)
			}
			if settings.PostgresDSN != "" {
				fmt.Fprintln(out, "recording submissions in postgres")
			}

			return nil
		},
	}
}
