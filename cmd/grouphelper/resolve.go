package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"grouphelper/internal/domain"
	"grouphelper/internal/metrics"
	"grouphelper/internal/reddit"
)

func resolveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "resolve <reddit-post-url>",
		Short: "Dry-run the media pipeline for one link and print what would be sent",
		Long: `Fetches the post, classifies its media, queries Imgur and runs ffmpeg
exactly like the bot would, then prints the resulting send action. Nothing is
sent to Telegram. With --output, a remuxed video is written to that file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := args[0]
			if !reddit.IsPostURL(link) {
				return fmt.Errorf("not a reddit post link: %s", link)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			cfg, err := loadConfig(ctx, false)
			if err != nil {
				return err
			}

			intent, err := buildPipeline(cfg, metrics.New()).Resolve(ctx, link)
			if err != nil {
				fmt.Printf("outcome: %s\n", domain.Outcome(err))
				return err
			}

			fmt.Printf("action:  %s\n", intent.Action)
			if intent.URL != "" {
				fmt.Printf("url:     %s\n", intent.URL)
			}
			if v := intent.Video; v != nil {
				fmt.Printf("video:   %s, %dx%d, %ds\n", humanSize(int64(len(v.Data))), v.Width, v.Height, v.Duration)
				if output != "" {
					if err := os.WriteFile(output, v.Data, 0o644); err != nil {
						return err
					}
					fmt.Printf("written: %s\n", output)
				}
			}
			fmt.Printf("caption: %q\n", intent.Caption)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write a remuxed video to this file")
	return cmd
}
