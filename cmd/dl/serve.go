package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desklinehq/deskline/internal/api"
	"github.com/desklinehq/deskline/internal/config"
	"github.com/desklinehq/deskline/internal/digest"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noDigest   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Deskline API server",
		Long:  "Launches the JSON API server and, when chat credentials are configured, the scheduled digest poster.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noDigest)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "deskline.yaml", "path to Deskline config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noDigest, "no-digest", false, "disable the scheduled digest")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noDigest bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.HTTP.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if !noDigest {
		stop, err := startDigest(ctx, cmd, cfg, gormDB)
		if err != nil {
			return err
		}
		if stop != nil {
			defer stop()
		}
	}

	return api.Start(ctx, api.StartOpts{
		DB:          gormDB,
		Port:        port,
		MaxCapacity: cfg.MaxCapacity,
		Policy:      policyFromConfig(cfg),
		Out:         cmd.OutOrStdout(),
	})
}

// startDigest schedules the workload digest for every configured chat channel.
// Returns a nil stop func when no channel has credentials.
func startDigest(ctx context.Context, cmd *cobra.Command, cfg *config.Config, gormDB *gorm.DB) (func(), error) {
	posters, names, err := buildPosters(cfg)
	if err != nil {
		return nil, err
	}
	if len(posters) == 0 {
		return nil, nil
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	c := cron.New()
	_, err = c.AddFunc(cfg.Digest.Schedule, func() {
		r, err := digest.Build(gormDB, cfg.MaxCapacity)
		if err != nil {
			fmt.Fprintf(errOut, "digest: %v\n", err)
			return
		}
		for i, p := range posters {
			if err := p.Post(ctx, r); err != nil {
				fmt.Fprintf(errOut, "digest: post to %s: %v\n", names[i], err)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", cfg.Digest.Schedule, err)
	}

	c.Start()
	fmt.Fprintf(out, "Digest scheduled (%s) for: %v\n", cfg.Digest.Schedule, names)
	return func() { c.Stop() }, nil
}

// buildPosters creates a poster for each chat platform with credentials.
func buildPosters(cfg *config.Config) ([]digest.Poster, []string, error) {
	var posters []digest.Poster
	var names []string

	if cfg.Digest.Slack.BotToken != "" {
		p, err := digest.NewSlackPoster(digest.SlackOpts{
			BotToken: cfg.Digest.Slack.BotToken,
			Channel:  cfg.Digest.Slack.Channel,
		})
		if err != nil {
			return nil, nil, err
		}
		posters = append(posters, p)
		names = append(names, "slack")
	}

	if cfg.Digest.Discord.BotToken != "" {
		p, err := digest.NewDiscordPoster(digest.DiscordOpts{
			BotToken:  cfg.Digest.Discord.BotToken,
			ChannelID: cfg.Digest.Discord.ChannelID,
		})
		if err != nil {
			return nil, nil, err
		}
		posters = append(posters, p)
		names = append(names, "discord")
	}

	return posters, names, nil
}
