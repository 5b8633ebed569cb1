package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quarrel-dev/upkeep/internal/api"
	"github.com/quarrel-dev/upkeep/internal/completion"
	"github.com/quarrel-dev/upkeep/internal/config"
	"github.com/quarrel-dev/upkeep/internal/db"
	"github.com/quarrel-dev/upkeep/internal/notify"
	"github.com/quarrel-dev/upkeep/internal/notify/discord"
	"github.com/quarrel-dev/upkeep/internal/notify/slack"
	"github.com/quarrel-dev/upkeep/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Upkeep API server",
		Long:  "Serves the triage and knowledge-base API, with the scheduled open-issues digest when configured. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to Upkeep config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	// Secrets (GEMINI_API_KEY, bot tokens) come from the environment; a
	// local .env is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Database.Name, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := completion.NewGeminiClient(ctx, cfg.Completion.Model)
	if err != nil {
		return err
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	orch, err := session.New(session.Opts{
		DB:       gormDB,
		Client:   client,
		Notifier: notifier,
		Language: cfg.Completion.Language,
	})
	if err != nil {
		return err
	}

	if cfg.Digest.Schedule != "" {
		digest, err := notify.NewDigest(gormDB, notifier, cfg.Digest.Schedule)
		if err != nil {
			return err
		}
		go digest.Run(ctx)
	}

	return api.Start(ctx, api.StartOpts{
		DB:           gormDB,
		Orchestrator: orch,
		Port:         cfg.Server.Port,
		Out:          cmd.OutOrStdout(),
	})
}

// buildNotifier assembles the fanout over every configured adapter. With no
// adapters configured the fanout is an empty no-op.
func buildNotifier(cfg config.NotifyConfig) (*notify.Fanout, error) {
	var notifiers []notify.Notifier

	if cfg.Slack.BotToken != "" {
		s, err := slack.New(slack.Opts{BotToken: cfg.Slack.BotToken, Channel: cfg.Slack.Channel})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, s)
	}
	if cfg.Discord.Token != "" {
		d, err := discord.New(discord.Opts{Token: cfg.Discord.Token, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, d)
	}
	return notify.NewFanout(notifiers...), nil
}
