package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/backend"
	"github.com/zulandar/chatsync/internal/config"
	"github.com/zulandar/chatsync/internal/db"
	"github.com/zulandar/chatsync/internal/grouping"
	"github.com/zulandar/chatsync/internal/journal"
	"github.com/zulandar/chatsync/internal/models"
	"github.com/zulandar/chatsync/internal/notify"
	"github.com/zulandar/chatsync/internal/notify/discord"
	"github.com/zulandar/chatsync/internal/notify/slack"
	"github.com/zulandar/chatsync/internal/pipeline"
	"github.com/zulandar/chatsync/internal/retry"
	"github.com/zulandar/chatsync/internal/store"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// app is the wired engine shared by the commands.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	author     *models.UserRef
	store      *store.Store
	journal    *journal.Journal
	backend    *backend.Client
	pipeline   *pipeline.Pipeline
	visibility *notify.VisibilityState
	persisted  *notify.Persisted
	dispatcher *notify.Dispatcher
}

// connectFromConfig loads the config file and opens the journal database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	return cfg, gormDB, nil
}

// loadApp wires the engine from the config file at configPath.
func loadApp(configPath string) (*app, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, gormDB)
}

func newApp(cfg *config.Config, gormDB *gorm.DB) (*app, error) {
	a := &app{
		cfg: cfg,
		db:  gormDB,
		author: &models.UserRef{
			Email:     cfg.Agent.Email,
			FirstName: cfg.Agent.FirstName,
			LastName:  cfg.Agent.LastName,
		},
		store: store.New(grouping.New(cfg.Location())),
		// The console starts hidden until an operator reports otherwise.
		visibility: notify.NewVisibility(true),
	}

	var err error
	if a.journal, err = journal.New(gormDB); err != nil {
		return nil, err
	}
	if a.persisted, err = notify.NewPersisted(gormDB); err != nil {
		return nil, err
	}

	a.backend, err = backend.New(backend.Opts{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.BackendTimeout(),
	})
	if err != nil {
		return nil, err
	}

	a.pipeline, err = pipeline.New(pipeline.Opts{
		Store:     a.store,
		Transport: a.backend,
		Author:    a.author,
		Journal:   a.journal,
		Retry: retry.Options{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay(),
		},
	})
	if err != nil {
		return nil, err
	}

	desktop, err := desktopChannel(cfg.Notify)
	if err != nil {
		return nil, err
	}
	a.dispatcher, err = notify.NewDispatcher(notify.Opts{
		Context:    notify.Context(cfg.Notify.Context),
		Visibility: a.visibility,
		Sound:      &notify.CommandSound{Command: cfg.Notify.SoundCommand},
		Desktop:    desktop,
		Mobile:     a.persisted,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// desktopChannel builds the bus of window sinks: the local command plus
// any configured chat relays.
func desktopChannel(cfg config.NotifyConfig) (*notify.Bus, error) {
	bus := notify.NewBus(&notify.CommandSink{Command: cfg.WindowCommand})

	if cfg.Slack.BotToken != "" {
		relay, err := slack.New(slack.RelayOpts{
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		bus.AddSink(relay)
	}
	if cfg.Discord.BotToken != "" {
		relay, err := discord.New(discord.RelayOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.Channel,
		})
		if err != nil {
			return nil, err
		}
		bus.AddSink(relay)
	}
	return bus, nil
}

// containerFlags resolves the --room / --discussion pair to a container.
func containerFlags(room, discussion string) (models.Container, error) {
	switch {
	case room != "" && discussion != "":
		return models.Container{}, fmt.Errorf("--room and --discussion are mutually exclusive")
	case room != "":
		return models.Container{Kind: models.KindRoom, UUID: room}, nil
	case discussion != "":
		return models.Container{Kind: models.KindDiscussion, UUID: discussion}, nil
	}
	return models.Container{}, fmt.Errorf("one of --room or --discussion is required")
}

func addContainerFlags(cmd *cobra.Command, room, discussion *string) {
	cmd.Flags().StringVar(room, "room", "", "room uuid")
	cmd.Flags().StringVar(discussion, "discussion", "", "discussion uuid")
}

// isTerminal reports whether out is an interactive terminal.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
