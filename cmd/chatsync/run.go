package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/dashboard"
	"github.com/zulandar/chatsync/internal/events"
	"github.com/zulandar/chatsync/internal/health"
	"github.com/zulandar/chatsync/internal/models"
)

const healthInterval = time.Second

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		port        int
		noDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine",
		Long:  "Connects the real-time socket, routes inbound events into local state, raises notifications, watches connection health and serves the inspection dashboard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, configPath, port, noDashboard)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to chatsync config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "dashboard port (default from config)")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "do not serve the inspection dashboard")
	return cmd
}

func runEngine(cmd *cobra.Command, configPath string, port int, noDashboard bool) error {
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	loadContainers(ctx, a, out)

	sock, err := newSocket(a.cfg)
	if err != nil {
		return err
	}
	defer sock.Close()
	if err := sock.Start(ctx); err != nil {
		log.Printf("chatsync: %v", err)
	}

	router, err := events.NewRouter(events.Opts{
		Store:      a.store,
		Notifier:   a.dispatcher,
		Identity:   a.author,
		Visibility: a.visibility,
		Out:        out,
	})
	if err != nil {
		return err
	}

	monitor, err := health.New(health.Opts{
		Connection: sock,
		Routes:     health.NewRouteState(health.RouteHome),
		Out:        out,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && ctx.Err() == nil {
				log.Printf("chatsync: %s: %v", name, err)
			}
		}()
	}

	run("router", func() error { return router.Run(ctx, sock.Events()) })

	tty := isTerminal(out)
	run("health", func() error {
		return monitor.Watch(ctx, healthInterval, func(b health.Banner) {
			printBanner(out, b, tty)
		})
	})

	if a.cfg.Digest.Enabled {
		digest, err := events.NewDigest(events.DigestOpts{
			Store:    a.store,
			Notifier: a.dispatcher,
			Failures: a.journal,
			Schedule: a.cfg.Digest.Cron,
			Out:      out,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Digest scheduled, next at %s\n", digest.Next(time.Now()).Format(time.RFC1123))
		run("digest", func() error { return digest.Run(ctx) })
	}

	if !noDashboard {
		if port <= 0 {
			port = a.cfg.Dashboard.Port
		}
		run("dashboard", func() error {
			return dashboard.Start(ctx, dashboard.StartOpts{
				Store:         a.store,
				Journal:       a.journal,
				Health:        monitor,
				Visibility:    a.visibility,
				Notifications: a.persisted,
				Sender:        a.pipeline,
				Actor:         a.author,
				Port:          port,
				Out:           out,
			})
		})
	}

	fmt.Fprintf(out, "Chatsync running as %s (%s context)\n", a.author.Email, a.cfg.Notify.Context)
	<-ctx.Done()
	sock.Close()
	wg.Wait()
	return nil
}

// loadContainers fetches the agent's rooms and discussions so inbound
// events for them become unread previews.
func loadContainers(ctx context.Context, a *app, out io.Writer) {
	for _, kind := range []models.ContainerKind{models.KindRoom, models.KindDiscussion} {
		uuids, err := a.backend.ListContainers(ctx, kind)
		if err != nil {
			log.Printf("chatsync: list %ss: %v", kind, err)
			continue
		}
		if kind == models.KindRoom {
			a.store.SetRooms(uuids)
		} else {
			a.store.SetDiscussions(uuids)
		}
	}
	fmt.Fprintf(out, "Loaded %d rooms, %d discussions\n", len(a.store.Rooms()), len(a.store.Discussions()))
}
