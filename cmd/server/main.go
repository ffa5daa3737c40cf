package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/focus-sentry/backend/internal/classify"
	"github.com/focus-sentry/backend/internal/config"
	"github.com/focus-sentry/backend/internal/device"
	"github.com/focus-sentry/backend/internal/enforcer"
	"github.com/focus-sentry/backend/internal/habitify"
	"github.com/focus-sentry/backend/internal/history"
	"github.com/focus-sentry/backend/internal/session"
	"github.com/focus-sentry/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	devicePath := flag.String("device", "", "Override serial device path")
	listHabits := flag.Bool("list-habits", false, "List Habitify habits and exit")
	frontendDir := flag.String("frontend", "", "Serve static frontend from this directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devicePath != "" {
		cfg.Device.Path = *devicePath
	}

	if *listHabits {
		if cfg.Habitify.APIKey == "" {
			log.Fatal("list-habits requires habitify.api_key in config")
		}
		client := habitify.New(cfg.Habitify.BaseURL, cfg.Habitify.APIKey, cfg.Habitify.HabitID, cfg.Habitify.UnitType)
		habits, err := client.ListHabits(context.Background())
		if err != nil {
			log.Fatalf("Failed to list habits: %v", err)
		}
		for _, h := range habits {
			fmt.Printf("%s\t%s\n", h.ID, h.Name)
		}
		return
	}

	classifier := classify.New(cfg.ClassifierRules())
	queue := session.NewQueue()

	listener := device.NewListener(device.Config{
		Path:         cfg.Device.Path,
		BaudRate:     cfg.Device.BaudRate,
		ReadTimeout:  cfg.Device.ReadTimeout.Std(),
		RetryBackoff: cfg.Device.RetryBackoff.Std(),
	}, classifier, queue)
	if err := listener.Open(); err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}

	broadcaster := ws.NewBroadcaster(cfg.Session.BroadcastThrottle.Std(), cfg.Session.SnapshotInterval.Std())

	store := history.NewStore(cfg.History.Path)

	collab := session.Collaborators{
		History:  store,
		Renderer: broadcaster,
	}
	if cfg.HabitifyEnabled() {
		collab.Habit = habitify.New(cfg.Habitify.BaseURL, cfg.Habitify.APIKey, cfg.Habitify.HabitID, cfg.Habitify.UnitType)
	} else {
		log.Println("Habitify not configured, habit logging disabled")
	}
	if len(cfg.Enforcer.Blocklist) > 0 {
		collab.Enforcer = enforcer.New(cfg.Enforcer.Blocklist, cfg.Enforcer.Suspend)
	}

	controller := session.NewController(session.Options{
		Duration:          cfg.SessionDuration(),
		PollInterval:      cfg.Session.PollInterval.Std(),
		WarningClearDelay: cfg.Session.WarningClearDelay.Std(),
	}, queue, collab)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go listener.Run(ctx)
	go controller.Run(ctx)

	server := ws.NewServer(broadcaster, store, *frontendDir, cfg.Server.AuthToken)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	log.Printf("Listening on %s:%d, session length %s", cfg.Server.Host, cfg.Server.Port, cfg.SessionDuration())
	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
