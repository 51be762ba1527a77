package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mklimuk/skyadmin/pkg/api"
	"github.com/mklimuk/skyadmin/pkg/config"
	"github.com/mklimuk/skyadmin/pkg/db"
	"github.com/mklimuk/skyadmin/pkg/integration/desktop"
	"github.com/mklimuk/skyadmin/pkg/integration/discord"
	"github.com/mklimuk/skyadmin/pkg/integration/telegram"
	"github.com/mklimuk/skyadmin/pkg/notify"
	"github.com/mklimuk/skyadmin/pkg/reminder"
)

const shutdownTimeout = 10 * time.Second

// app owns every long-lived component.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	database *db.DB
	repo     *db.Repository
	registry *prometheus.Registry
	notifier *notify.Multi
	pollers  []*reminder.Poller
	tgBot    *telegram.Bot
}

// newApp wires the components. Bots are only created when withBots is set,
// so one-shot commands do not open update streams.
func newApp(cfg *config.Config, logger *slog.Logger, withBots bool) (*app, error) {
	database, err := db.NewDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	if err := database.InitSchema(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		database: database,
		repo:     db.NewRepository(database),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backends := []notify.Notifier{}
	if cfg.Notify.Desktop.Enabled {
		backends = append(backends, desktop.NewNotifier())
	}
	if cfg.Notify.Log.Enabled {
		backends = append(backends, notify.NewLog(logger))
	}

	var tgAPI *tgbotapi.BotAPI
	if cfg.Notify.Telegram.Enabled() {
		botAPI, err := telegram.NewAPI(cfg.Notify.Telegram.Token)
		if err != nil {
			// A broken bot must not stop local reminders.
			logger.Error("telegram disabled", "error", err)
		} else {
			tgAPI = botAPI
			backends = append(backends, telegram.NewNotifier(botAPI, cfg.Notify.Telegram.ChatID))
		}
	}
	if cfg.Notify.Discord.Enabled() {
		n, err := discord.NewNotifier(cfg.Notify.Discord.Token, cfg.Notify.Discord.ChannelID)
		if err != nil {
			logger.Error("discord disabled", "error", err)
		} else {
			backends = append(backends, n)
		}
	}
	a.notifier = notify.NewMulti(logger, backends...)
	logger.Info("notification backends configured", "backends", a.notifier.Backends(), "supported", a.notifier.Supported())

	metrics := reminder.NewMetrics(a.registry)
	for _, kind := range db.Kinds {
		if !cfg.KindEnabled(kind) {
			continue
		}
		src, err := reminder.NewSource(a.repo, kind)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pollers = append(a.pollers, reminder.NewPoller(src, a.notifier, reminder.Options{
			Interval:        cfg.Reminder.Interval,
			MarkUndelivered: cfg.Reminder.MarkUndelivered,
			Logger:          logger,
			Metrics:         metrics,
		}))
	}

	if withBots && tgAPI != nil {
		a.tgBot = telegram.NewBot(tgAPI, cfg.Notify.Telegram.ChatID, a.telegramPollers(), logger)
	}
	return a, nil
}

func (a *app) telegramPollers() []telegram.Poller {
	out := make([]telegram.Poller, 0, len(a.pollers))
	for _, p := range a.pollers {
		out = append(out, p)
	}
	return out
}

func (a *app) apiPollers() []api.Poller {
	out := make([]api.Poller, 0, len(a.pollers))
	for _, p := range a.pollers {
		out = append(out, p)
	}
	return out
}

// Serve starts the pollers, the bots and the HTTP server and blocks until
// ctx is cancelled or the server fails.
func (a *app) Serve(ctx context.Context) error {
	for _, p := range a.pollers {
		p.Start()
	}
	defer func() {
		for _, p := range a.pollers {
			p.Stop()
		}
		// Let in-flight checks finish before the database is closed.
		for _, p := range a.pollers {
			<-p.Done()
		}
	}()

	if a.tgBot != nil {
		if err := a.tgBot.Start(); err != nil {
			a.logger.Error("failed to start Telegram bot", "error", err)
		} else {
			a.logger.Info("Telegram bot started")
			defer a.tgBot.Stop()
		}
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           api.NewRouter(a.repo, a.apiPollers(), a.notifier, a.registry, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// CheckNow runs one check for kind, or for every enabled kind when kind is
// empty.
func (a *app) CheckNow(ctx context.Context, kind string) ([]*reminder.Report, error) {
	var reports []*reminder.Report
	for _, p := range a.pollers {
		if kind != "" && p.Kind() != kind {
			continue
		}
		report, err := p.CheckNow(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s check failed: %w", p.Kind(), err)
		}
		reports = append(reports, report)
	}
	if kind != "" && len(reports) == 0 {
		return nil, fmt.Errorf("unknown or disabled reminder kind: %s", kind)
	}
	return reports, nil
}

// Close releases the database. Pollers and bots are stopped by Serve.
func (a *app) Close() error {
	return a.database.Close()
}
