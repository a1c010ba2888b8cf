package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"goldwatcher/internal/config"
	"goldwatcher/internal/notify"
	"goldwatcher/internal/scheduler"
	"goldwatcher/internal/scraper"
	"goldwatcher/internal/service"
	"goldwatcher/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newExtractor() scraper.QuoteFetcher {
	return scraper.NewZarbaha(scraper.Options{
		URL:              a.Config.Source.URL,
		BuySelector:      a.Config.Source.BuySelector,
		SellSelector:     a.Config.Source.SellSelector,
		EstimateSelector: a.Config.Source.EstimateSelector,
		UserAgent:        a.Config.Source.UserAgent,
		Timeout:          a.Config.Source.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() (notify.Notifier, error) {
	if !a.Config.Telegram.Enabled {
		return nil, nil
	}
	cfg := a.Config.Telegram
	return notify.NewTelegramNotifier(notify.TelegramOptions{
		BotToken:     cfg.BotToken,
		ChannelID:    cfg.ChannelID,
		AdminChatIDs: cfg.AdminChatIDs,
		BaseURL:      cfg.APIBase,
		ProxyURL:     cfg.ProxyURL,
		Timeout:      10 * time.Second,
	}, a.Logger)
}

func (a *App) openFileStore() (*storage.FileStore, error) {
	return storage.NewFileStore(a.Config.Store.Path)
}

func (a *App) openArchive(ctx context.Context) (*storage.Archive, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	archive := storage.NewArchive(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		archive.Close()
		return nil, nil, err
	}

	closer := func() {
		archive.Close()
	}
	return archive, closer, nil
}

// newService wires a complete pipeline; the returned cleanup must run when
// the caller is done.
func (a *App) newService(ctx context.Context) (*service.Service, func(), error) {
	location, err := a.Config.Location()
	if err != nil {
		return nil, nil, err
	}

	store, err := a.openFileStore()
	if err != nil {
		return nil, nil, err
	}

	archive, closeArchive, err := a.openArchive(ctx)
	if err != nil {
		return nil, nil, err
	}
	if archive == nil {
		a.Logger.Debug().Msg("database.dsn not configured; archive disabled")
	}

	notifier, err := a.newNotifier()
	if err != nil {
		if closeArchive != nil {
			closeArchive()
		}
		return nil, nil, err
	}
	if notifier == nil {
		a.Logger.Warn().Msg("telegram disabled; price updates will not be broadcast")
	}

	var recordArchive storage.RecordArchive
	if archive != nil {
		recordArchive = archive
	}

	svc := service.New(a.Config, a.newExtractor(), store, recordArchive, notifier, location, a.Logger)

	cleanup := func() {
		if closeArchive != nil {
			closeArchive()
		}
	}
	return svc, cleanup, nil
}

// Run executes the long-running windowed watcher service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	location, err := a.Config.Location()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Enabled:      a.Config.Scheduler.Enabled,
		Interval:     a.Config.Scheduler.Interval,
		StartTime:    a.Config.Scheduler.StartTime,
		EndTime:      a.Config.Scheduler.EndTime,
		Location:     location,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Msg("starting gold price watcher")
	err = sched.Run(ctx, svc.Run)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("gold price watcher stopped")
	return nil
}

// FetchOnce executes exactly one pipeline run, ignoring the window.
func (a *App) FetchOnce(ctx context.Context) error {
	svc, cleanup, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return svc.Run(ctx)
}

// ExportOptions hold parameters for exporting historical records.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
