package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cardwatch/cardwatch/internal/api/handlers"
	apimw "github.com/cardwatch/cardwatch/internal/api/middleware"
	"github.com/cardwatch/cardwatch/internal/catalog"
	"github.com/cardwatch/cardwatch/internal/config"
	"github.com/cardwatch/cardwatch/internal/notify"
	"github.com/cardwatch/cardwatch/internal/scheduler"
	"github.com/cardwatch/cardwatch/internal/store"
	"github.com/cardwatch/cardwatch/pkg/logger"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ops server and the cycle scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	clog := log.NewWithOptions(os.Stderr, log.Options{
		Level: parseLogLevel(cfg.Logging.Level),
	})

	slogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	pg, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pg.Close()
	slogger.Info("database connected")

	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	loadCatalog := func() (*catalog.Catalog, error) {
		return catalog.Load(cfg.Shops.Dir)
	}
	if _, err := loadCatalog(); err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	adapters := buildAdapters(cfg, slogger)

	sched := scheduler.New(pg, loadCatalog, cfg.Governor, cfg.Schedule, adapters, cfg.Governor.ProxyURL, slogger)
	sched.RecoverStaleJobRuns(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(apimw.Recovery(slogger))
	e.Use(apimw.RequestLog(slogger))
	e.Use(apimw.Metrics())

	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(pg))
	handlers.RegisterAdminRoutes(e, handlers.NewAdminHandler(sched))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	clog.Info("starting server", "addr", addr)

	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	slogger.Info("scheduler started", "base_period", cfg.Schedule.BasePeriod)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.Error("server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	clog.Info("shutting down")

	schedCtx := sched.Stop()
	<-schedCtx.Done()
	slogger.Info("scheduler stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	clog.Info("server stopped")
	return nil
}

func buildAdapters(cfg *config.Config, logger *slog.Logger) map[domain.Channel]notify.Adapter {
	adapters := make(map[domain.Channel]notify.Adapter)

	if cfg.Notifications.Discord.Enabled {
		adapters[domain.ChannelDiscord] = notify.NewDiscordAdapter(cfg.Notifications.Discord.WebhookURL)
		logger.Info("discord notifications enabled")
	}

	if cfg.Notifications.Telegram.Enabled {
		bot, err := tgbotapi.NewBotAPI(cfg.Notifications.Telegram.BotToken)
		if err != nil {
			logger.Error("telegram bot init failed, disabling telegram notifications", "error", err)
		} else {
			adapters[domain.ChannelTelegram] = notify.NewTelegramAdapter(bot)
			logger.Info("telegram notifications enabled")
		}
	}

	if len(adapters) == 0 {
		logger.Warn("no notification channels enabled; results will be stored but no alerts sent")
	}

	return adapters
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
