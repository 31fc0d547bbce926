package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/hi-events/hi-events-api/internal/auth"
	"github.com/hi-events/hi-events-api/internal/booking"
	"github.com/hi-events/hi-events-api/internal/config"
	"github.com/hi-events/hi-events-api/internal/database"
	"github.com/hi-events/hi-events-api/internal/handlers"
	"github.com/hi-events/hi-events-api/internal/logging"
	"github.com/hi-events/hi-events-api/internal/notifier"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Database
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	notify, closeNotifiers := buildNotifier(cfg, logger)
	defer closeNotifiers()

	tokens := auth.NewTokenService(cfg, logger)
	authn := auth.NewAuthenticator(tokens, logger, cfg.IsProduction()).WithUserLookup(auth.GormUserLookup(db))
	bookings := booking.NewService(db, notify, logger)

	h := handlers.Handlers{
		Auth:          handlers.NewAuthHandler(db, authn, cfg, logger),
		Events:        handlers.NewEventHandler(db, bookings, logger),
		Registrations: handlers.NewRegistrationHandler(db, bookings, logger),
		Categories:    handlers.NewCategoryHandler(db, logger),
		Dashboard:     handlers.NewDashboardHandler(db, bookings, logger),
		System:        handlers.NewSystemHandler(db, logger),
	}

	var discord *auth.DiscordLogin
	if cfg.DiscordLoginEnabled() {
		discord = auth.NewDiscordLogin(cfg, db, authn, logger)
	}

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, cfg, logger, authn, h, discord)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildNotifier wires every configured notification channel. Missing
// configuration is not an error; the channel is simply skipped.
func buildNotifier(cfg *config.Config, logger zerolog.Logger) (notifier.Notifier, func()) {
	var (
		notifiers notifier.Multi
		closers   []func()
	)

	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("Discord notifier not initialized")
		} else {
			notifiers = append(notifiers, notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID, logger))
		}
	}

	if cfg.AMQPURL != "" {
		amqpNotifier, err := notifier.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("AMQP notifier not initialized")
		} else {
			notifiers = append(notifiers, amqpNotifier)
			closers = append(closers, func() { _ = amqpNotifier.Close() })
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(notifiers) == 0 {
		return notifier.Nop{}, closeAll
	}
	return notifiers, closeAll
}
