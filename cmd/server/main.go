package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetlog/meetlog/internal/config"
	"github.com/meetlog/meetlog/internal/contacts"
	"github.com/meetlog/meetlog/internal/db"
	"github.com/meetlog/meetlog/internal/extract"
	"github.com/meetlog/meetlog/internal/geocode"
	"github.com/meetlog/meetlog/internal/handlers"
	"github.com/meetlog/meetlog/internal/ingest"
	"github.com/meetlog/meetlog/internal/logger"
	"github.com/meetlog/meetlog/internal/reminder"
	"github.com/meetlog/meetlog/internal/server"
	"github.com/meetlog/meetlog/internal/transcribe"
	"github.com/meetlog/meetlog/internal/users"
	"github.com/meetlog/meetlog/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideExtractor(log *slog.Logger, cfg config.Config) (*extract.Extractor, error) {
	return extract.NewExtractor(log, cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, cfg.OpenAI.Timeout())
}

func provideGeocoder(log *slog.Logger, cfg config.Config) *geocode.Client {
	return geocode.NewClient(log, cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout())
}

func provideTranscriber(log *slog.Logger, cfg config.Config) *transcribe.Service {
	return transcribe.NewService(log, cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken,
		cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.WhisperModel, cfg.OpenAI.Timeout())
}

func providePipeline(log *slog.Logger, extractor *extract.Extractor, geocoder *geocode.Client, transcriber *transcribe.Service, contactService *contacts.Service) *ingest.Pipeline {
	return ingest.NewPipeline(log, extractor, geocoder, transcriber, contactService, "telegram")
}

func provideWebhookHandler(log *slog.Logger, pipeline *ingest.Pipeline, cfg config.Config) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, pipeline, cfg.Telegram.WebhookSecret)
}

func provideAuthHandler(log *slog.Logger, userService *users.Service, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, userService, cfg.Auth.JWTSecret, cfg.Auth.ExpiresIn())
}

func provideMailer(cfg config.Config) reminder.Mailer {
	return reminder.NewSMTPMailer(cfg.Reminder)
}

func provideReminder(log *slog.Logger, contactService *contacts.Service, userService *users.Service, mailer reminder.Mailer, cfg config.Config) *reminder.Service {
	return reminder.NewService(log, contactService, userService, mailer, cfg.Reminder.Cron)
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			users.NewService,
			contacts.NewService,

			provideExtractor,
			provideGeocoder,
			provideTranscriber,
			providePipeline,
			provideMailer,
			provideReminder,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(provideWebhookHandler),

			provideServer,
		),
		fx.Invoke(
			startReminder,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startReminder(lc fx.Lifecycle, reminderService *reminder.Service, cfg config.Config) {
	if !cfg.Reminder.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return reminderService.Start()
		},
		OnStop: func(ctx context.Context) error {
			reminderService.Stop()
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
	cfg config.Config,
	userService *users.Service,
) {
	fmt.Printf("Starting meetlog %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ensureAdminUser(ctx, logger, userService, cfg); err != nil {
				return err
			}

			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown() // shutdown the application if the server fails to start
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			// graceful shutdown
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func ensureAdminUser(ctx context.Context, log *slog.Logger, userService *users.Service, cfg config.Config) error {
	username := strings.TrimSpace(cfg.Admin.Username)
	password := strings.TrimSpace(cfg.Admin.Password)
	if username == "" || password == "" {
		return fmt.Errorf("admin username/password required in config.toml")
	}
	if password == "change-your-password-here" {
		log.Warn("admin password uses default placeholder; please update config.toml")
	}

	account, err := userService.EnsureUser(ctx, users.CreateUserRequest{
		Username: username,
		Password: password,
		Email:    strings.TrimSpace(cfg.Admin.Email),
	})
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	log.Info("admin account ready", slog.String("user_id", account.ID))
	return nil
}
