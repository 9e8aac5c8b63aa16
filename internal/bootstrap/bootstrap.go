// Package bootstrap provides dependency initialization for the video backup bot.
package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maauso/videobackup-bot/internal/access"
	"github.com/maauso/videobackup-bot/internal/bot"
	"github.com/maauso/videobackup-bot/internal/config"
	"github.com/maauso/videobackup-bot/internal/disk"
	"github.com/maauso/videobackup-bot/internal/server"
	"github.com/maauso/videobackup-bot/internal/storage"
	"github.com/maauso/videobackup-bot/internal/telegram"
	"github.com/maauso/videobackup-bot/internal/upload"
)

// Dependencies holds all initialized dependencies of the bot.
type Dependencies struct {
	Telegram    *telegram.Client
	Disk        *disk.HTTPClient
	Pipeline    *upload.Pipeline
	Router      *bot.Router
	HTTPHandler http.Handler
}

// Option adjusts how dependencies are built.
type Option func(*options)

type options struct {
	telegram []telegram.Option
	disk     []disk.ClientOption
}

// WithTelegramOptions appends options to the Telegram client.
func WithTelegramOptions(opts ...telegram.Option) Option {
	return func(o *options) {
		o.telegram = append(o.telegram, opts...)
	}
}

// WithDiskOptions appends options to the Yandex Disk client.
func WithDiskOptions(opts ...disk.ClientOption) Option {
	return func(o *options) {
		o.disk = append(o.disk, opts...)
	}
}

// NewDependencies creates and initializes all dependencies for the application.
// It connects to the Bot API to verify the bot token.
func NewDependencies(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Dependencies, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	policy := access.NewPolicy(cfg.AllowedUserIDs)
	logger.Info("access policy loaded", slog.Int("allowed_users", policy.Len()))

	// Initialize Yandex Disk client
	diskClient, err := disk.NewClient(cfg.YandexOAuthToken, append([]disk.ClientOption{
		disk.WithRootFolder(cfg.RootFolder),
		disk.WithLogger(logger.With(slog.String("component", "disk"))),
	}, o.disk...)...)
	if err != nil {
		return nil, fmt.Errorf("create disk client: %w", err)
	}

	// Initialize staging area
	stager, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured", slog.String("temp_dir", stager.TempDir()))

	// Initialize Telegram client
	tg, err := telegram.New(cfg.TelegramBotToken, append([]telegram.Option{
		telegram.WithAPIEndpoint(cfg.TelegramAPIEndpoint),
		telegram.WithFileEndpoint(cfg.TelegramFileEndpoint),
		telegram.WithLogger(logger.With(slog.String("component", "telegram"))),
	}, o.telegram...)...)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	// Initialize upload pipeline and its registry
	repo := upload.NewMemoryRepository(upload.DefaultRegistrySize)
	pipeline := upload.NewPipeline(policy, stager, diskClient, tg, logger,
		upload.WithLocation(cfg.Location()),
		upload.WithRepository(repo),
	)

	// Initialize inbound event routing
	router := bot.NewRouter(logger)
	bot.NewHandlers(policy, tg, diskClient, pipeline, cfg.Timezone, logger,
		bot.WithGroupsOnly(cfg.GroupsOnly),
	).Register(router)

	httpHandler := server.NewRouter(server.NewHandlers(repo, logger), logger)

	return &Dependencies{
		Telegram:    tg,
		Disk:        diskClient,
		Pipeline:    pipeline,
		Router:      router,
		HTTPHandler: httpHandler,
	}, nil
}
