// Package telegram adapts the Telegram Bot API to the bot and upload
// packages: it long-polls updates into bot.Event values, posts and edits
// messages, and streams posted videos.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/maauso/videobackup-bot/internal/bot"
	"github.com/maauso/videobackup-bot/internal/upload"
)

// ErrTokenRequired is returned when the bot token is not provided.
var ErrTokenRequired = errors.New("telegram: bot token is required")

const (
	// DefaultAPIEndpoint is the Bot API method URL format (token, method).
	DefaultAPIEndpoint = tgbotapi.APIEndpoint
	// DefaultFileEndpoint is the Bot API file URL format (token, file path).
	DefaultFileEndpoint = tgbotapi.FileEndpoint
	// DefaultPollTimeout is the long-poll timeout in seconds.
	DefaultPollTimeout = 60
)

// Outbound messages are limited to stay under the Bot API flood limits.
const (
	defaultSendRate  = rate.Limit(20)
	defaultSendBurst = 5
)

// Compile-time check that Client implements upload.Messenger.
var _ upload.Messenger = (*Client)(nil)

// Client is a Telegram Bot API client.
type Client struct {
	api          *tgbotapi.BotAPI
	token        string
	apiEndpoint  string
	fileEndpoint string
	pollTimeout  int
	httpClient   *http.Client
	fileClient   *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithAPIEndpoint sets the Bot API method URL format, for self-hosted Bot API servers.
func WithAPIEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.apiEndpoint = endpoint
		}
	}
}

// WithFileEndpoint sets the Bot API file URL format.
func WithFileEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.fileEndpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used for Bot API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithFileClient sets the HTTP client used to download videos.
func WithFileClient(hc *http.Client) Option {
	return func(c *Client) {
		c.fileClient = hc
	}
}

// WithRateLimit sets the outbound message rate.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(c *Client) {
		if seconds >= 0 {
			c.pollTimeout = seconds
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New connects to the Bot API and verifies the token.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	c := &Client{
		token:        token,
		apiEndpoint:  DefaultAPIEndpoint,
		fileEndpoint: DefaultFileEndpoint,
		pollTimeout:  DefaultPollTimeout,
		limiter:      rate.NewLimiter(defaultSendRate, defaultSendBurst),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: time.Duration(c.pollTimeout)*time.Second + 30*time.Second}
	}
	if c.fileClient == nil {
		c.fileClient = newFileClient()
	}

	setLibraryLogger(c.logger)

	api, err := tgbotapi.NewBotAPIWithClient(token, c.apiEndpoint, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	c.api = api

	c.logger.Info("connected to Telegram", slog.String("bot", api.Self.UserName))
	return c, nil
}

// Username returns the bot's username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Run long-polls updates and passes every recognised event to dispatch
// until ctx is done.
func (c *Client) Run(ctx context.Context, dispatch func(bot.Event)) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = c.pollTimeout
	cfg.AllowedUpdates = []string{"message"}

	updates := c.api.GetUpdatesChan(cfg)
	c.logger.Info("polling for updates", slog.Int("timeout_sec", c.pollTimeout))

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.logger.Info("stopped polling for updates")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := c.toEvent(update)
			if !ok {
				continue
			}
			dispatch(ev)
		}
	}
}

// toEvent converts an update into a bot.Event. It reports false for updates
// the bot does not handle.
func (c *Client) toEvent(update tgbotapi.Update) (bot.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return bot.Event{}, false
	}

	ev := bot.Event{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.MessageID,
		ChatIsGroup: msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
		Sender: upload.Sender{
			ID:        msg.From.ID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
		},
	}

	switch {
	case msg.Video != nil:
		ev.Kind = bot.KindVideo
		ev.Video = &bot.Video{
			FileName:     msg.Video.FileName,
			FileUniqueID: msg.Video.FileUniqueID,
			FileSize:     int64(msg.Video.FileSize),
			Source:       c.fileSource(msg.Video.FileID),
		}
	case msg.IsCommand():
		switch msg.Command() {
		case "start":
			ev.Kind = bot.KindStart
		case "stats":
			ev.Kind = bot.KindStats
		default:
			return bot.Event{}, false
		}
	default:
		return bot.Event{}, false
	}

	return ev, true
}
