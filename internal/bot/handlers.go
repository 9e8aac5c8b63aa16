package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/videobackup-bot/internal/access"
	"github.com/maauso/videobackup-bot/internal/disk"
	"github.com/maauso/videobackup-bot/internal/upload"
)

// Replier posts a reply to a chat message. upload.Messenger implementations
// satisfy it.
type Replier interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (upload.MessageRef, error)
}

// StatsProvider reports remote storage usage.
type StatsProvider interface {
	Stats(ctx context.Context) (disk.Stats, error)
}

// Uploader runs a video through the upload pipeline.
type Uploader interface {
	Handle(ctx context.Context, req upload.Request) (*upload.Upload, error)
}

// Handlers implements the start, stats and video handlers.
type Handlers struct {
	policy     *access.Policy
	replier    Replier
	stats      StatsProvider
	uploader   Uploader
	timezone   string
	groupsOnly bool
	logger     *slog.Logger
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithGroupsOnly restricts video handling to group and supergroup chats.
func WithGroupsOnly(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.groupsOnly = enabled
	}
}

// NewHandlers creates a new Handlers instance. timezone is shown in the
// start greeting.
func NewHandlers(
	policy *access.Policy,
	replier Replier,
	stats StatsProvider,
	uploader Uploader,
	timezone string,
	logger *slog.Logger,
	opts ...HandlerOption,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		policy:     policy,
		replier:    replier,
		stats:      stats,
		uploader:   uploader,
		timezone:   timezone,
		groupsOnly: true,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register installs the handlers on r.
func (h *Handlers) Register(r *Router) {
	r.Handle(KindStart, h.Start)
	r.Handle(KindStats, h.Stats)
	r.Handle(KindVideo, h.Video)
}

// Start replies with the greeting. It is not gated by the access policy.
func (h *Handlers) Start(ctx context.Context, ev Event) {
	h.reply(ctx, ev, greetingText(h.timezone))
}

// Stats replies with remote storage usage. Senders outside the allow-list
// get no reply.
func (h *Handlers) Stats(ctx context.Context, ev Event) {
	if !h.policy.Allowed(ev.Sender.ID) {
		h.logger.Debug("ignoring stats request from unauthorized user",
			slog.Int64("user_id", ev.Sender.ID),
		)
		return
	}

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		h.logger.Error("error getting stats", slog.String("error", err.Error()))
		h.reply(ctx, ev, statsErrorText(err))
		return
	}
	h.reply(ctx, ev, statsText(stats))
}

// Video hands a posted video to the upload pipeline.
func (h *Handlers) Video(ctx context.Context, ev Event) {
	if ev.Video == nil {
		return
	}
	if h.groupsOnly && !ev.ChatIsGroup {
		h.logger.Debug("ignoring video outside a group chat",
			slog.Int64("chat_id", ev.ChatID),
			slog.Int64("user_id", ev.Sender.ID),
		)
		return
	}

	// The pipeline reports failures to the chat and logs unauthorized senders.
	if _, err := h.uploader.Handle(ctx, ev.UploadRequest()); err != nil && !errors.Is(err, upload.ErrUnauthorized) {
		h.logger.Debug("video upload ended with error", slog.String("error", err.Error()))
	}
}

func (h *Handlers) reply(ctx context.Context, ev Event, text string) {
	if _, err := h.replier.Reply(ctx, ev.ChatID, ev.MessageID, text); err != nil {
		h.logger.Error("failed to send reply",
			slog.String("kind", string(ev.Kind)),
			slog.Int64("chat_id", ev.ChatID),
			slog.String("error", err.Error()),
		)
	}
}

func greetingText(timezone string) string {
	return fmt.Sprintf("🎥 Video Backup Bot is active!\n\n"+
		"Send a video and I will save it to Yandex Disk automatically.\n"+
		"Time zone: %s", timezone)
}

func statsText(s disk.Stats) string {
	return fmt.Sprintf("📊 Yandex Disk statistics:\n\n"+
		"💾 Used: %.2f GB\n"+
		"📦 Total: %.2f GB\n"+
		"📈 Occupied: %.1f%%", s.UsedGB, s.TotalGB, s.UsedPercent)
}

func statsErrorText(err error) string {
	return fmt.Sprintf("❌ Error getting statistics: %v", err)
}
