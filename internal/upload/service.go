package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/videobackup-bot/internal/access"
	"github.com/maauso/videobackup-bot/internal/storage"
)

// DateFolderLayout names the per-day remote folders.
const DateFolderLayout = "2006-01-02"

var (
	// ErrUnauthorized is returned when the sender is not on the allow-list.
	// The sender is not told.
	ErrUnauthorized = errors.New("upload: sender is not authorized")
	// ErrNoSource is returned when a request carries no byte source.
	ErrNoSource = errors.New("upload: request has no video source")
)

// MessageRef locates a chat message that can be edited.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	// Reply posts text in chatID as a reply to message replyTo.
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (MessageRef, error)
	// Edit replaces the text of a previously posted message.
	Edit(ctx context.Context, ref MessageRef, text string) error
	// Send posts text to a user directly.
	Send(ctx context.Context, userID int64, text string) error
}

// RemoteStore places a staged file remotely and returns the public link of
// its date folder. *disk.HTTPClient implements it.
type RemoteStore interface {
	UploadVideo(ctx context.Context, localPath, dateFolder, filename string) (publicURL string, err error)
}

// Pipeline relays inbound videos to remote storage. Each call to Handle is
// independent; a Pipeline is safe for concurrent use.
type Pipeline struct {
	policy    *access.Policy
	stager    storage.Stager
	store     RemoteStore
	messenger Messenger
	repo      Repository
	logger    *slog.Logger

	now          func() time.Time
	location     *time.Location
	progressStep int
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the wall clock used to name date folders.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLocation sets the time zone date folders are named in.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.location = loc
		}
	}
}

// WithRepository sets the registry uploads are recorded in.
func WithRepository(repo Repository) Option {
	return func(p *Pipeline) {
		p.repo = repo
	}
}

// WithProgressStep sets the minimum percentage advance between status edits.
func WithProgressStep(step int) Option {
	return func(p *Pipeline) {
		if step > 0 {
			p.progressStep = step
		}
	}
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	policy *access.Policy,
	stager storage.Stager,
	store RemoteStore,
	messenger Messenger,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		policy:       policy,
		stager:       stager,
		store:        store,
		messenger:    messenger,
		repo:         NewMemoryRepository(DefaultRegistrySize),
		logger:       logger,
		now:          time.Now,
		location:     time.UTC,
		progressStep: DefaultProgressStep,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Repository returns the registry uploads are recorded in.
func (p *Pipeline) Repository() Repository {
	return p.repo
}

// Handle runs one video through the pipeline. Unauthorized senders get no
// reply and ErrUnauthorized. Any other error has already been reported to
// the requester and to every allow-listed operator when Handle returns it.
func (p *Pipeline) Handle(ctx context.Context, req Request) (*Upload, error) {
	u := New(req)
	p.transition(u, StatusAuthorizing)

	if !p.policy.Allowed(req.Sender.ID) {
		p.logger.Warn("unauthorized user tried to upload video",
			slog.Int64("user_id", req.Sender.ID),
			slog.String("username", req.Sender.DisplayName()),
		)
		return nil, ErrUnauthorized
	}

	logger := p.logger.With(
		slog.String("upload_id", u.ID),
		slog.Int64("user_id", u.SenderID),
		slog.String("filename", u.Filename),
	)
	logger.Info("video received",
		slog.String("username", u.Sender),
		slog.Int64("size", u.Size),
	)
	p.save(ctx, u, logger)

	status := p.openStatus(ctx, req, logger)

	link, err := p.relay(ctx, u, req, status, logger)
	if err != nil {
		p.fail(context.WithoutCancel(ctx), u, req, status, err, logger)
		return u, err
	}

	p.transition(u, StatusDone)
	p.save(ctx, u, logger)
	status.edit(ctx, successText(u.DateFolder, link))

	logger.Info("video uploaded successfully", slog.String("public_url", link))
	return u, nil
}

// relay stages the video, places it remotely and releases the staging slot.
// The slot is released on every path out of relay.
func (p *Pipeline) relay(ctx context.Context, u *Upload, req Request, status *statusMessage, logger *slog.Logger) (string, error) {
	p.transition(u, StatusStaging)
	p.save(ctx, u, logger)

	slot, err := p.stager.Slot(ctx, u.ID, u.Filename)
	if err != nil {
		return "", fmt.Errorf("reserve staging slot: %w", err)
	}

	release := sync.OnceFunc(func() {
		if err := p.stager.Cleanup(context.WithoutCancel(ctx), slot); err != nil {
			logger.Error("failed to remove staging file",
				slog.String("path", slot),
				slog.String("error", err.Error()),
			)
			return
		}
		logger.Info("temporary file deleted", slog.String("path", slot))
	})
	defer release()

	logger.Info("downloading video", slog.String("path", slot))
	if err := p.stage(ctx, u, req, slot, status, logger); err != nil {
		return "", err
	}

	dateFolder := p.now().In(p.location).Format(DateFolderLayout)

	p.transition(u, StatusPlacing)
	p.save(ctx, u, logger)
	status.edit(ctx, placingText(req.SizeMB(), dateFolder))

	logger.Info("uploading to remote storage", slog.String("date_folder", dateFolder))
	link, err := p.store.UploadVideo(ctx, slot, dateFolder, u.Filename)
	if err != nil {
		return "", err
	}

	u.SetResult(dateFolder, link)
	p.transition(u, StatusPublished)
	p.save(ctx, u, logger)

	release()
	return link, nil
}

// stage streams the video into slot. Each reported percentage is recorded in
// the registry and shown in the status message.
func (p *Pipeline) stage(ctx context.Context, u *Upload, req Request, slot string, status *statusMessage, logger *slog.Logger) error {
	if req.Source == nil {
		return ErrNoSource
	}

	src, err := req.Source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open video stream: %w", err)
	}
	defer func() { _ = src.Close() }()

	throttle := NewThrottle(req.FileSize, p.progressStep)
	sizeMB := req.SizeMB()

	_, err = p.stager.Write(ctx, slot, src, func(written int64) {
		percent, ok := throttle.Update(written)
		if !ok {
			return
		}
		u.UpdateProgress(percent)
		p.save(ctx, u, logger)
		status.edit(ctx, downloadProgressText(sizeMB, percent))
	})
	return err
}

// fail reports err to the requester and broadcasts it to every operator.
// A failed notification does not stop the others.
func (p *Pipeline) fail(ctx context.Context, u *Upload, req Request, status *statusMessage, err error, logger *slog.Logger) {
	logger.Error("error uploading video", slog.String("error", err.Error()))

	if ferr := u.Fail(err.Error()); ferr != nil {
		logger.Error("invalid state transition",
			slog.String("from", string(u.GetStatus())),
			slog.String("to", string(StatusFailed)),
		)
	}
	p.save(ctx, u, logger)

	status.edit(ctx, failureText(err))

	notice := operatorNoticeText(req.Sender, u.Filename, err)
	for _, operatorID := range p.policy.IDs() {
		if nerr := p.messenger.Send(ctx, operatorID, notice); nerr != nil {
			logger.Error("failed to notify operator",
				slog.Int64("operator_id", operatorID),
				slog.String("error", nerr.Error()),
			)
		}
	}
}

// openStatus posts the status message. If it cannot be posted the upload
// still proceeds; later edits become no-ops.
func (p *Pipeline) openStatus(ctx context.Context, req Request, logger *slog.Logger) *statusMessage {
	s := &statusMessage{messenger: p.messenger, logger: logger}

	ref, err := p.messenger.Reply(ctx, req.ChatID, req.MessageID, downloadingText(req.SizeMB()))
	if err != nil {
		logger.Warn("failed to post status message", slog.String("error", err.Error()))
		return s
	}
	s.ref = ref
	s.posted = true
	return s
}

func (p *Pipeline) transition(u *Upload, to Status) {
	from := u.GetStatus()
	if err := u.TransitionTo(to); err != nil {
		p.logger.Error("invalid state transition",
			slog.String("upload_id", u.ID),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
	}
}

func (p *Pipeline) save(ctx context.Context, u *Upload, logger *slog.Logger) {
	if p.repo == nil {
		return
	}
	if err := p.repo.Save(ctx, u); err != nil {
		logger.Warn("failed to record upload", slog.String("error", err.Error()))
	}
}

// statusMessage is the single per-upload message edited in place.
// Edit failures are ignored.
type statusMessage struct {
	messenger Messenger
	logger    *slog.Logger
	ref       MessageRef
	posted    bool
}

func (s *statusMessage) edit(ctx context.Context, text string) {
	if !s.posted {
		return
	}
	if err := s.messenger.Edit(ctx, s.ref, text); err != nil {
		s.logger.Debug("status message edit failed", slog.String("error", err.Error()))
	}
}
