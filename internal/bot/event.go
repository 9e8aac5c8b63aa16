// Package bot routes inbound chat events to their handlers. Every event runs
// in its own goroutine; a failing or panicking handler does not affect the
// others.
package bot

import "github.com/maauso/videobackup-bot/internal/upload"

// Kind identifies what an inbound event asks for.
type Kind string

const (
	// KindStart is the start command.
	KindStart Kind = "start"
	// KindStats is the stats command.
	KindStats Kind = "stats"
	// KindVideo is a posted video.
	KindVideo Kind = "video"
)

// Event is a transport-neutral inbound chat event.
type Event struct {
	Kind      Kind
	ChatID    int64
	MessageID int
	// ChatIsGroup is true for group and supergroup chats.
	ChatIsGroup bool
	Sender      upload.Sender
	// Video is set for KindVideo events.
	Video *Video
}

// Video describes the file attached to a video event.
type Video struct {
	FileName     string
	FileUniqueID string
	FileSize     int64
	Source       upload.Source
}

// UploadRequest converts a video event into a pipeline request.
func (e Event) UploadRequest() upload.Request {
	req := upload.Request{
		Sender:    e.Sender,
		ChatID:    e.ChatID,
		MessageID: e.MessageID,
	}
	if e.Video != nil {
		req.FileName = e.Video.FileName
		req.FileUniqueID = e.Video.FileUniqueID
		req.FileSize = e.Video.FileSize
		req.Source = e.Video.Source
	}
	return req
}
