package upload

import "testing"

func testRequest() Request {
	return Request{
		Sender:       Sender{ID: 111, Username: "alice", FirstName: "Alice"},
		ChatID:       -100,
		MessageID:    7,
		FileName:     "clip.mp4",
		FileUniqueID: "uniq",
		FileSize:     1024,
	}
}

func TestNew(t *testing.T) {
	u := New(testRequest())

	if u.ID == "" {
		t.Error("expected upload to have an ID")
	}
	if u.Status != StatusReceived {
		t.Errorf("expected status %s, got %s", StatusReceived, u.Status)
	}
	if u.Filename != "clip.mp4" {
		t.Errorf("expected filename clip.mp4, got %s", u.Filename)
	}
	if u.SenderID != 111 || u.Sender != "alice" {
		t.Errorf("unexpected sender %d/%s", u.SenderID, u.Sender)
	}
	if u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestUpload_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"RECEIVED to AUTHORIZING", StatusReceived, StatusAuthorizing, false},
		{"AUTHORIZING to STAGING", StatusAuthorizing, StatusStaging, false},
		{"STAGING to PLACING", StatusStaging, StatusPlacing, false},
		{"PLACING to PUBLISHED", StatusPlacing, StatusPublished, false},
		{"PUBLISHED to DONE", StatusPublished, StatusDone, false},
		// FAILED is reachable from every non-terminal state
		{"RECEIVED to FAILED", StatusReceived, StatusFailed, false},
		{"AUTHORIZING to FAILED", StatusAuthorizing, StatusFailed, false},
		{"STAGING to FAILED", StatusStaging, StatusFailed, false},
		{"PLACING to FAILED", StatusPlacing, StatusFailed, false},
		{"PUBLISHED to FAILED", StatusPublished, StatusFailed, false},
		// Invalid transitions
		{"RECEIVED to STAGING", StatusReceived, StatusStaging, true},
		{"STAGING to PUBLISHED", StatusStaging, StatusPublished, true},
		{"AUTHORIZING to PLACING", StatusAuthorizing, StatusPlacing, true},
		{"DONE to FAILED", StatusDone, StatusFailed, true},
		{"FAILED to STAGING", StatusFailed, StatusStaging, true},
		{"DONE to RECEIVED", StatusDone, StatusReceived, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(testRequest())
			u.Status = tt.from

			err := u.TransitionTo(tt.to)

			if tt.wantErr && err == nil {
				t.Errorf("expected error for transition %s -> %s", tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for transition %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestUpload_TerminalTimestamps(t *testing.T) {
	u := New(testRequest())
	for _, s := range []Status{StatusAuthorizing, StatusStaging, StatusPlacing, StatusPublished} {
		if err := u.TransitionTo(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
		if u.IsTerminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
	if !u.CompletedAt.IsZero() {
		t.Error("CompletedAt set before a terminal state")
	}

	if err := u.TransitionTo(StatusDone); err != nil {
		t.Fatalf("transition to DONE: %v", err)
	}
	if !u.IsTerminal() || u.CompletedAt.IsZero() {
		t.Error("expected DONE to be terminal with CompletedAt set")
	}
}

func TestUpload_Fail(t *testing.T) {
	u := New(testRequest())
	_ = u.TransitionTo(StatusAuthorizing)
	_ = u.TransitionTo(StatusStaging)

	if err := u.Fail("disk full"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.GetStatus() != StatusFailed {
		t.Errorf("expected FAILED, got %s", u.GetStatus())
	}
	if u.Error != "disk full" {
		t.Errorf("expected error message, got %q", u.Error)
	}
	if err := u.Fail("again"); err == nil {
		t.Error("expected error failing a terminal upload")
	}
}

func TestUpload_UpdateProgress(t *testing.T) {
	u := New(testRequest())

	u.UpdateProgress(30)
	if u.Progress != 30 {
		t.Errorf("expected 30, got %d", u.Progress)
	}
	u.UpdateProgress(20)
	if u.Progress != 30 {
		t.Errorf("progress must not decrease, got %d", u.Progress)
	}
	u.UpdateProgress(150)
	if u.Progress != 100 {
		t.Errorf("expected clamp to 100, got %d", u.Progress)
	}
}

func TestUpload_Clone(t *testing.T) {
	u := New(testRequest())
	u.SetResult("2024-03-05", "https://yadi.sk/d/x")

	c := u.Clone()
	c.Filename = "changed"
	c.PublicURL = "changed"

	if u.Filename != "clip.mp4" || u.PublicURL != "https://yadi.sk/d/x" {
		t.Error("mutating the clone changed the original")
	}
	if c.DateFolder != "2024-03-05" {
		t.Errorf("clone lost DateFolder: %q", c.DateFolder)
	}
}

func TestRequest_Filename(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"original name", Request{FileName: "clip.mp4", FileUniqueID: "abc123"}, "clip.mp4"},
		{"generated name", Request{FileUniqueID: "abc123"}, "video_abc123.mp4"},
		{"nested name", Request{FileName: "a/b.mp4", FileUniqueID: "abc123"}, "b.mp4"},
		{"backslash name", Request{FileName: `a\b.mp4`, FileUniqueID: "abc123"}, "b.mp4"},
		{"parent directory", Request{FileName: "..", FileUniqueID: "abc123"}, "video_abc123.mp4"},
		{"trailing parent", Request{FileName: "a/..", FileUniqueID: "abc123"}, "video_abc123.mp4"},
		{"dot", Request{FileName: ".", FileUniqueID: "abc123"}, "video_abc123.mp4"},
		{"only slashes", Request{FileName: "//", FileUniqueID: "abc123"}, "video_abc123.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Filename(); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSender_DisplayName(t *testing.T) {
	if got := (Sender{Username: "alice", FirstName: "Alice"}).DisplayName(); got != "alice" {
		t.Errorf("expected username, got %q", got)
	}
	if got := (Sender{FirstName: "Alice"}).DisplayName(); got != "Alice" {
		t.Errorf("expected first name fallback, got %q", got)
	}
}

func TestRequest_SizeMB(t *testing.T) {
	r := Request{FileSize: 50 * 1024 * 1024}
	if r.SizeMB() != 50 {
		t.Errorf("expected 50, got %v", r.SizeMB())
	}
}
