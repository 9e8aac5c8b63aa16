package telegram

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/maauso/videobackup-bot/internal/upload"
)

const (
	downloadConnectTimeout = 30 * time.Second
	downloadHeaderTimeout  = time.Minute
)

// fileSource returns a Source that resolves fileID and streams its bytes.
func (c *Client) fileSource(fileID string) upload.Source {
	return upload.SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		return c.openFile(ctx, fileID)
	})
}

// openFile resolves fileID with getFile and opens its content. A self-hosted
// Bot API server in local mode returns an absolute path on the shared
// filesystem instead of a downloadable one.
func (c *Client) openFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("telegram: get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("telegram: get file %s: no file path returned", fileID)
	}

	if filepath.IsAbs(file.FilePath) {
		f, err := os.Open(file.FilePath) // #nosec G304 - path comes from the Bot API server
		if err != nil {
			return nil, fmt.Errorf("telegram: open local file: %w", err)
		}
		return f, nil
	}

	url := fmt.Sprintf(c.fileEndpoint, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: create download request: %w", err)
	}

	resp, err := c.fileClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("telegram: download file: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// newFileClient has no overall timeout; transfers are bounded by the
// caller's context.
func newFileClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: downloadConnectTimeout}).DialContext,
			TLSHandshakeTimeout:   downloadConnectTimeout,
			ResponseHeaderTimeout: downloadHeaderTimeout,
		},
	}
}
