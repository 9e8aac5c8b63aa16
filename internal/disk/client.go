package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Static errors for Yandex Disk client operations.
var (
	// ErrTokenRequired is returned when the OAuth token is not provided.
	ErrTokenRequired = errors.New("disk: OAuth token is required")
	// ErrPathRequired is returned when a remote path is empty.
	ErrPathRequired = errors.New("disk: path is required")
	// ErrNoUploadURL is returned when the upload-target response has no href.
	ErrNoUploadURL = errors.New("disk: no upload URL returned")
	// ErrNotPublished is returned when a resource has no public link.
	ErrNotPublished = errors.New("disk: resource is not published")
)

const (
	// DefaultBaseURL is the Yandex Disk REST API root.
	DefaultBaseURL = "https://cloud-api.yandex.net/v1/disk"
	// DefaultRootFolder is the folder every date folder is created under.
	DefaultRootFolder = "Alisa"
)

const apiTimeout = 30 * time.Second

// UploadBudget bounds the byte-upload step. Exceeding any budget fails the
// upload with a transport error.
type UploadBudget struct {
	// Total covers the whole transfer including the response.
	Total time.Duration
	// Connect covers dialing and the TLS handshake.
	Connect time.Duration
	// Stall covers any single read or write, and the wait for response headers.
	Stall time.Duration
}

// DefaultUploadBudget returns the budgets used when none are configured.
func DefaultUploadBudget() UploadBudget {
	return UploadBudget{
		Total:   30 * time.Minute,
		Connect: 30 * time.Second,
		Stall:   5 * time.Minute,
	}
}

// withDefaults fills zero fields from DefaultUploadBudget.
func (b UploadBudget) withDefaults() UploadBudget {
	d := DefaultUploadBudget()
	if b.Total <= 0 {
		b.Total = d.Total
	}
	if b.Connect <= 0 {
		b.Connect = d.Connect
	}
	if b.Stall <= 0 {
		b.Stall = d.Stall
	}
	return b
}

// Client defines the operations the bot performs against Yandex Disk.
type Client interface {
	// EnsureFolder creates the folder if it is absent and reports whether it was created.
	EnsureFolder(ctx context.Context, path string) (created bool, err error)

	// UploadFile streams a local file to remotePath without overwriting.
	UploadFile(ctx context.Context, localPath, remotePath string) error

	// PublishFolder makes the folder public and returns its public link.
	PublishFolder(ctx context.Context, path string) (publicURL string, err error)

	// PublicURL returns the public link of a published resource.
	PublicURL(ctx context.Context, path string) (string, error)

	// Stats returns disk usage statistics.
	Stats(ctx context.Context) (Stats, error)

	// Remove permanently deletes a file or folder.
	Remove(ctx context.Context, path string) error

	// UploadVideo places a file under root/dateFolder and returns the
	// public link of the date folder.
	UploadVideo(ctx context.Context, localPath, dateFolder, filename string) (publicURL string, err error)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// HTTPClient is the HTTP implementation of the Client interface.
type HTTPClient struct {
	token        string
	baseURL      string
	rootFolder   string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *slog.Logger

	// folders remembers paths known to exist, keyed by full path.
	mu      sync.RWMutex
	folders map[string]time.Time
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRootFolder sets the folder date folders are created under.
func WithRootFolder(name string) ClientOption {
	return func(c *HTTPClient) {
		c.rootFolder = strings.Trim(name, "/")
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithUploadClient sets the HTTP client used to stream file bytes.
func WithUploadClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.uploadClient = hc
	}
}

// WithUploadBudget replaces the upload client with one bounded by b.
// Zero fields keep their defaults.
func WithUploadBudget(b UploadBudget) ClientOption {
	return func(c *HTTPClient) {
		c.uploadClient = newUploadClient(b)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new Yandex Disk HTTP client authorized by token.
func NewClient(token string, opts ...ClientOption) (*HTTPClient, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	c := &HTTPClient{
		token:        token,
		baseURL:      DefaultBaseURL,
		rootFolder:   DefaultRootFolder,
		httpClient:   newAPIClient(),
		uploadClient: newUploadClient(DefaultUploadBudget()),
		logger:       slog.Default(),
		folders:      make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// RootFolder returns the configured root folder.
func (c *HTTPClient) RootFolder() string {
	return c.rootFolder
}

// EnsureFolder creates the folder at path. A folder that already exists is
// not an error: it returns false. Known folders are skipped without a request.
func (c *HTTPClient) EnsureFolder(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, ErrPathRequired
	}

	if c.folderKnown(path) {
		c.logger.Debug("folder already exists (cached)", slog.String("path", path))
		return false, nil
	}

	err := c.doRequest(ctx, http.MethodPut, "/resources", url.Values{"path": {path}}, nil)
	if err == nil {
		c.rememberFolder(path)
		c.logger.Info("folder created", slog.String("path", path))
		return true, nil
	}

	if folderExists(err) {
		c.rememberFolder(path)
		c.logger.Info("folder already exists", slog.String("path", path))
		return false, nil
	}

	return false, err
}

// UploadFile requests a one-time upload target for remotePath (refusing to
// overwrite) and streams localPath to it.
func (c *HTTPClient) UploadFile(ctx context.Context, localPath, remotePath string) error {
	if remotePath == "" {
		return ErrPathRequired
	}

	c.logger.Info("requesting upload URL", slog.String("remote_path", remotePath))

	var target link
	query := url.Values{"path": {remotePath}, "overwrite": {"false"}}
	if err := c.doRequest(ctx, http.MethodGet, "/resources/upload", query, &target); err != nil {
		return err
	}
	if target.Href == "" {
		return ErrNoUploadURL
	}

	f, err := os.Open(localPath) // #nosec G304 - path comes from the staging area
	if err != nil {
		return fmt.Errorf("disk: open local file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("disk: stat local file: %w", err)
	}

	var body io.Reader = f
	if info.Size() == 0 {
		body = http.NoBody
	}

	method := target.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, target.Href, body)
	if err != nil {
		return fmt.Errorf("disk: create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Content-Type", "application/octet-stream")

	c.logger.Info("uploading file",
		slog.String("remote_path", remotePath),
		slog.Float64("size_mb", float64(info.Size())/(1024*1024)),
	)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return fmt.Errorf("disk: upload request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, respBody)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("file uploaded", slog.String("remote_path", remotePath))
	return nil
}

// PublishFolder makes the folder public and returns its public link.
// Publishing an already published folder succeeds.
func (c *HTTPClient) PublishFolder(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", ErrPathRequired
	}

	err := c.doRequest(ctx, http.MethodPut, "/resources/publish", url.Values{"path": {path}}, nil)
	switch {
	case err == nil:
		c.logger.Info("folder published", slog.String("path", path))
	case isStatus(err, http.StatusConflict):
		c.logger.Info("folder already published", slog.String("path", path))
	default:
		return "", err
	}

	return c.PublicURL(ctx, path)
}

// PublicURL returns the public link of path, or ErrNotPublished.
func (c *HTTPClient) PublicURL(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", ErrPathRequired
	}

	var meta resource
	if err := c.doRequest(ctx, http.MethodGet, "/resources", url.Values{"path": {path}}, &meta); err != nil {
		return "", err
	}
	if meta.PublicURL == "" {
		return "", fmt.Errorf("%w: %s", ErrNotPublished, path)
	}
	return meta.PublicURL, nil
}

// Stats returns disk usage in gigabytes.
func (c *HTTPClient) Stats(ctx context.Context) (Stats, error) {
	var info diskInfo
	if err := c.doRequest(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return Stats{}, err
	}
	return newStats(info.TotalSpace, info.UsedSpace), nil
}

// Remove permanently deletes path. A missing resource is not an error.
// Large folders are removed asynchronously by the provider.
func (c *HTTPClient) Remove(ctx context.Context, path string) error {
	if path == "" {
		return ErrPathRequired
	}

	err := c.doRequest(ctx, http.MethodDelete, "/resources", url.Values{"path": {path}, "permanently": {"true"}}, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return err
	}

	c.forgetFolder(path)
	c.logger.Info("resource removed", slog.String("path", path))
	return nil
}

// UploadVideo ensures root and root/dateFolder exist, uploads the file to
// root/dateFolder/filename, publishes the date folder and returns its link.
// The first failing step aborts the sequence.
func (c *HTTPClient) UploadVideo(ctx context.Context, localPath, dateFolder, filename string) (string, error) {
	if _, err := c.EnsureFolder(ctx, c.rootFolder); err != nil {
		return "", err
	}

	folder := c.rootFolder + "/" + dateFolder
	if _, err := c.EnsureFolder(ctx, folder); err != nil {
		return "", err
	}

	if err := c.UploadFile(ctx, localPath, folder+"/"+filename); err != nil {
		return "", err
	}

	return c.PublishFolder(ctx, folder)
}

func (c *HTTPClient) folderKnown(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.folders[path]
	return ok
}

func (c *HTTPClient) rememberFolder(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.folders[path]; !ok {
		c.folders[path] = time.Now()
	}
}

func (c *HTTPClient) forgetFolder(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for known := range c.folders {
		if known == path || strings.HasPrefix(known, path+"/") {
			delete(c.folders, known)
		}
	}
}

// doRequest performs a single API request and decodes a JSON response into result.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, query url.Values, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("disk: create request: %w", err)
	}

	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("disk: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("disk: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("disk: unmarshal response: %w", err)
		}
	}

	return nil
}

// isStatus reports whether err is an APIError with the given status code.
func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// folderExists reports whether err means the folder is already there.
func folderExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusConflict && apiErr.Code != codePathDoesntExist
}

// newAPIClient returns the client for metadata calls. Keep-alives are off so
// every call is a self-contained exchange.
func newAPIClient() *http.Client {
	return &http.Client{
		Timeout: apiTimeout,
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
	}
}

// newUploadClient returns the client for large sequential transfers.
func newUploadClient(b UploadBudget) *http.Client {
	b = b.withDefaults()
	dialer := &net.Dialer{Timeout: b.Connect}
	return &http.Client{
		Timeout: b.Total,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := dialer.DialContext(ctx, network, addr)
				if err != nil {
					return nil, err
				}
				return &stallConn{Conn: conn, timeout: b.Stall}, nil
			},
			TLSHandshakeTimeout:   b.Connect,
			ResponseHeaderTimeout: b.Stall,
			DisableKeepAlives:     true,
		},
	}
}

// stallConn fails a read or write that makes no progress within timeout.
type stallConn struct {
	net.Conn
	timeout time.Duration
}

func (c *stallConn) Read(b []byte) (int, error) {
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(b)
}

func (c *stallConn) Write(b []byte) (int, error) {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.Conn.Write(b)
}
