package webdav

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"nextcloud-stress/internal/config"
)

// Client talks WebDAV and OCS to a single Nextcloud node as one user.
type Client struct {
	BaseURL        string // server root, e.g. https://sunet.drive.test.example.org
	Username       string
	Password       string
	UserAgent      string
	ChunkSize      int64
	ChunkThreshold int64 // files at least this large use chunked upload; 0 disables
	Client         *http.Client
	Logger         *slog.Logger

	root string // "files" or "trashbin"
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.Client.Timeout = d
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		if t, ok := c.Client.Transport.(*http.Transport); ok && skip {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}
}

// WithChunking sets the chunk size and the threshold above which uploads are
// chunked.
func WithChunking(size, threshold int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.ChunkSize = size
		}
		c.ChunkThreshold = threshold
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// NewClient returns a client for the files collection of user on the node
// at baseURL.
func NewClient(baseURL, user, pass string, opts ...Option) *Client {
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Username:  user,
		Password:  pass,
		UserAgent: config.DefaultUserAgent,
		ChunkSize: config.DefaultChunkSize,
		Client: &http.Client{
			Timeout: config.DefaultHTTPTimeout,
			Transport: &http.Transport{
				Proxy:        http.ProxyFromEnvironment,
				TLSNextProto: make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			},
		},
		Logger: slog.New(slog.DiscardHandler),
		root:   "files",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Trashbin returns a client sharing this client's connection that addresses
// the user's trash bin instead of their files.
func (c *Client) Trashbin() *Client {
	tc := *c
	tc.root = "trashbin"

	return &tc
}

// davURL builds the absolute URL of remotePath below the client's root.
func (c *Client) davURL(remotePath string) string {
	return fmt.Sprintf("%s/remote.php/dav/%s/%s/%s", c.BaseURL, c.root, url.PathEscape(c.Username), escapePath(remotePath))
}

func escapePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}

	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("User-Agent", c.UserAgent)

	return req, nil
}

type CapabilitiesResponse struct {
	Ocs struct {
		Data struct {
			Version struct {
				Major   int    `json:"major"`
				Minor   int    `json:"minor"`
				Micro   int    `json:"micro"`
				String  string `json:"string"`
				Edition string `json:"edition"`
			} `json:"version"`
			Capabilities struct {
				Files struct {
					BigFileChunking bool `json:"bigfilechunking"`
				} `json:"files"`
				Core struct {
					PollInterval int `json:"pollinterval"`
				} `json:"core"`
			} `json:"capabilities"`
		} `json:"data"`
	} `json:"ocs"`
}

type StatusResponse struct {
	Installed      bool   `json:"installed"`
	Maintenance    bool   `json:"maintenance"`
	NeedsDbUpgrade bool   `json:"needsDbUpgrade"`
	Version        string `json:"version"`
	VersionString  string `json:"versionstring"`
	Edition        string `json:"edition"`
	ProductName    string `json:"productname"`
}

// GetStatus fetches the unauthenticated status.php document.
func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	endpoint := c.BaseURL + "/status.php"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewGETError(resp.StatusCode, "/status.php")
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to parse status.php: %w", err)
	}

	return &status, nil
}

// GetCapabilities fetches the OCS capabilities of the node.
func (c *Client) GetCapabilities(ctx context.Context) (*CapabilitiesResponse, error) {
	endpoint := c.BaseURL + "/ocs/v1.php/cloud/capabilities?format=json"
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("OCS-APIRequest", "true")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewGETError(resp.StatusCode, "/ocs/v1.php/cloud/capabilities")
	}

	var caps CapabilitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return nil, fmt.Errorf("failed to parse capabilities: %w", err)
	}

	return &caps, nil
}

// Upload performs a single PUT of size bytes read from data.
func (c *Client) Upload(ctx context.Context, remotePath string, data io.Reader, size int64) (time.Duration, error) {
	targetURL := c.davURL(remotePath)

	if size == 0 {
		data = http.NoBody
	}

	start := time.Now()
	c.Logger.Debug("PUT", "url", targetURL, "bytes", size)
	req, err := c.newRequest(ctx, http.MethodPut, targetURL, data)
	if err != nil {
		return 0, err
	}
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, NewPUTError(resp.StatusCode, remotePath)
	}

	return time.Since(start), nil
}

// UploadFile uploads a local file, switching to chunked upload when the
// file reaches ChunkThreshold.
func (c *Client) UploadFile(ctx context.Context, remotePath, localPath string) (time.Duration, error) {
	f, size, err := openSized(localPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return c.upload(ctx, remotePath, f, size)
}

// UploadAsync submits an upload of localPath and returns immediately. Errors
// detected before any request is made (unreadable file, cancelled context)
// are returned synchronously and done is not called. Otherwise done is
// called exactly once, from another goroutine, with the upload's result.
func (c *Client) UploadAsync(ctx context.Context, remotePath, localPath string, done func(error)) error {
	if err := ctx.Err(); err != nil {
		return NewSubmitError(localPath, err)
	}

	f, size, err := openSized(localPath)
	if err != nil {
		return NewSubmitError(localPath, err)
	}

	go func() {
		defer f.Close()
		_, err := c.upload(ctx, remotePath, f, size)
		done(err)
	}()

	return nil
}

func (c *Client) upload(ctx context.Context, remotePath string, f *os.File, size int64) (time.Duration, error) {
	if c.ChunkThreshold > 0 && size >= c.ChunkThreshold {
		return c.UploadChunked(ctx, remotePath, f, size)
	}

	return c.Upload(ctx, remotePath, f, size)
}

func openSized(localPath string) (*os.File, int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return f, info.Size(), nil
}

// Download retrieves a file and returns a ReadCloser
func (c *Client) Download(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	targetURL := c.davURL(remotePath)
	c.Logger.Debug("GET", "url", targetURL)

	req, err := c.newRequest(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, NewGETError(resp.StatusCode, remotePath)
	}

	return resp.Body, nil
}

// UploadChunked performs a Chunking V2 upload: MKCOL an upload folder, PUT
// numbered chunks into it, then MOVE the assembled .file into place.
func (c *Client) UploadChunked(ctx context.Context, remotePath string, data io.Reader, totalSize int64) (time.Duration, error) {
	uploadFolder := fmt.Sprintf("%s/remote.php/dav/uploads/%s/%s", c.BaseURL, url.PathEscape(c.Username), uuid.NewString())
	destination := c.davURL(remotePath)

	start := time.Now()

	c.Logger.Debug("MKCOL", "url", uploadFolder)
	req, err := c.newRequest(ctx, "MKCOL", uploadFolder, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Destination", destination)
	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return 0, NewMKCOLError(resp.StatusCode, uploadFolder)
	}

	buf := make([]byte, c.ChunkSize)
	chunkIndex := 0

	for {
		n, err := io.ReadFull(data, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, NewChunkUploadError(chunkIndex+1, err)
		}
		if n == 0 {
			break
		}

		// Nextcloud orders chunks by name; zero padding keeps them sortable.
		chunkURL := fmt.Sprintf("%s/%05d", uploadFolder, chunkIndex+1)

		chunkReq, err := c.newRequest(ctx, http.MethodPut, chunkURL, bytes.NewReader(buf[:n]))
		if err != nil {
			return 0, err
		}
		chunkReq.Header.Set("Destination", destination)
		chunkReq.Header.Set("OC-Total-Length", fmt.Sprintf("%d", totalSize))

		c.Logger.Debug("uploading chunk", "chunk", chunkIndex+1, "bytes", n)
		cResp, err := c.Client.Do(chunkReq)
		if err != nil {
			return 0, NewChunkUploadError(chunkIndex+1, err)
		}
		cResp.Body.Close()

		if cResp.StatusCode < 200 || cResp.StatusCode > 299 {
			return 0, NewChunkUploadError(chunkIndex+1, fmt.Errorf("HTTP %d", cResp.StatusCode))
		}

		chunkIndex++
		if n < len(buf) {
			break
		}
	}

	// The MOVE source is the virtual .file inside the upload folder.
	moveSource := uploadFolder + "/.file"
	c.Logger.Debug("MOVE", "from", moveSource, "to", destination)

	moveReq, err := c.newRequest(ctx, "MOVE", moveSource, nil)
	if err != nil {
		return 0, err
	}
	moveReq.Header.Set("Destination", destination)
	moveReq.Header.Set("Overwrite", "T")
	moveReq.Header.Set("OC-Total-Length", fmt.Sprintf("%d", totalSize))

	// Assembly of large files can take far longer than a normal request.
	moveClient := &http.Client{
		Timeout:   config.MOVEOperationTimeout,
		Transport: c.Client.Transport,
	}

	moveResp, err := moveClient.Do(moveReq)
	if err != nil {
		return 0, err
	}
	defer moveResp.Body.Close()

	if moveResp.StatusCode < 200 || moveResp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(moveResp.Body, 4096))
		return 0, NewMOVEError(moveResp.StatusCode, string(b))
	}

	return time.Since(start), nil
}

// Mkdir creates remotePath and any missing parents. Existing collections
// are not an error.
func (c *Client) Mkdir(ctx context.Context, remotePath string) error {
	parts := strings.Split(strings.Trim(remotePath, "/"), "/")
	for i := range parts {
		if err := c.mkcol(ctx, strings.Join(parts[:i+1], "/")); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) mkcol(ctx context.Context, remotePath string) error {
	c.Logger.Debug("MKCOL", "path", remotePath)

	req, err := c.newRequest(ctx, "MKCOL", c.davURL(remotePath), nil)
	if err != nil {
		return err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 405 Method Not Allowed means it already exists
	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusMethodNotAllowed {
		return nil
	}

	return NewMKCOLError(resp.StatusCode, remotePath)
}

// Delete removes a file or collection. A missing resource is not an error.
func (c *Client) Delete(ctx context.Context, remotePath string) error {
	c.Logger.Debug("DELETE", "path", remotePath)

	req, err := c.newRequest(ctx, http.MethodDelete, c.davURL(remotePath), nil)
	if err != nil {
		return err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return nil
	}

	return NewDeleteError(resp.StatusCode, remotePath)
}
