package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"

	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/constants"
	"github.com/easyfiletransfer/eft/internal/http"
	"github.com/easyfiletransfer/eft/internal/logging"
	"github.com/easyfiletransfer/eft/internal/models"
	"github.com/easyfiletransfer/eft/internal/util/multipart"
)

// CredentialsProvider supplies the session settings at call time.
// config.Store implements it.
type CredentialsProvider interface {
	Credentials() config.Credentials
}

// retryLogger implements the retryablehttp.LeveledLogger interface on zerolog.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// request-level chatter is not interesting at info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// Client is the Transfer Client. Every call reads the credentials afresh
// from the provider; the server URL is both the listing and the action
// endpoint, the server tells requests apart by method and body.
type Client struct {
	session        CredentialsProvider
	httpClient     *nethttp.Client // login, list, delete
	transferClient *nethttp.Client // upload, download (streaming, no overall timeout)
	logger         *logging.Logger
}

// NewClient creates a client using the proxy settings in proxy.
func NewClient(session CredentialsProvider, proxy config.ProxyConfig, logger *logging.Logger) (*Client, error) {
	logger = logging.OrNop(logger).Component("api")

	httpClient, err := http.ConfigureHTTPClient(proxy, session.Credentials().ServerURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	transferClient, err := http.CreateTransferClient(proxy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transfer client: %w", err)
	}

	return NewClientWithHTTP(session, httpClient, transferClient, logger), nil
}

// NewClientWithHTTP creates a client on top of existing HTTP clients.
// Unless either already has one, both get the same cookie jar: the server
// keeps the login session in a cookie that uploads and downloads must carry.
//
// Exchanges go through retryablehttp with retries disabled: the server
// protocol has no idempotency guarantees (a repeated delete or upload is not
// safe), so a failure is reported once and left to the user.
func NewClientWithHTTP(session CredentialsProvider, httpClient, transferClient *nethttp.Client, logger *logging.Logger) *Client {
	logger = logging.OrNop(logger)

	if httpClient.Jar == nil && transferClient.Jar == nil {
		if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
			httpClient.Jar = jar
			transferClient.Jar = jar
		}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = 0
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &retryLogger{logger: logger}

	return &Client{
		session:        session,
		httpClient:     retryClient.StandardClient(),
		transferClient: transferClient,
		logger:         logger,
	}
}

// Session returns a snapshot of the credentials the next request will use.
func (c *Client) Session() config.Credentials {
	return c.session.Credentials()
}

// postForm sends a form-encoded POST to serverURL.
func (c *Client) postForm(ctx context.Context, serverURL, body string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, serverURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.httpClient.Do(req)
}

// readBody reads at most MaxResponseBodyBytes and closes the body.
func readBody(resp *nethttp.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBodyBytes))
}

// Login posts username and password to the server URL.
// 200 is success. 401 yields AuthUnauthorized carrying the body's "message"
// field if present. Any other status yields AuthStatus.
func (c *Client) Login(ctx context.Context, creds config.Credentials) error {
	if strings.TrimSpace(creds.ServerURL) == "" {
		return &AuthError{Kind: AuthMissingURL, Message: MsgMissingServerURL}
	}
	if _, err := url.ParseRequestURI(creds.ServerURL); err != nil {
		return &AuthError{Kind: AuthMissingURL, Message: MsgMissingServerURL, Err: err}
	}
	if creds.Username == "" || creds.Password == "" {
		return &AuthError{Kind: AuthMissingCredentials, Message: MsgMissingCredentials}
	}

	body := "username=" + url.QueryEscape(creds.Username) + "&password=" + url.QueryEscape(creds.Password)

	start := time.Now()
	resp, err := c.postForm(ctx, creds.ServerURL, body)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error logging in")
		return &AuthError{Kind: AuthTransport, Message: err.Error(), Err: err}
	}
	data, _ := readBody(resp)

	switch resp.StatusCode {
	case nethttp.StatusOK:
		c.logger.Debug().Dur("took", time.Since(start)).Msg("Logged in")
		return nil
	case nethttp.StatusUnauthorized:
		msg := MsgInvalidCredentials
		var payload struct {
			Message *string `json:"message"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Message != nil {
			msg = *payload.Message
		}
		return &AuthError{Kind: AuthUnauthorized, Message: msg, StatusCode: resp.StatusCode}
	default:
		return &AuthError{
			Kind:       AuthStatus,
			Message:    fmt.Sprintf("Login failed with response code %d.", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
}

// ListFiles fetches the remote file list.
func (c *Client) ListFiles(ctx context.Context) ([]models.FileRecord, error) {
	creds := c.session.Credentials()
	if strings.TrimSpace(creds.ServerURL) == "" {
		return nil, &FetchError{Kind: FetchMissingURL}
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, creds.ServerURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchMissingURL, Err: err}
	}
	req.Header.Set(constants.RequestedWithHeader, constants.RequestedWithValue)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error fetching files")
		return nil, &FetchError{Kind: FetchTransport, Err: err}
	}
	data, err := readBody(resp)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Err: err}
	}
	if resp.StatusCode != nethttp.StatusOK {
		return nil, &FetchError{Kind: FetchStatus, StatusCode: resp.StatusCode}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &FetchError{Kind: FetchDecode, Err: errors.New("no data received")}
	}

	records, skipped, err := models.DecodeFileList(data)
	if err != nil {
		return nil, &FetchError{Kind: FetchDecode, Err: err}
	}
	if skipped > 0 {
		c.logger.Warn().Int("skipped", skipped).Msg("Ignored malformed file list entries")
	}
	c.logger.Debug().Int("files", len(records)).Msg("Fetched file list")
	return records, nil
}

// DeleteFile asks the server to delete name. Success needs both HTTP 200
// and a JSON body whose "status" is "success".
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	creds := c.session.Credentials()
	if strings.TrimSpace(creds.ServerURL) == "" {
		return &DeleteError{FileName: name, Kind: DeleteTransport, Err: errors.New(MsgMissingServerURL)}
	}

	resp, err := c.postForm(ctx, creds.ServerURL, "delete="+url.QueryEscape(name))
	if err != nil {
		return &DeleteError{FileName: name, Kind: DeleteTransport, Err: err}
	}
	data, err := readBody(resp)
	if err != nil {
		return &DeleteError{FileName: name, Kind: DeleteTransport, Err: err}
	}
	if resp.StatusCode != nethttp.StatusOK {
		return &DeleteError{FileName: name, Kind: DeleteStatus, StatusCode: resp.StatusCode}
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &DeleteError{FileName: name, Kind: DeleteDecode, StatusCode: resp.StatusCode, Err: err}
	}
	if payload.Status != constants.DeleteSuccessStatus {
		return &DeleteError{
			FileName:   name,
			Kind:       DeleteRejected,
			StatusCode: resp.StatusCode,
			Status:     payload.Status,
			Message:    payload.Message,
		}
	}
	return nil
}

// ProgressFunc receives cumulative bytes moved and the expected total
// (-1 when unknown).
type ProgressFunc func(transferred, expected int64)

// countingReader reports every read to a ProgressFunc.
type countingReader struct {
	r        io.Reader
	n        int64
	expected int64
	report   ProgressFunc
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		if cr.report != nil {
			cr.report(cr.n, cr.expected)
		}
	}
	return n, err
}

// sourceError marks a failure reading the local file, as opposed to the wire.
type sourceError struct{ err error }

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// sourceReader tags read errors from the local content.
type sourceReader struct{ r io.Reader }

func (s sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = &sourceError{err}
	}
	return n, err
}

// UploadFile sends content as one multipart/form-data POST to the server URL
// (one request per file). length is the content length in bytes or -1.
// onProgress is called with bytes of the whole request body sent so far.
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader, length int64, onProgress ProgressFunc) error {
	creds := c.session.Credentials()
	if strings.TrimSpace(creds.ServerURL) == "" {
		return &UploadError{FileName: fileName, Kind: UploadTransport, Err: errors.New(MsgMissingServerURL)}
	}

	body := multipart.NewFileBody(multipart.NewBoundary(), constants.UploadFieldName, fileName, sourceReader{content}, length)
	total := body.Len()
	reader := &countingReader{r: body.Reader(), expected: total, report: onProgress}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, creds.ServerURL, io.NopCloser(reader))
	if err != nil {
		return &UploadError{FileName: fileName, Kind: UploadTransport, Err: err}
	}
	req.Header.Set("Content-Type", body.ContentType())
	if total >= 0 {
		req.ContentLength = total
	} else {
		req.ContentLength = -1
	}

	resp, err := c.transferClient.Do(req)
	if err != nil {
		var se *sourceError
		switch {
		case ctx.Err() != nil:
			return &UploadError{FileName: fileName, Kind: UploadCancelled, Err: ctx.Err()}
		case errors.As(err, &se):
			return &UploadError{FileName: fileName, Kind: UploadSource, Err: se.err}
		default:
			return &UploadError{FileName: fileName, Kind: UploadTransport, Err: err}
		}
	}
	_, _ = readBody(resp)

	if resp.StatusCode != nethttp.StatusOK {
		return &UploadError{FileName: fileName, Kind: UploadStatus, StatusCode: resp.StatusCode}
	}
	return nil
}

// DownloadURL returns the download URL for name with a fresh cache-busting
// uuid parameter.
func DownloadURL(serverURL, name string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("download", name)
	q.Set("uuid", uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DownloadStream is an open download response.
type DownloadStream struct {
	Body io.ReadCloser
	// ContentLength is the server-reported size, or -1 if not reported.
	ContentLength int64
}

// OpenDownload issues the download GET and returns the body on HTTP 200.
// The caller must close Body.
func (c *Client) OpenDownload(ctx context.Context, name string) (*DownloadStream, error) {
	creds := c.session.Credentials()
	target, err := DownloadURL(creds.ServerURL, name)
	if err != nil || strings.TrimSpace(creds.ServerURL) == "" {
		return nil, &DownloadError{FileName: name, Kind: DownloadTransport, Err: errors.New(MsgMissingServerURL)}
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, target, nil)
	if err != nil {
		return nil, &DownloadError{FileName: name, Kind: DownloadTransport, Err: err}
	}

	resp, err := c.transferClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &DownloadError{FileName: name, Kind: DownloadCancelled, Err: ctx.Err()}
		}
		return nil, &DownloadError{FileName: name, Kind: DownloadTransport, Err: err}
	}
	if resp.StatusCode != nethttp.StatusOK {
		_, _ = readBody(resp)
		return nil, &DownloadError{FileName: name, Kind: DownloadStatus, StatusCode: resp.StatusCode}
	}

	return &DownloadStream{Body: resp.Body, ContentLength: resp.ContentLength}, nil
}
