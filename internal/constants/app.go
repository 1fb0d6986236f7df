// Package constants holds the tunables shared by the transfer pipeline.
package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for config and staging directory names.
	AppName = "eft"

	// SettingsFileName is the INI file holding the session settings.
	SettingsFileName = "settings"

	// StagingDirName is the default staging directory under os.TempDir().
	StagingDirName = "eft-staging"

	// DefaultStagedFileName is used when a remote name reduces to nothing usable.
	DefaultStagedFileName = "downloaded_file"

	// DefaultImageName is used for picked images without a suggested name.
	DefaultImageName = "image.jpg"
)

// Server protocol
const (
	// UploadFieldName is the multipart field the server reads uploads from.
	UploadFieldName = "files[]"

	// RequestedWithHeader marks list requests so the server answers with JSON.
	RequestedWithHeader = "X-Requested-With"

	// RequestedWithValue is the value the server expects for list requests.
	RequestedWithValue = "XMLHttpRequest"

	// DeleteSuccessStatus is the status value of a successful delete.
	DeleteSuccessStatus = "success"

	// MaxResponseBodyBytes caps JSON/form responses read into memory (4 MB).
	MaxResponseBodyBytes = 4 * 1024 * 1024
)

// Disk space safety margin
const (
	// DiskSpaceSafetyMargin - multiplier applied to the expected download size
	// before checking the staging filesystem (10%).
	DiskSpaceSafetyMargin = 1.1
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// Transfers
const (
	// CopyBufferSize - buffer used when streaming bodies (256 KB)
	CopyBufferSize = 256 * 1024

	// ProgressUpdateInterval - minimum time between published progress events (100ms)
	ProgressUpdateInterval = 100 * time.Millisecond
)

// API and Context Timeouts
const (
	// APIContextTimeout - default timeout for login/list/delete exchanges (30 seconds)
	APIContextTimeout = 30 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPClientTimeout - overall timeout for the request/response client (300 seconds).
	// Streaming transfers use a client with no overall timeout.
	HTTPClientTimeout = 300 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request (15 seconds)
	ProxyWarmupTimeout = 15 * time.Second

	// DefaultProxyPort is used when a proxy host is set without a port.
	DefaultProxyPort = 8080
)
