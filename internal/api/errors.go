// Package api provides the Transfer Client: every exchange with the file
// server, each a single request/response, and the typed errors they return.
package api

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled marks a transfer stopped through its context.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrDownloadSuperseded marks a download replaced by a newer one.
	ErrDownloadSuperseded = errors.New("superseded by a newer download")
)

// Fallback messages shown to the user.
const (
	MsgMissingServerURL   = "Missing server URL."
	MsgMissingCredentials = "Missing username or password."
	MsgInvalidCredentials = "Invalid username or password."
)

// AuthErrorKind classifies a failed login.
type AuthErrorKind int

const (
	AuthMissingURL AuthErrorKind = iota
	AuthMissingCredentials
	AuthUnauthorized // HTTP 401
	AuthStatus       // any other non-200
	AuthTransport    // network failure, no response
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthMissingURL:
		return "missing-url"
	case AuthMissingCredentials:
		return "missing-credentials"
	case AuthUnauthorized:
		return "unauthorized"
	case AuthStatus:
		return "status"
	case AuthTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// AuthError is returned by Login.
type AuthError struct {
	Kind AuthErrorKind
	// Message is user-facing. For AuthUnauthorized it is the server's
	// "message" field when present, else MsgInvalidCredentials.
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Kind == AuthTransport && e.Err != nil {
		return fmt.Sprintf("login failed: %v", e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchErrorKind classifies a failed listing.
type FetchErrorKind int

const (
	FetchMissingURL FetchErrorKind = iota
	FetchTransport
	FetchStatus
	FetchDecode
)

// FetchError is returned by ListFiles. Individual malformed records never
// produce one; only a response that cannot be read as a list does.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchMissingURL:
		return MsgMissingServerURL
	case FetchStatus:
		return fmt.Sprintf("file list request failed with response code %d", e.StatusCode)
	case FetchDecode:
		return fmt.Sprintf("error parsing file list: %v", e.Err)
	default:
		return fmt.Sprintf("error fetching files: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// UploadErrorKind classifies a failed upload.
type UploadErrorKind int

const (
	UploadSource    UploadErrorKind = iota // local file could not be opened or read
	UploadTransport                        // network failure
	UploadStatus                           // non-200 response
	UploadCancelled
)

// UploadError is per file; it never affects sibling uploads.
type UploadError struct {
	FileName   string
	Kind       UploadErrorKind
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadSource:
		return fmt.Sprintf("upload %s: reading local file: %v", e.FileName, e.Err)
	case UploadStatus:
		return fmt.Sprintf("upload %s: server responded with code %d", e.FileName, e.StatusCode)
	case UploadCancelled:
		return fmt.Sprintf("upload %s: %v", e.FileName, ErrCancelled)
	default:
		return fmt.Sprintf("upload %s: %v", e.FileName, e.Err)
	}
}

// Unwrap exposes the cause; a cancelled upload also matches ErrCancelled.
func (e *UploadError) Unwrap() []error {
	if e.Kind == UploadCancelled {
		return causes(ErrCancelled, e.Err)
	}
	return causes(e.Err)
}

// DownloadErrorKind classifies a failed download.
type DownloadErrorKind int

const (
	DownloadTransport DownloadErrorKind = iota
	DownloadStatus
	DownloadStaging // writing or moving the staged file failed
	DownloadSpace   // not enough room in the staging area
	DownloadCancelled
)

// DownloadError is returned by the download path.
type DownloadError struct {
	FileName   string
	Kind       DownloadErrorKind
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	switch e.Kind {
	case DownloadStatus:
		return fmt.Sprintf("download %s: server responded with code %d", e.FileName, e.StatusCode)
	case DownloadStaging:
		return fmt.Sprintf("download %s: staging failed: %v", e.FileName, e.Err)
	case DownloadSpace:
		return fmt.Sprintf("download %s: %v", e.FileName, e.Err)
	case DownloadCancelled:
		if errors.Is(e.Err, ErrDownloadSuperseded) {
			return fmt.Sprintf("download %s: %v", e.FileName, ErrDownloadSuperseded)
		}
		return fmt.Sprintf("download %s: %v", e.FileName, ErrCancelled)
	default:
		return fmt.Sprintf("download %s: %v", e.FileName, e.Err)
	}
}

// Unwrap exposes the cause; a cancelled download also matches ErrCancelled.
func (e *DownloadError) Unwrap() []error {
	if e.Kind == DownloadCancelled {
		return causes(ErrCancelled, e.Err)
	}
	return causes(e.Err)
}

// DeleteErrorKind classifies a failed delete.
type DeleteErrorKind int

const (
	DeleteTransport DeleteErrorKind = iota
	DeleteStatus                    // non-200 response
	DeleteDecode                    // 200 but the body is not a JSON object
	DeleteRejected                  // 200 and JSON, but status is not "success"
)

// DeleteError is returned by DeleteFile.
type DeleteError struct {
	FileName   string
	Kind       DeleteErrorKind
	StatusCode int
	// Status is the body's "status" value for DeleteRejected.
	Status  string
	Message string
	Err     error
}

func (e *DeleteError) Error() string {
	switch e.Kind {
	case DeleteStatus:
		return fmt.Sprintf("delete %s: server responded with code %d", e.FileName, e.StatusCode)
	case DeleteDecode:
		return fmt.Sprintf("delete %s: error parsing delete response: %v", e.FileName, e.Err)
	case DeleteRejected:
		if e.Message != "" {
			return fmt.Sprintf("delete %s: file deletion failed: %s", e.FileName, e.Message)
		}
		return fmt.Sprintf("delete %s: file deletion failed (status %q)", e.FileName, e.Status)
	default:
		return fmt.Sprintf("delete %s: %v", e.FileName, e.Err)
	}
}

func (e *DeleteError) Unwrap() error { return e.Err }

func causes(errs ...error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
