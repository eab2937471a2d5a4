package webdav

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for WebDAV operations
var (
	ErrMOVEFailed        = errors.New("MOVE operation failed")
	ErrChunkUploadFailed = errors.New("chunk upload failed")
	ErrMKCOLFailed       = errors.New("MKCOL operation failed")
	ErrDeleteFailed      = errors.New("DELETE operation failed")
	ErrUnauthorized      = errors.New("authentication failed")
	ErrNotFound          = errors.New("resource not found")
	ErrPUTFailed         = errors.New("PUT operation failed")
	ErrGETFailed         = errors.New("GET operation failed")
	ErrPROPFINDFailed    = errors.New("PROPFIND operation failed")
	ErrSubmitFailed      = errors.New("upload could not be submitted")
)

// statusError wraps a sentinel with the HTTP status and the remote path. A
// 401 also matches ErrUnauthorized and a 404 also matches ErrNotFound.
func statusError(sentinel error, statusCode int, path string) error {
	err := fmt.Errorf("%w: HTTP %d for path %s", sentinel, statusCode, path)
	switch statusCode {
	case http.StatusUnauthorized:
		return errors.Join(err, ErrUnauthorized)
	case http.StatusNotFound:
		return errors.Join(err, ErrNotFound)
	}

	return err
}

// NewMOVEError wraps ErrMOVEFailed with additional context
func NewMOVEError(statusCode int, body string) error {
	return fmt.Errorf("%w: HTTP %d - %s", ErrMOVEFailed, statusCode, body)
}

// NewChunkUploadError wraps ErrChunkUploadFailed with additional context
func NewChunkUploadError(chunkNum int, err error) error {
	return fmt.Errorf("%w: chunk %d - %v", ErrChunkUploadFailed, chunkNum, err)
}

// NewMKCOLError wraps ErrMKCOLFailed with additional context
func NewMKCOLError(statusCode int, path string) error {
	return statusError(ErrMKCOLFailed, statusCode, path)
}

// NewDeleteError wraps ErrDeleteFailed with additional context
func NewDeleteError(statusCode int, path string) error {
	return statusError(ErrDeleteFailed, statusCode, path)
}

// NewPUTError wraps ErrPUTFailed with additional context
func NewPUTError(statusCode int, path string) error {
	return statusError(ErrPUTFailed, statusCode, path)
}

// NewGETError wraps ErrGETFailed with additional context
func NewGETError(statusCode int, path string) error {
	return statusError(ErrGETFailed, statusCode, path)
}

// NewPROPFINDError wraps ErrPROPFINDFailed with additional context
func NewPROPFINDError(statusCode int, path string) error {
	return statusError(ErrPROPFINDFailed, statusCode, path)
}

// NewSubmitError wraps ErrSubmitFailed for uploads rejected before any
// request was sent.
func NewSubmitError(localPath string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSubmitFailed, localPath, err)
}
