package archive

import "errors"

var (
	// ErrResolution reports that the chat handle or id could not be
	// resolved. It aborts the requested job only.
	ErrResolution = errors.New("archive: chat resolution failed")
	// ErrMediaDownload is per-message: counted and skipped, never aborts a
	// batch.
	ErrMediaDownload = errors.New("archive: media download failed")
)
