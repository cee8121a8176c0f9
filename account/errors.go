package account

import "errors"

var (
	// ErrConnection is transient; the caller may retry Connect.
	ErrConnection = errors.New("account: connection failed")
	// ErrCodeRequest reports that the verification code could not be sent.
	ErrCodeRequest = errors.New("account: code request failed")
	// ErrAuthRejected reports wrong credentials, code or password. The
	// persisted session is invalidated and login must restart.
	ErrAuthRejected = errors.New("account: authentication rejected")
	// ErrNotAuthorized reports an operation attempted before the session
	// reached the authorized state. A sequencing error, never swallowed.
	ErrNotAuthorized = errors.New("account: not authorized")
	// ErrInvalidState reports an operation that is not valid in the
	// session's current state.
	ErrInvalidState = errors.New("account: operation invalid in current state")
)
