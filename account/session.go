// Package account owns the authentication lifecycle for one remote messaging
// account: the login state machine and the persisted session blobs that let a
// restart skip the code flow.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
)

// Status is the session's authorization state. Authorized and broken are
// terminal for one login attempt; a broken session must restart from scratch.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusCodeSent        Status = "code_sent"
	StatusAwaiting2FA     Status = "awaiting_2fa"
	StatusAuthorized      Status = "authorized"
	StatusBroken          Status = "broken"
)

// Session drives login for one account identity over a remote.Authenticator.
// It is safe for concurrent use, but the design assumes a single active
// session per identity; a second concurrent login races and must be
// serialized by the caller.
type Session struct {
	AccountID int64
	Phone     string

	auth   remote.Authenticator
	store  *Store
	logger *slog.Logger

	mu       sync.Mutex
	status   Status
	codeHash string
}

func NewSession(accountID int64, phone string, auth remote.Authenticator, store *Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		AccountID: accountID,
		Phone:     phone,
		auth:      auth,
		store:     store,
		logger:    logger,
		status:    StatusUnauthenticated,
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Guard returns ErrNotAuthorized unless the session is authorized. The
// archiver and listener call it before touching the message plane.
func (s *Session) Guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAuthorized {
		return fmt.Errorf("%w: session status is %s", ErrNotAuthorized, s.status)
	}
	return nil
}

// Connect establishes the transport connection. Failure keeps the current
// state so the caller may retry.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.auth.Connect(ctx); err != nil {
		s.logger.Error("session_connect_failed", "phone", s.Phone, "error", err.Error())
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	s.logger.Info("session_connected", "phone", s.Phone)
	return nil
}

// CheckAuthorized asks the remote whether the restored session blob is still
// valid and fast-paths into authorized when it is.
func (s *Session) CheckAuthorized(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusUnauthenticated {
		return s.status == StatusAuthorized, nil
	}
	ok, err := s.auth.IsAuthorized(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if ok {
		if err := s.becomeAuthorizedLocked(); err != nil {
			return false, err
		}
	}
	return ok, nil
}

// RequestCode asks the platform to send a verification code to the phone.
func (s *Session) RequestCode(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusUnauthenticated {
		return fmt.Errorf("%w: request code while %s", ErrInvalidState, s.status)
	}
	codeHash, err := s.auth.SendCode(ctx, s.Phone)
	if err != nil {
		s.logger.Error("session_code_request_failed", "phone", s.Phone, "error", err.Error())
		return fmt.Errorf("%w: %v", ErrCodeRequest, err)
	}
	s.codeHash = codeHash
	s.status = StatusCodeSent
	s.logger.Info("session_code_sent", "phone", s.Phone)
	return nil
}

// SubmitCode completes the code step. A second-factor signal from the remote
// moves the session to awaiting_2fa; any other rejection breaks the session
// and invalidates the persisted blob.
func (s *Session) SubmitCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCodeSent {
		return fmt.Errorf("%w: submit code while %s", ErrInvalidState, s.status)
	}
	err := s.auth.SignInCode(ctx, s.Phone, code, s.codeHash)
	switch {
	case err == nil:
		return s.becomeAuthorizedLocked()
	case errors.Is(err, remote.ErrPasswordNeeded):
		s.status = StatusAwaiting2FA
		s.logger.Info("session_awaiting_2fa", "phone", s.Phone)
		return nil
	default:
		s.breakLocked("code rejected", err)
		return fmt.Errorf("%w: %v", ErrAuthRejected, err)
	}
}

// SubmitPassword completes the second-factor step.
func (s *Session) SubmitPassword(ctx context.Context, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAwaiting2FA {
		return fmt.Errorf("%w: submit password while %s", ErrInvalidState, s.status)
	}
	if err := s.auth.SignInPassword(ctx, password); err != nil {
		s.breakLocked("password rejected", err)
		return fmt.Errorf("%w: %v", ErrAuthRejected, err)
	}
	return s.becomeAuthorizedLocked()
}

// Logout disconnects and resets the session to unauthenticated. The persisted
// blob is kept; only rejections invalidate it.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.auth.Disconnect()
	s.status = StatusUnauthenticated
	s.codeHash = ""
	s.logger.Info("session_logged_out", "phone", s.Phone)
	return err
}

func (s *Session) becomeAuthorizedLocked() error {
	s.status = StatusAuthorized
	s.codeHash = ""
	if err := s.store.Save(s.AccountID, s.Phone, nil); err != nil {
		s.logger.Warn("session_save_failed", "phone", s.Phone, "error", err.Error())
	}
	s.logger.Info("session_authorized", "phone", s.Phone)
	return nil
}

func (s *Session) breakLocked(reason string, cause error) {
	s.status = StatusBroken
	s.codeHash = ""
	if err := s.store.Invalidate(s.AccountID, s.Phone); err != nil {
		s.logger.Warn("session_invalidate_failed", "phone", s.Phone, "error", err.Error())
	}
	s.logger.Error("session_broken", "phone", s.Phone, "reason", reason, "error", cause.Error())
}
