package fsstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	lockKeyMaxLen = 120
	lockRetryWait = 25 * time.Millisecond
)

// BuildLockPath maps a logical key (e.g. a chat key) onto a lock file under
// lockRoot. Keys are sanitized so any chat handle or title is acceptable.
func BuildLockPath(lockRoot string, lockKey string) (string, error) {
	lockRoot, err := normalizePath(lockRoot)
	if err != nil {
		return "", err
	}
	lockKey, err = sanitizeLockKey(lockKey)
	if err != nil {
		return "", err
	}
	return filepath.Join(lockRoot, lockKey+".lck"), nil
}

// WithLock runs fn while holding an exclusive advisory lock on lockPath.
// Contenders poll until the lock frees or ctx is done.
func WithLock(ctx context.Context, lockPath string, fn func() error) error {
	normalizedPath, err := normalizePath(lockPath)
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureDir(filepath.Dir(normalizedPath)); err != nil {
		return err
	}
	return withLockFile(ctx, normalizedPath, fn)
}

func sanitizeLockKey(lockKey string) (string, error) {
	lockKey = strings.TrimSpace(lockKey)
	if lockKey == "" {
		return "", fmt.Errorf("%w: empty lock key", ErrInvalidPath)
	}
	var b strings.Builder
	for _, r := range strings.ToLower(lockKey) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "", fmt.Errorf("%w: lock key has no usable characters", ErrInvalidPath)
	}
	if len(out) > lockKeyMaxLen {
		out = out[:lockKeyMaxLen]
	}
	return out, nil
}

func waitForLockRetry(ctx context.Context, lockPath string) error {
	timer := time.NewTimer(lockRetryWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, lockPath, ctx.Err())
	case <-timer.C:
		return nil
	}
}
