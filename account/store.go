package account

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/FeldmanGot/ai-tg-analiz/internal/fsstore"
)

// Record is the persisted session state for one account identity: the
// credentials snapshot plus the opaque handshake blob the platform client
// needs to reconnect without a fresh login.
type Record struct {
	AccountID int64     `json:"account_id"`
	Phone     string    `json:"phone"`
	Blob      []byte    `json:"blob,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

// Store keeps one Record per (account id, phone) identity under Dir, keyed by
// a stable hash so phone formatting quirks never fork the session file.
type Store struct {
	Dir string
	Now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(accountID int64, phone string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(accountID, 10) + "|" + phone))
	return filepath.Join(s.Dir, hex.EncodeToString(sum[:])[:16]+".json")
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Load returns the persisted record for the identity, ok=false when none
// exists.
func (s *Store) Load(accountID int64, phone string) (Record, bool, error) {
	var rec Record
	ok, err := fsstore.ReadJSON(s.path(accountID, phone), &rec)
	if err != nil {
		return Record{}, false, fmt.Errorf("load session: %w", err)
	}
	return rec, ok, nil
}

// Save persists the identity snapshot. A nil blob keeps any blob already on
// disk, so refreshing credentials after login does not drop the handshake
// state the platform client wrote earlier.
func (s *Store) Save(accountID int64, phone string, blob []byte) error {
	if blob == nil {
		if prev, ok, err := s.Load(accountID, phone); err != nil {
			return err
		} else if ok {
			blob = prev.Blob
		}
	}
	rec := Record{
		AccountID: accountID,
		Phone:     phone,
		Blob:      blob,
		SavedAt:   s.now().UTC(),
	}
	if err := fsstore.WriteJSONAtomic(s.path(accountID, phone), rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Invalidate deletes the persisted record. Removing an absent record is not
// an error.
func (s *Store) Invalidate(accountID int64, phone string) error {
	err := os.Remove(s.path(accountID, phone))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}
