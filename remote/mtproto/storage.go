package mtproto

import (
	"context"

	"github.com/gotd/td/session"

	"github.com/FeldmanGot/ai-tg-analiz/account"
)

// SessionStorage adapts the account session store to gotd's session.Storage,
// so the MTProto handshake state lives in the same per-identity record as the
// credentials snapshot.
type SessionStorage struct {
	Store     *account.Store
	AccountID int64
	Phone     string
}

func (s *SessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	rec, ok, err := s.Store.Load(s.AccountID, s.Phone)
	if err != nil {
		return nil, err
	}
	if !ok || len(rec.Blob) == 0 {
		return nil, session.ErrNotFound
	}
	return rec.Blob, nil
}

func (s *SessionStorage) StoreSession(ctx context.Context, data []byte) error {
	return s.Store.Save(s.AccountID, s.Phone, data)
}
