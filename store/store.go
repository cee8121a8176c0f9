package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/FeldmanGot/ai-tg-analiz/internal/fsstore"
)

type Store struct {
	LiveDir     string
	ProfilesDir string
	LocksDir    string
}

func New(liveDir, profilesDir, locksDir string) *Store {
	return &Store{
		LiveDir:     liveDir,
		ProfilesDir: profilesDir,
		LocksDir:    locksDir,
	}
}

func (s *Store) TranscriptPath(chatKey string) string {
	return filepath.Join(s.LiveDir, chatKey+".json")
}

func (s *Store) ProfilePath(chatKey string) string {
	return filepath.Join(s.ProfilesDir, chatKey+"_profile.json")
}

func (s *Store) LastAnalysisPath(chatKey string) string {
	return filepath.Join(s.ProfilesDir, chatKey+"_last_analysis.txt")
}

// LoadTranscript returns the persisted transcript for chatKey, oldest first.
// A missing transcript is an empty one.
func (s *Store) LoadTranscript(chatKey string) ([]Message, error) {
	var messages []Message
	if _, err := fsstore.ReadJSON(s.TranscriptPath(chatKey), &messages); err != nil {
		return nil, fmt.Errorf("load transcript %s: %w", chatKey, err)
	}
	return messages, nil
}

// SaveTranscript atomically replaces the whole transcript snapshot. A failed
// write leaves the previous snapshot in place.
func (s *Store) SaveTranscript(chatKey string, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	if err := fsstore.WriteJSONAtomic(s.TranscriptPath(chatKey), messages); err != nil {
		return fmt.Errorf("save transcript %s: %w", chatKey, err)
	}
	return nil
}

// AppendMessage appends one message to the transcript under a per-chat file
// lock, so the live listener and a concurrent re-archive do not interleave
// read-modify-write cycles.
func (s *Store) AppendMessage(ctx context.Context, chatKey string, msg Message) error {
	lockPath, err := fsstore.BuildLockPath(s.LocksDir, chatKey)
	if err != nil {
		return fmt.Errorf("append message %s: %w", chatKey, err)
	}
	return fsstore.WithLock(ctx, lockPath, func() error {
		messages, err := s.LoadTranscript(chatKey)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
		return s.SaveTranscript(chatKey, messages)
	})
}

// LoadProfile reports ok=false when no profile exists yet for chatKey.
func (s *Store) LoadProfile(chatKey string) (Profile, bool, error) {
	var p Profile
	ok, err := fsstore.ReadJSON(s.ProfilePath(chatKey), &p)
	if err != nil {
		return Profile{}, false, fmt.Errorf("load profile %s: %w", chatKey, err)
	}
	return p, ok, nil
}

// SaveProfile persists the profile JSON and the plain-text last-analysis
// snapshot the presentation layer displays.
func (s *Store) SaveProfile(chatKey string, p Profile) error {
	if err := fsstore.WriteJSONAtomic(s.ProfilePath(chatKey), p); err != nil {
		return fmt.Errorf("save profile %s: %w", chatKey, err)
	}
	if err := fsstore.WriteTextAtomic(s.LastAnalysisPath(chatKey), p.Analysis); err != nil {
		return fmt.Errorf("save last analysis %s: %w", chatKey, err)
	}
	return nil
}
