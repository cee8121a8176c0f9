package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
	"github.com/FeldmanGot/ai-tg-analiz/store"
	"github.com/FeldmanGot/ai-tg-analiz/transcribe"
)

const mediaTimeLayout = "2006-01-02_15-04-05"

// Downloader streams a remote binary to a local path. remote.Client
// satisfies it.
type Downloader interface {
	Download(ctx context.Context, ref remote.MediaRef, path string) error
}

// Acquirer downloads media payloads into MediaDir with deterministic names,
// so repeated runs over the same history skip files already on disk. Voice
// payloads additionally go through the transcriber; everything about
// transcription is best effort.
type Acquirer struct {
	MediaDir    string
	Downloader  Downloader
	Transcriber transcribe.Transcriber
	Language    string
	Logger      *slog.Logger
}

func NewAcquirer(mediaDir string, dl Downloader, tr transcribe.Transcriber, language string, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		MediaDir:    mediaDir,
		Downloader:  dl,
		Transcriber: tr,
		Language:    language,
		Logger:      logger,
	}
}

// Acquire fetches the binary behind msg's payload, sets msg.File on success
// and, for voice, replaces the placeholder text with the transcription when
// the engine produces one. Failures are wrapped in ErrMediaDownload; the
// caller counts them and keeps the message with its placeholder text and no
// file reference.
func (a *Acquirer) Acquire(ctx context.Context, raw remote.RawMessage, msg *store.Message) error {
	if msg.Kind == store.KindText {
		return nil
	}

	ref, ext := payloadRef(raw, msg.Kind)
	if ref == nil {
		return fmt.Errorf("%w: message %d has no downloadable payload", ErrMediaDownload, raw.ID)
	}

	filename := string(msg.Kind) + "_" + msg.Time.Format(mediaTimeLayout) + "_" + strconv.FormatInt(raw.ID, 10) + ext
	path := filepath.Join(a.MediaDir, filename)

	if _, err := os.Stat(path); err == nil {
		msg.File = filename
	} else {
		if err := os.MkdirAll(a.MediaDir, 0o700); err != nil {
			return fmt.Errorf("%w: %v", ErrMediaDownload, err)
		}
		if err := a.Downloader.Download(ctx, ref, path); err != nil {
			a.Logger.Warn("media_download_failed", "message_id", raw.ID, "kind", string(msg.Kind), "error", err.Error())
			return fmt.Errorf("%w: message %d: %v", ErrMediaDownload, raw.ID, err)
		}
		a.Logger.Debug("media_downloaded", "file", filename)
		msg.File = filename
	}

	if msg.Kind == store.KindVoice {
		a.transcribeVoice(ctx, path, msg)
	}
	return nil
}

func (a *Acquirer) transcribeVoice(ctx context.Context, path string, msg *store.Message) {
	if a.Transcriber == nil {
		return
	}
	text, ok, err := a.Transcriber.Transcribe(ctx, path, a.Language)
	if err != nil {
		a.Logger.Warn("transcription_failed", "file", msg.File, "error", err.Error())
		return
	}
	if !ok {
		return
	}
	msg.Text = text
}

func payloadRef(raw remote.RawMessage, kind store.Kind) (remote.MediaRef, string) {
	switch kind {
	case store.KindVoice:
		if raw.Voice != nil {
			return raw.Voice.Ref, ".ogg"
		}
	case store.KindVideo:
		if raw.Video != nil {
			return raw.Video.Ref, ".mp4"
		}
	case store.KindPhoto:
		if raw.Photo != nil {
			return raw.Photo.Ref, ".jpg"
		}
	case store.KindDocument:
		if raw.Document != nil {
			return raw.Document.Ref, documentExt(raw.Document.Name)
		}
	}
	return nil, ""
}

func documentExt(name string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		return ext
	}
	return ".bin"
}
