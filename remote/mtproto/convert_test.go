package mtproto

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestConvertMessageText(t *testing.T) {
	t.Parallel()
	m := &tg.Message{
		ID:      10,
		Date:    1767225600,
		Message: "hi",
		FromID:  &tg.PeerUser{UserID: 42},
	}
	raw, ok := convertMessage(m)
	if !ok {
		t.Fatalf("ok = false")
	}
	if raw.ID != 10 || raw.SenderID != 42 || raw.Text != "hi" {
		t.Fatalf("raw = %+v", raw)
	}
	if raw.Date.Unix() != 1767225600 {
		t.Fatalf("Date = %v", raw.Date)
	}
}

func TestConvertMessageEmptySkipped(t *testing.T) {
	t.Parallel()
	if _, ok := convertMessage(&tg.Message{ID: 11}); ok {
		t.Fatalf("ok = true for empty text message")
	}
}

func TestConvertMessageVoice(t *testing.T) {
	t.Parallel()
	doc := &tg.Document{ID: 5, AccessHash: 6}
	doc.Attributes = []tg.DocumentAttributeClass{
		&tg.DocumentAttributeAudio{Voice: true},
	}
	m := &tg.Message{
		ID:    12,
		Media: &tg.MessageMediaDocument{Document: doc},
	}
	raw, ok := convertMessage(m)
	if !ok {
		t.Fatalf("ok = false")
	}
	if raw.Voice == nil || raw.Video != nil || raw.Document != nil {
		t.Fatalf("raw = %+v, want voice facet only", raw)
	}
	loc, isLoc := raw.Voice.Ref.(fileLocation)
	if !isLoc {
		t.Fatalf("Ref = %T, want fileLocation", raw.Voice.Ref)
	}
	if _, isDoc := loc.loc.(*tg.InputDocumentFileLocation); !isDoc {
		t.Fatalf("loc = %T", loc.loc)
	}
}

func TestConvertMessageCaptionStaysOnFacet(t *testing.T) {
	t.Parallel()
	photo := &tg.Photo{ID: 7, AccessHash: 8}
	photo.Sizes = []tg.PhotoSizeClass{&tg.PhotoSize{Type: "y"}}
	m := &tg.Message{
		ID:      13,
		Message: "look at this",
		Media:   &tg.MessageMediaPhoto{Photo: photo},
	}
	raw, ok := convertMessage(m)
	if !ok {
		t.Fatalf("ok = false")
	}
	if raw.Text != "" {
		t.Fatalf("Text = %q, caption must stay on the photo facet", raw.Text)
	}
	if raw.Photo == nil || raw.Photo.Caption != "look at this" {
		t.Fatalf("Photo = %+v", raw.Photo)
	}
}

func TestConvertMessageNamedDocument(t *testing.T) {
	t.Parallel()
	doc := &tg.Document{ID: 5}
	doc.Attributes = []tg.DocumentAttributeClass{
		&tg.DocumentAttributeFilename{FileName: "report.pdf"},
	}
	m := &tg.Message{ID: 14, Media: &tg.MessageMediaDocument{Document: doc}}
	raw, ok := convertMessage(m)
	if !ok || raw.Document == nil {
		t.Fatalf("raw = %+v, ok = %v", raw, ok)
	}
	if raw.Document.Name != "report.pdf" {
		t.Fatalf("Name = %q", raw.Document.Name)
	}
}

func TestPeerID(t *testing.T) {
	t.Parallel()
	if got := peerID(&tg.PeerUser{UserID: 1}); got != 1 {
		t.Fatalf("user peer = %d", got)
	}
	if got := peerID(&tg.PeerChannel{ChannelID: 2}); got != 2 {
		t.Fatalf("channel peer = %d", got)
	}
	if got := peerID(&tg.PeerChat{ChatID: 3}); got != 3 {
		t.Fatalf("chat peer = %d", got)
	}
}
