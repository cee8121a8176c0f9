package mtproto

import (
	"time"

	"github.com/gotd/td/tg"

	"github.com/FeldmanGot/ai-tg-analiz/remote"
)

// fileLocation is the MediaRef payload for this adapter.
type fileLocation struct {
	loc tg.InputFileLocationClass
}

// convertMessage maps one MTProto message onto the boundary RawMessage.
// Service and empty messages convert to ok=false. When media is present the
// message text is the caption and lands on the media facet, so the
// normalizer's text-first priority only fires for genuine text messages.
func convertMessage(m *tg.Message) (remote.RawMessage, bool) {
	raw := remote.RawMessage{
		ID:   int64(m.ID),
		Date: time.Unix(int64(m.Date), 0).UTC(),
		Out:  m.Out,
	}
	if peer, ok := m.FromID.(*tg.PeerUser); ok {
		raw.SenderID = peer.UserID
	}

	if m.Media == nil {
		raw.Text = m.Message
		return raw, raw.Text != ""
	}

	caption := m.Message
	switch media := m.Media.(type) {
	case *tg.MessageMediaDocument:
		doc, ok := media.Document.AsNotEmpty()
		if !ok {
			return remote.RawMessage{}, false
		}
		attachDocument(&raw, doc, caption)
	case *tg.MessageMediaPhoto:
		photo, ok := media.Photo.AsNotEmpty()
		if !ok {
			return remote.RawMessage{}, false
		}
		raw.Photo = &remote.RawPhoto{
			Caption: caption,
			Ref:     fileLocation{loc: photoLocation(photo)},
		}
	default:
		// Geo, polls, contacts and the rest are not modeled.
		raw.Text = caption
		return raw, raw.Text != ""
	}
	return raw, true
}

func attachDocument(raw *remote.RawMessage, doc *tg.Document, caption string) {
	ref := fileLocation{loc: &tg.InputDocumentFileLocation{
		ID:            doc.ID,
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
	}}

	var filename string
	isVoice := false
	isVideo := false
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeAudio:
			if a.Voice {
				isVoice = true
			}
		case *tg.DocumentAttributeVideo:
			isVideo = true
		case *tg.DocumentAttributeFilename:
			filename = a.FileName
		}
	}

	switch {
	case isVoice:
		raw.Voice = &remote.RawDocument{Name: filename, Caption: caption, Ref: ref}
	case isVideo:
		raw.Video = &remote.RawDocument{Name: filename, Caption: caption, Ref: ref}
	default:
		raw.Document = &remote.RawDocument{Name: filename, Caption: caption, Ref: ref}
	}
}

// photoLocation picks the largest regular size for download.
func photoLocation(photo *tg.Photo) tg.InputFileLocationClass {
	thumbType := ""
	for _, size := range photo.Sizes {
		if s, ok := size.(*tg.PhotoSize); ok {
			thumbType = s.Type
		}
	}
	return &tg.InputPhotoFileLocation{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		FileReference: photo.FileReference,
		ThumbSize:     thumbType,
	}
}

func peerID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return p.ChatID
	case *tg.PeerChannel:
		return p.ChannelID
	}
	return 0
}

func displayName(u *tg.User) string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
