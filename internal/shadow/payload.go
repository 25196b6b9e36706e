package shadow

import (
	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/telegram"
)

// placeholders stand in for the content of a media message without caption.
var placeholders = map[store.ContentKind]string{
	store.KindPhoto:     "[Фото]",
	store.KindVideo:     "[Видео]",
	store.KindVideoNote: "[Видеосообщение]",
	store.KindDocument:  "[Файл]",
	store.KindAudio:     "[Аудио]",
	store.KindVoice:     "[Голосовое]",
	store.KindAnimation: "[GIF]",
}

// Placeholder returns the label of a media kind, followed by label when one
// is given (a file name or track title). It returns "" for text.
func Placeholder(kind store.ContentKind, label string) string {
	p, ok := placeholders[kind]
	if !ok {
		return ""
	}
	if label != "" {
		return p + " " + label
	}
	return p
}

// Payload is the classified content of one inbound message. Kind selects
// which of the remaining fields are meaningful: FileID is set for every
// media kind, Text only for text.
type Payload struct {
	Kind    store.ContentKind
	Text    string
	Caption string
	FileID  string
	// Label qualifies the placeholder of documents and audio.
	Label string
}

// PayloadFromMessage classifies m. When a message carries several media
// fields the first of photo, video, video note, document, audio, voice and
// animation wins. Animations also populate the document field and are
// classified as animations.
func PayloadFromMessage(m *telegram.Message) Payload {
	p := Payload{Kind: store.KindText, Text: m.Text, Caption: m.Caption}

	switch {
	case len(m.Photo) > 0:
		p.Kind = store.KindPhoto
		p.FileID = m.Photo[len(m.Photo)-1].FileID
	case m.Video != nil:
		p.Kind = store.KindVideo
		p.FileID = m.Video.FileID
	case m.VideoNote != nil:
		p.Kind = store.KindVideoNote
		p.FileID = m.VideoNote.FileID
	case m.Document != nil && m.Animation == nil:
		p.Kind = store.KindDocument
		p.FileID = m.Document.FileID
		p.Label = m.Document.FileName
	case m.Audio != nil:
		p.Kind = store.KindAudio
		p.FileID = m.Audio.FileID
		p.Label = m.Audio.Title
	case m.Voice != nil:
		p.Kind = store.KindVoice
		p.FileID = m.Voice.FileID
	case m.Animation != nil:
		p.Kind = store.KindAnimation
		p.FileID = m.Animation.FileID
	}
	return p
}

// Content is the text stored for the payload: the message text, the media
// caption, or the kind placeholder when a media message has no caption.
func (p Payload) Content() string {
	if p.Kind == store.KindText {
		return p.Text
	}
	if p.Caption != "" {
		return p.Caption
	}
	return Placeholder(p.Kind, p.Label)
}

// Storable reports whether the payload carries text or a media reference.
// Service messages (joins, pins, payments) carry neither.
func (p Payload) Storable() bool {
	return p.Text != "" || p.FileID != ""
}
