package projector

import (
	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/matheus3301/walink/internal/store"
)

// Content is the payload of a message reduced to the fields the stores keep.
type Content struct {
	Type  store.MessageType
	Text  string
	Media *store.MediaInfo
}

// unwrapViewOnce strips a single view-once envelope, if present.
func unwrapViewOnce(msg *waE2E.Message) *waE2E.Message {
	switch {
	case msg.GetViewOnceMessage().GetMessage() != nil:
		return msg.GetViewOnceMessage().GetMessage()
	case msg.GetViewOnceMessageV2().GetMessage() != nil:
		return msg.GetViewOnceMessageV2().GetMessage()
	case msg.GetViewOnceMessageV2Extension().GetMessage() != nil:
		return msg.GetViewOnceMessageV2Extension().GetMessage()
	}
	return msg
}

// Normalize picks the first matching payload variant in a fixed order:
// text, extended text, image, video, document, audio, sticker.
func Normalize(msg *waE2E.Message) Content {
	if msg == nil {
		return Content{Type: store.TypeUnknown}
	}
	msg = unwrapViewOnce(msg)

	if c := msg.GetConversation(); c != "" {
		return Content{Type: store.TypeText, Text: c}
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return Content{Type: store.TypeText, Text: ext.GetText()}
	}
	if img := msg.GetImageMessage(); img != nil {
		return Content{Type: store.TypeImage, Text: img.GetCaption(), Media: &store.MediaInfo{
			MimeType:   img.GetMimetype(),
			Caption:    img.GetCaption(),
			FileLength: img.GetFileLength(),
			Width:      img.GetWidth(),
			Height:     img.GetHeight(),
			URL:        img.GetURL(),
			DirectPath: img.GetDirectPath(),
		}}
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return Content{Type: store.TypeVideo, Text: vid.GetCaption(), Media: &store.MediaInfo{
			MimeType:   vid.GetMimetype(),
			Caption:    vid.GetCaption(),
			FileLength: vid.GetFileLength(),
			Seconds:    vid.GetSeconds(),
			Width:      vid.GetWidth(),
			Height:     vid.GetHeight(),
			URL:        vid.GetURL(),
			DirectPath: vid.GetDirectPath(),
		}}
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return Content{Type: store.TypeDocument, Text: doc.GetCaption(), Media: &store.MediaInfo{
			MimeType:   doc.GetMimetype(),
			Caption:    doc.GetCaption(),
			FileName:   doc.GetFileName(),
			FileLength: doc.GetFileLength(),
			URL:        doc.GetURL(),
			DirectPath: doc.GetDirectPath(),
		}}
	}
	if aud := msg.GetAudioMessage(); aud != nil {
		return Content{Type: store.TypeAudio, Media: &store.MediaInfo{
			MimeType:   aud.GetMimetype(),
			FileLength: aud.GetFileLength(),
			Seconds:    aud.GetSeconds(),
			URL:        aud.GetURL(),
			DirectPath: aud.GetDirectPath(),
		}}
	}
	if st := msg.GetStickerMessage(); st != nil {
		return Content{Type: store.TypeSticker, Media: &store.MediaInfo{
			MimeType:   st.GetMimetype(),
			FileLength: st.GetFileLength(),
			Width:      st.GetWidth(),
			Height:     st.GetHeight(),
			URL:        st.GetURL(),
			DirectPath: st.GetDirectPath(),
		}}
	}
	return Content{Type: store.TypeUnknown}
}

// textOf extracts plain text, used for edited payloads.
func textOf(msg *waE2E.Message) string {
	c := Normalize(msg)
	return c.Text
}
