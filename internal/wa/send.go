package wa

import (
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waSyncAction"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// MediaKind selects how an outgoing attachment is uploaded and framed.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// Media describes an outgoing attachment. An empty MimeType is sniffed
// from Data.
type Media struct {
	Kind     MediaKind
	Data     []byte
	MimeType string
	Caption  string
	FileName string
	// Voice sends audio as a push-to-talk note.
	Voice bool
}

// Sent is the server acknowledgement of an outgoing message.
type Sent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *Adapter) send(ctx context.Context, to types.JID, msg *waE2E.Message) (Sent, error) {
	cli, err := a.cli()
	if err != nil {
		return Sent{}, err
	}
	resp, err := cli.SendMessage(ctx, to, msg)
	if err != nil {
		return Sent{}, fmt.Errorf("send message: %w", err)
	}
	return Sent{ID: resp.ID, Timestamp: resp.Timestamp}, nil
}

// SendText sends a plain text message.
func (a *Adapter) SendText(ctx context.Context, to types.JID, text string) (Sent, error) {
	return a.send(ctx, to, &waE2E.Message{Conversation: proto.String(text)})
}

// SendMedia uploads m and sends it.
func (a *Adapter) SendMedia(ctx context.Context, to types.JID, m Media) (Sent, error) {
	cli, err := a.cli()
	if err != nil {
		return Sent{}, err
	}
	mt, err := uploadType(m.Kind)
	if err != nil {
		return Sent{}, err
	}
	if m.MimeType == "" {
		m.MimeType = DetectMIME(m.Data)
	}
	up, err := cli.Upload(ctx, m.Data, mt)
	if err != nil {
		return Sent{}, fmt.Errorf("upload %s: %w", m.Kind, err)
	}
	return a.send(ctx, to, buildMediaMessage(m, up))
}

// DetectMIME sniffs the content type of data.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

func uploadType(kind MediaKind) (whatsmeow.MediaType, error) {
	switch kind {
	case MediaImage:
		return whatsmeow.MediaImage, nil
	case MediaVideo:
		return whatsmeow.MediaVideo, nil
	case MediaAudio:
		return whatsmeow.MediaAudio, nil
	case MediaDocument:
		return whatsmeow.MediaDocument, nil
	}
	return "", fmt.Errorf("unsupported media kind %q", kind)
}

func buildMediaMessage(m Media, up whatsmeow.UploadResponse) *waE2E.Message {
	length := proto.Uint64(up.FileLength)
	switch m.Kind {
	case MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       optional(m.Caption),
			Mimetype:      proto.String(m.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
		}}
	case MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       optional(m.Caption),
			Mimetype:      proto.String(m.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
		}}
	case MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(m.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
			PTT:           proto.Bool(m.Voice),
		}}
	default:
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       optional(m.Caption),
			FileName:      optional(m.FileName),
			Title:         optional(m.FileName),
			Mimetype:      proto.String(m.MimeType),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    length,
		}}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return proto.String(s)
}

// React sets emoji on a message; an empty emoji removes the reaction.
// sender is the author of the target message.
func (a *Adapter) React(ctx context.Context, chat, sender types.JID, id, emoji string) (Sent, error) {
	cli, err := a.cli()
	if err != nil {
		return Sent{}, err
	}
	return a.send(ctx, chat, cli.BuildReaction(chat, sender, id, emoji))
}

// Forward re-sends a received payload to another chat, flagged as forwarded.
func (a *Adapter) Forward(ctx context.Context, to types.JID, msg *waE2E.Message) (Sent, error) {
	fwd, err := forwarded(msg)
	if err != nil {
		return Sent{}, err
	}
	return a.send(ctx, to, fwd)
}

// forwarded returns a copy of msg carrying the forwarded flag. Plain
// conversations are promoted to extended text since they carry no context.
func forwarded(msg *waE2E.Message) (*waE2E.Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("forward: empty message")
	}
	out := proto.Clone(msg).(*waE2E.Message)
	ctxInfo := &waE2E.ContextInfo{IsForwarded: proto.Bool(true), ForwardingScore: proto.Uint32(1)}
	switch {
	case out.GetConversation() != "":
		out = &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(out.GetConversation()),
			ContextInfo: ctxInfo,
		}}
	case out.ExtendedTextMessage != nil:
		out.ExtendedTextMessage.ContextInfo = ctxInfo
	case out.ImageMessage != nil:
		out.ImageMessage.ContextInfo = ctxInfo
	case out.VideoMessage != nil:
		out.VideoMessage.ContextInfo = ctxInfo
	case out.AudioMessage != nil:
		out.AudioMessage.ContextInfo = ctxInfo
	case out.DocumentMessage != nil:
		out.DocumentMessage.ContextInfo = ctxInfo
	case out.StickerMessage != nil:
		out.StickerMessage.ContextInfo = ctxInfo
	default:
		return nil, fmt.Errorf("forward: unsupported message content")
	}
	return out, nil
}

// Edit replaces the text of one of our own messages.
func (a *Adapter) Edit(ctx context.Context, chat types.JID, id, text string) (Sent, error) {
	cli, err := a.cli()
	if err != nil {
		return Sent{}, err
	}
	return a.send(ctx, chat, cli.BuildEdit(chat, id, &waE2E.Message{Conversation: proto.String(text)}))
}

// Revoke deletes a message for everyone. sender is empty for our own
// messages and the author's id when an admin revokes in a group.
func (a *Adapter) Revoke(ctx context.Context, chat, sender types.JID, id string) (Sent, error) {
	cli, err := a.cli()
	if err != nil {
		return Sent{}, err
	}
	return a.send(ctx, chat, cli.BuildRevoke(chat, sender, id))
}

// MarkRead sends read receipts for ids. sender is required in groups.
func (a *Adapter) MarkRead(ctx context.Context, chat, sender types.JID, ids []string) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.MarkRead(ctx, ids, time.Now(), chat, sender)
}

// SendChatPresence signals typing, recording or paused in chat.
func (a *Adapter) SendChatPresence(ctx context.Context, chat types.JID, state types.ChatPresence, media types.ChatPresenceMedia) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.SendChatPresence(ctx, chat, state, media)
}

// SendPresence sets the global availability.
func (a *Adapter) SendPresence(ctx context.Context, p types.Presence) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.SendPresence(ctx, p)
}

// DeleteForMe hides a message on this account's devices only. sender is
// the author in groups and empty otherwise; ts is the message timestamp.
func (a *Adapter) DeleteForMe(ctx context.Context, chat, sender types.JID, id string, fromMe bool, ts time.Time) error {
	return a.sendPatch(ctx, deleteForMePatch(chat, sender, id, fromMe, ts))
}

func deleteForMePatch(chat, sender types.JID, id string, fromMe bool, ts time.Time) appstate.PatchInfo {
	isFromMe, participant := "0", "0"
	if fromMe {
		isFromMe = "1"
	}
	if !fromMe && !sender.IsEmpty() && chat.Server == types.GroupServer {
		participant = sender.String()
	}
	return appstate.PatchInfo{
		Type: appstate.WAPatchRegularHigh,
		Mutations: []appstate.MutationInfo{{
			Index:   []string{appstate.IndexDeleteMessageForMe, chat.String(), id, isFromMe, participant},
			Version: 3,
			Value: &waSyncAction.SyncActionValue{
				DeleteMessageForMeAction: &waSyncAction.DeleteMessageForMeAction{
					DeleteMedia:      proto.Bool(false),
					MessageTimestamp: proto.Int64(ts.Unix()),
				},
			},
		}},
	}
}
