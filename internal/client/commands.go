package client

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/types"

	"github.com/matheus3301/walink/internal/ident"
	"github.com/matheus3301/walink/internal/store"
	"github.com/matheus3301/walink/internal/wa"
)

// Chat presence states accepted by SendTyping.
const (
	TypingComposing = "composing"
	TypingRecording = "recording"
	TypingPaused    = "paused"
)

// Participant actions accepted by UpdateParticipants.
const (
	ActionAdd     = "add"
	ActionRemove  = "remove"
	ActionPromote = "promote"
	ActionDemote  = "demote"
)

// SendText sends a text message to a chat id or phone number.
func (c *Client) SendText(ctx context.Context, to, text string) (wa.Sent, error) {
	if err := c.ready(); err != nil {
		return wa.Sent{}, err
	}
	jid, err := c.chat("to", to)
	if err != nil {
		return wa.Sent{}, err
	}
	if text == "" {
		return wa.Sent{}, invalid("text", "empty message")
	}
	return c.transport.SendText(ctx, jid, text)
}

// SendMedia uploads and sends an image, video, audio or document.
func (c *Client) SendMedia(ctx context.Context, to string, m wa.Media) (wa.Sent, error) {
	if err := c.ready(); err != nil {
		return wa.Sent{}, err
	}
	jid, err := c.chat("to", to)
	if err != nil {
		return wa.Sent{}, err
	}
	if len(m.Data) == 0 {
		return wa.Sent{}, invalid("data", "empty attachment")
	}
	switch m.Kind {
	case wa.MediaImage, wa.MediaVideo, wa.MediaAudio, wa.MediaDocument:
	default:
		return wa.Sent{}, invalid("kind", "unsupported media kind %q", m.Kind)
	}
	return c.transport.SendMedia(ctx, jid, m)
}

// target looks up a stored message and returns its chat and the author
// id the transport expects in message keys: empty for our own messages.
func (c *Client) target(chatID, msgID string) (types.JID, types.JID, *store.Message, error) {
	chat, err := c.chat("chat", chatID)
	if err != nil {
		return chat, types.EmptyJID, nil, err
	}
	m, found := c.stores.Messages.Find(c.key(chat), msgID)
	switch {
	case found && m.FromMe:
		return chat, types.EmptyJID, m, nil
	case found && m.IsGroup:
		sender, err := types.ParseJID(m.Participant)
		if err != nil {
			return chat, types.EmptyJID, m, invalid("message", "bad participant %q", m.Participant)
		}
		return chat, sender, m, nil
	case found:
		return chat, chat, m, nil
	case chat.Server == types.GroupServer:
		return chat, types.EmptyJID, nil, invalid("message", "%s not found in %s", msgID, chatID)
	default:
		return chat, chat, nil, nil
	}
}

// React sets or, with an empty emoji, removes a reaction.
func (c *Client) React(ctx context.Context, chatID, msgID, emoji string) (wa.Sent, error) {
	if err := c.ready(); err != nil {
		return wa.Sent{}, err
	}
	chat, sender, _, err := c.target(chatID, msgID)
	if err != nil {
		return wa.Sent{}, err
	}
	return c.transport.React(ctx, chat, sender, msgID, emoji)
}

// Forward re-sends a stored message to another chat.
func (c *Client) Forward(ctx context.Context, chatID, msgID, to string) (wa.Sent, error) {
	if err := c.ready(); err != nil {
		return wa.Sent{}, err
	}
	chat, err := c.chat("chat", chatID)
	if err != nil {
		return wa.Sent{}, err
	}
	dest, err := c.chat("to", to)
	if err != nil {
		return wa.Sent{}, err
	}
	m, ok := c.stores.Messages.Find(c.key(chat), msgID)
	if !ok || m.Raw == nil {
		return wa.Sent{}, invalid("message", "%s not found in %s", msgID, chatID)
	}
	return c.transport.Forward(ctx, dest, m.Raw)
}

// Edit replaces the text of one of our own messages.
func (c *Client) Edit(ctx context.Context, chatID, msgID, text string) (wa.Sent, error) {
	if err := c.ready(); err != nil {
		return wa.Sent{}, err
	}
	chat, err := c.chat("chat", chatID)
	if err != nil {
		return wa.Sent{}, err
	}
	if m, ok := c.stores.Messages.Find(c.key(chat), msgID); ok && !m.FromMe {
		return wa.Sent{}, invalid("message", "only own messages can be edited")
	}
	if text == "" {
		return wa.Sent{}, invalid("text", "empty message")
	}
	return c.transport.Edit(ctx, chat, msgID, text)
}

// Delete revokes a message for everyone, or hides it on this account's
// devices only.
func (c *Client) Delete(ctx context.Context, chatID, msgID string, forEveryone bool) (wa.Sent, error) {
	if err := c.ready(); err != nil {
		return wa.Sent{}, err
	}
	chat, sender, m, err := c.target(chatID, msgID)
	if err != nil {
		return wa.Sent{}, err
	}
	if !forEveryone {
		fromMe, ts := false, time.Now()
		if m != nil {
			fromMe, ts = m.FromMe, time.Unix(m.Timestamp, 0)
		}
		if err := c.transport.DeleteForMe(ctx, chat, sender, msgID, fromMe, ts); err != nil {
			return wa.Sent{}, err
		}
		return wa.Sent{ID: msgID, Timestamp: time.Now()}, nil
	}
	if m == nil || m.FromMe || chat.Server != types.GroupServer {
		// Own message, or a direct chat where only own messages can go.
		sender = types.EmptyJID
	}
	return c.transport.Revoke(ctx, chat, sender, msgID)
}

// MarkRead sends read receipts. senderID is required for group chats.
func (c *Client) MarkRead(ctx context.Context, chatID, senderID string, msgIDs []string) error {
	if err := c.ready(); err != nil {
		return err
	}
	chat, err := c.chat("chat", chatID)
	if err != nil {
		return err
	}
	if len(msgIDs) == 0 {
		return invalid("ids", "at least one message id is required")
	}
	sender := types.EmptyJID
	if chat.Server == types.GroupServer {
		if senderID == "" {
			return invalid("sender", "required for group chats")
		}
		if sender, err = c.user("sender", senderID); err != nil {
			return err
		}
	}
	return c.transport.MarkRead(ctx, chat, sender, msgIDs)
}

// SendTyping signals composing, recording or paused in a chat.
func (c *Client) SendTyping(ctx context.Context, chatID, state string) error {
	if err := c.ready(); err != nil {
		return err
	}
	chat, err := c.chat("chat", chatID)
	if err != nil {
		return err
	}
	switch state {
	case TypingComposing:
		return c.transport.SendChatPresence(ctx, chat, types.ChatPresenceComposing, types.ChatPresenceMediaText)
	case TypingRecording:
		return c.transport.SendChatPresence(ctx, chat, types.ChatPresenceComposing, types.ChatPresenceMediaAudio)
	case TypingPaused:
		return c.transport.SendChatPresence(ctx, chat, types.ChatPresencePaused, types.ChatPresenceMediaText)
	}
	return invalid("state", "unknown chat presence %q", state)
}

// SetAvailable sets the global presence.
func (c *Client) SetAvailable(ctx context.Context, available bool) error {
	if err := c.ready(); err != nil {
		return err
	}
	if available {
		return c.transport.SendPresence(ctx, types.PresenceAvailable)
	}
	return c.transport.SendPresence(ctx, types.PresenceUnavailable)
}

// CreateGroup creates a group with the given participants.
func (c *Client) CreateGroup(ctx context.Context, name string, participants []string) (*types.GroupInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("name", "empty group name")
	}
	users, err := c.users("participants", participants)
	if err != nil {
		return nil, err
	}
	return c.transport.CreateGroup(ctx, name, users)
}

// GroupInfo fetches metadata of a group.
func (c *Client) GroupInfo(ctx context.Context, groupID string) (*types.GroupInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	g, err := c.group(groupID)
	if err != nil {
		return nil, err
	}
	return c.transport.GroupInfo(ctx, g)
}

// LeaveGroup leaves a group.
func (c *Client) LeaveGroup(ctx context.Context, groupID string) error {
	if err := c.ready(); err != nil {
		return err
	}
	g, err := c.group(groupID)
	if err != nil {
		return err
	}
	return c.transport.LeaveGroup(ctx, g)
}

// RenameGroup sets the group subject.
func (c *Client) RenameGroup(ctx context.Context, groupID, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	g, err := c.group(groupID)
	if err != nil {
		return err
	}
	if name == "" {
		return invalid("name", "empty group name")
	}
	return c.transport.SetGroupName(ctx, g, name)
}

// DescribeGroup sets the group description.
func (c *Client) DescribeGroup(ctx context.Context, groupID, description string) error {
	if err := c.ready(); err != nil {
		return err
	}
	g, err := c.group(groupID)
	if err != nil {
		return err
	}
	return c.transport.SetGroupDescription(ctx, g, description)
}

// SetGroupPhoto sets the group picture from JPEG bytes.
func (c *Client) SetGroupPhoto(ctx context.Context, groupID string, jpeg []byte) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	g, err := c.group(groupID)
	if err != nil {
		return "", err
	}
	if len(jpeg) == 0 {
		return "", invalid("photo", "empty image")
	}
	return c.transport.SetGroupPhoto(ctx, g, jpeg)
}

// UpdateParticipants adds, removes, promotes or demotes participants.
func (c *Client) UpdateParticipants(ctx context.Context, groupID string, participants []string, action string) ([]types.GroupParticipant, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	g, err := c.group(groupID)
	if err != nil {
		return nil, err
	}
	var change wa.ParticipantAction
	switch action {
	case ActionAdd:
		change = wa.ParticipantAdd
	case ActionRemove:
		change = wa.ParticipantRemove
	case ActionPromote:
		change = wa.ParticipantPromote
	case ActionDemote:
		change = wa.ParticipantDemote
	default:
		return nil, invalid("action", "unknown participant action %q", action)
	}
	users, err := c.users("participants", participants)
	if err != nil {
		return nil, err
	}
	return c.transport.UpdateParticipants(ctx, g, users, change)
}

// InviteLink returns the group invite link; reset revokes the previous one.
func (c *Client) InviteLink(ctx context.Context, groupID string, reset bool) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	g, err := c.group(groupID)
	if err != nil {
		return "", err
	}
	return c.transport.InviteLink(ctx, g, reset)
}

// AcceptInvite joins a group from an invite code or link.
func (c *Client) AcceptInvite(ctx context.Context, invite string) (types.JID, error) {
	if err := c.ready(); err != nil {
		return types.EmptyJID, err
	}
	code, err := inviteCode(invite)
	if err != nil {
		return types.EmptyJID, err
	}
	return c.transport.JoinWithLink(ctx, code)
}

// InviteInfo previews the group behind an invite code or link.
func (c *Client) InviteInfo(ctx context.Context, invite string) (*types.GroupInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	code, err := inviteCode(invite)
	if err != nil {
		return nil, err
	}
	return c.transport.GroupInfoFromLink(ctx, code)
}

// SetStatus updates the profile "about" text.
func (c *Client) SetStatus(ctx context.Context, text string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.transport.SetStatusMessage(ctx, text)
}

// SetName updates the profile display name.
func (c *Client) SetName(ctx context.Context, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if name == "" {
		return invalid("name", "empty name")
	}
	return c.transport.SetPushName(ctx, name)
}

// ProfilePicture returns picture info for a user or group; an empty id
// means our own account.
func (c *Client) ProfilePicture(ctx context.Context, id string) (*types.ProfilePictureInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	jid := c.transport.OwnID()
	if id != "" {
		var err error
		if jid, err = c.chat("id", id); err != nil {
			return nil, err
		}
	}
	return c.transport.ProfilePicture(ctx, jid)
}

// CreateLabel creates a label with the next free numeric id.
func (c *Client) CreateLabel(ctx context.Context, name string, color int32) (store.Label, error) {
	if err := c.ready(); err != nil {
		return store.Label{}, err
	}
	if name == "" {
		return store.Label{}, invalid("name", "empty label name")
	}
	l := store.Label{ID: c.nextLabelID(), Name: name, Color: color}
	if err := c.transport.EditLabel(ctx, l.ID, l.Name, l.Color, false); err != nil {
		return store.Label{}, err
	}
	return l, nil
}

func (c *Client) nextLabelID() string {
	ids := make([]int, 0)
	for _, l := range c.stores.Labels.List() {
		if n, err := strconv.Atoi(l.ID); err == nil {
			ids = append(ids, n)
		}
	}
	sort.Ints(ids)
	next := 1
	if len(ids) > 0 {
		next = ids[len(ids)-1] + 1
	}
	return strconv.Itoa(next)
}

// EditLabel renames or recolors a label.
func (c *Client) EditLabel(ctx context.Context, id, name string, color int32) error {
	if err := c.ready(); err != nil {
		return err
	}
	if id == "" {
		return invalid("id", "empty label id")
	}
	return c.transport.EditLabel(ctx, id, name, color, false)
}

// DeleteLabel deletes a label.
func (c *Client) DeleteLabel(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	l, ok := c.stores.Labels.Get(id)
	if !ok {
		return invalid("id", "unknown label %q", id)
	}
	return c.transport.EditLabel(ctx, l.ID, l.Name, l.Color, true)
}

// LabelChat assigns (labeled) or unassigns a label on a chat.
func (c *Client) LabelChat(ctx context.Context, chatID, labelID string, labeled bool) error {
	if err := c.ready(); err != nil {
		return err
	}
	chat, err := c.chat("chat", chatID)
	if err != nil {
		return err
	}
	if labelID == "" {
		return invalid("label", "empty label id")
	}
	return c.transport.LabelChat(ctx, chat, labelID, labeled)
}

// CreateNewsletter creates a channel.
func (c *Client) CreateNewsletter(ctx context.Context, name, description string) (*types.NewsletterMetadata, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("name", "empty newsletter name")
	}
	return c.transport.CreateNewsletter(ctx, name, description)
}

// FollowNewsletter subscribes to a channel.
func (c *Client) FollowNewsletter(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	jid, err := c.newsletter(id)
	if err != nil {
		return err
	}
	return c.transport.FollowNewsletter(ctx, jid)
}

// UnfollowNewsletter unsubscribes from a channel.
func (c *Client) UnfollowNewsletter(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	jid, err := c.newsletter(id)
	if err != nil {
		return err
	}
	return c.transport.UnfollowNewsletter(ctx, jid)
}

// NewsletterInfo fetches channel metadata.
func (c *Client) NewsletterInfo(ctx context.Context, id string) (*types.NewsletterMetadata, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	jid, err := c.newsletter(id)
	if err != nil {
		return nil, err
	}
	return c.transport.NewsletterInfo(ctx, jid)
}

// OnWhatsApp reports which phone numbers have accounts.
func (c *Client) OnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(phones) == 0 {
		return nil, invalid("phones", "at least one number is required")
	}
	norm := make([]string, 0, len(phones))
	for _, p := range phones {
		jid, err := c.chat("phones", p)
		if err != nil || jid.Server != types.DefaultUserServer {
			return nil, invalid("phones", "%q is not a phone number", p)
		}
		norm = append(norm, "+"+jid.User)
	}
	return c.transport.OnWhatsApp(ctx, norm)
}

// AddContact saves a phone number to the address book under fullName.
// firstName defaults to the first word of fullName.
func (c *Client) AddContact(ctx context.Context, id, fullName, firstName string) error {
	if err := c.ready(); err != nil {
		return err
	}
	jid, err := c.contact(id)
	if err != nil {
		return err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return invalid("name", "empty contact name")
	}
	if firstName == "" {
		firstName = strings.Fields(fullName)[0]
	}
	return c.transport.SaveContact(ctx, jid, fullName, firstName)
}

// RemoveContact drops a phone number from the address book.
func (c *Client) RemoveContact(ctx context.Context, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	jid, err := c.contact(id)
	if err != nil {
		return err
	}
	return c.transport.RemoveContact(ctx, jid)
}

// contact parses an address book entry: a phone number or phone id, or a
// privacy id whose phone id is known.
func (c *Client) contact(id string) (types.JID, error) {
	jid, err := c.user("id", id)
	if err != nil {
		return jid, err
	}
	if jid.Server == types.DefaultUserServer {
		return jid, nil
	}
	pn := c.cache.Resolve(jid.String())
	if !ident.IsPhoneID(pn) {
		return types.EmptyJID, invalid("id", "no phone number known for %s", id)
	}
	return types.ParseJID(pn)
}
