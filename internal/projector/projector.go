package projector

import (
	"fmt"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/ident"
	"github.com/matheus3301/walink/internal/lidcache"
	"github.com/matheus3301/walink/internal/metrics"
	"github.com/matheus3301/walink/internal/store"
)

// Presence statuses reported in bus.Presence.
const (
	PresenceAvailable   = "available"
	PresenceUnavailable = "unavailable"
	PresenceComposing   = "composing"
	PresenceRecording   = "recording"
	PresencePaused      = "paused"
)

// Projector folds transport events into the stores and the identity
// cache and republishes the ones callers care about.
type Projector struct {
	cache    *lidcache.Cache
	stores   *store.Stores
	bus      *bus.Bus
	log      *zap.Logger
	instance string
}

// Option customizes a Projector.
type Option func(*Projector)

// WithInstance labels logs and metrics with the instance id.
func WithInstance(id string) Option {
	return func(p *Projector) { p.instance = id }
}

// New creates a projector. A nil bus or logger is allowed.
func New(cache *lidcache.Cache, stores *store.Stores, b *bus.Bus, logger *zap.Logger, opts ...Option) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Projector{cache: cache, stores: stores, bus: b, log: logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.instance != "" {
		p.log = p.log.With(zap.String("instance", p.instance))
	}
	return p
}

// Handle is registered as a transport event handler.
func (p *Projector) Handle(rawEvt any) {
	switch evt := rawEvt.(type) {
	case *events.Contact:
		p.count("contact")
		p.handleContact(evt)
	case *events.PushName:
		p.count("push_name")
		p.handlePushName(evt)
	case *events.HistorySync:
		p.count("history_sync")
		p.handleHistorySync(evt)
	case *events.Archive:
		p.count("chat")
		p.updateChat(evt.JID, func(c *store.Chat) { c.Archived = evt.Action.GetArchived() })
	case *events.Pin:
		p.count("chat")
		p.updateChat(evt.JID, func(c *store.Chat) { c.Pinned = evt.Action.GetPinned() })
	case *events.MarkChatAsRead:
		p.count("chat")
		p.updateChat(evt.JID, func(c *store.Chat) {
			if evt.Action.GetRead() {
				c.UnreadCount = 0
			}
		})
	case *events.GroupInfo:
		if evt.Name == nil {
			return
		}
		p.count("chat")
		p.updateChat(evt.JID, func(c *store.Chat) { c.Name = evt.Name.Name })
	case *events.JoinedGroup:
		p.count("chat")
		p.updateChat(evt.JID, func(c *store.Chat) { c.Name = evt.GroupName.Name })
	case *events.Message:
		p.count("message")
		p.handleMessage(evt)
	case *events.Presence:
		p.count("presence")
		p.handlePresence(evt)
	case *events.ChatPresence:
		p.count("presence")
		p.handleChatPresence(evt)
	case *events.LabelEdit:
		p.count("label")
		p.handleLabelEdit(evt)
	}
}

func (p *Projector) count(class string) {
	metrics.EventsProjected.WithLabelValues(p.instance, class).Inc()
}

// learn records a privacy/phone pair when a and b are one of each.
func (p *Projector) learn(a, b types.JID) {
	if a.IsEmpty() || b.IsEmpty() {
		return
	}
	as, bs := ident.NormalizeJID(a), ident.NormalizeJID(b)
	switch {
	case ident.IsPrivacyID(as) && ident.IsPhoneID(bs):
		p.cache.Set(as, bs)
	case ident.IsPhoneID(as) && ident.IsPrivacyID(bs):
		p.cache.Set(bs, as)
	default:
		return
	}
	metrics.IdentityMappings.WithLabelValues(p.instance).Set(float64(p.cache.Len()))
}

func (p *Projector) learnStrings(a, b string) {
	ja, err := types.ParseJID(a)
	if err != nil {
		return
	}
	jb, err := types.ParseJID(b)
	if err != nil {
		return
	}
	p.learn(ja, jb)
}

// canonical normalizes jid and maps privacy ids to phone ids when known.
func (p *Projector) canonical(jid types.JID) string {
	return p.cache.Resolve(ident.NormalizeJID(jid))
}

func (p *Projector) handleContact(evt *events.Contact) {
	if evt.JID.IsEmpty() {
		return
	}
	if lid := evt.Action.GetLidJID(); lid != "" {
		p.learnStrings(lid, evt.JID.String())
	}
	id := p.canonical(evt.JID)
	name := evt.Action.GetFullName()
	if name == "" {
		name = evt.Action.GetFirstName()
	}
	p.stores.Contacts.Upsert(store.Contact{ID: id, Phone: ident.PhoneNumber(id), Name: name})
}

// handlePushName fills the name of contacts that have none; names from
// the address book are not overwritten by self-chosen push names.
func (p *Projector) handlePushName(evt *events.PushName) {
	if evt.JID.IsEmpty() {
		return
	}
	if evt.Message != nil {
		p.learn(evt.JID, evt.Message.SenderAlt)
	}
	id := p.canonical(evt.JID)
	if c, ok := p.stores.Contacts.Get(id); ok && c.Name != "" {
		return
	}
	p.stores.Contacts.Upsert(store.Contact{ID: id, Phone: ident.PhoneNumber(id), Name: evt.NewPushName})
}

// handleHistorySync folds identity mappings, conversations and push names
// from a backfill batch. Backfilled messages are not projected.
func (p *Projector) handleHistorySync(evt *events.HistorySync) {
	data := evt.Data
	if data == nil {
		return
	}
	for _, m := range data.GetPhoneNumberToLidMappings() {
		p.learnStrings(m.GetLidJID(), m.GetPnJID())
	}
	for _, conv := range data.GetConversations() {
		if conv.GetLidJID() != "" && conv.GetPnJID() != "" {
			p.learnStrings(conv.GetLidJID(), conv.GetPnJID())
		}
	}
	for _, conv := range data.GetConversations() {
		p.historyConversation(conv)
	}
	for _, pn := range data.GetPushnames() {
		jid, err := types.ParseJID(pn.GetID())
		if err != nil || pn.GetPushname() == "" {
			continue
		}
		id := p.canonical(jid)
		if c, ok := p.stores.Contacts.Get(id); ok && c.Name != "" {
			continue
		}
		p.stores.Contacts.Upsert(store.Contact{ID: id, Phone: ident.PhoneNumber(id), Name: pn.GetPushname()})
	}
}

func (p *Projector) historyConversation(conv *waHistorySync.Conversation) {
	jid, err := types.ParseJID(conv.GetID())
	if err != nil {
		p.log.Debug("skipping conversation with bad id", zap.String("id", conv.GetID()))
		return
	}
	id := p.canonical(jid)
	name := conv.GetName()
	p.stores.Chats.Upsert(store.Chat{
		ID:            id,
		Phone:         ident.PhoneNumber(id),
		Name:          name,
		IsGroup:       ident.IsGroup(id),
		LastMessageAt: int64(conv.GetConversationTimestamp()),
		UnreadCount:   int(conv.GetUnreadCount()),
		Archived:      conv.GetArchived(),
		Pinned:        conv.GetPinned() > 0,
	})
}

// updateChat applies fn to the chat record for jid, creating a minimal
// record first if none exists, and stores the whole result.
func (p *Projector) updateChat(jid types.JID, fn func(*store.Chat)) {
	if jid.IsEmpty() {
		return
	}
	id := p.canonical(jid)
	c, ok := p.stores.Chats.Get(id)
	if !ok {
		c = store.Chat{ID: id, Phone: ident.PhoneNumber(id), IsGroup: ident.IsGroup(id)}
	}
	fn(&c)
	p.stores.Chats.Upsert(c)
}

func (p *Projector) handleMessage(evt *events.Message) {
	defer func() {
		if r := recover(); r != nil {
			p.drop(evt, fmt.Errorf("panic: %v", r))
		}
	}()
	if evt.Info.ID == "" || evt.Info.Chat.IsEmpty() {
		p.drop(evt, fmt.Errorf("missing id or chat"))
		return
	}
	if evt.Message == nil {
		p.drop(evt, fmt.Errorf("empty payload"))
		return
	}

	info := evt.Info
	// Only other people's messages teach mappings.
	if !info.IsFromMe {
		p.learn(info.Sender, info.SenderAlt)
		if !info.IsGroup {
			p.learn(info.Sender, info.Chat)
		}
	}

	chatID := p.canonical(info.Chat)
	sender := p.canonical(info.Sender)
	ts := info.Timestamp.Unix()

	if pm := evt.Message.GetProtocolMessage(); pm != nil {
		switch pm.GetType() {
		case waE2E.ProtocolMessage_REVOKE:
			p.emit(bus.KindMessageDeleted, bus.MessageDeleted{
				ChatID: chatID, MessageID: pm.GetKey().GetID(), Sender: sender, Timestamp: ts,
			})
		case waE2E.ProtocolMessage_MESSAGE_EDIT:
			p.emit(bus.KindMessageEdited, bus.MessageEdited{
				ChatID: chatID, MessageID: pm.GetKey().GetID(), Sender: sender,
				NewText: textOf(pm.GetEditedMessage()), Timestamp: ts,
			})
		}
		return
	}
	if r := evt.Message.GetReactionMessage(); r != nil {
		p.emit(bus.KindMessageReaction, bus.Reaction{
			MessageID: r.GetKey().GetID(), ChatID: chatID, ReactorID: sender, Emoji: r.GetText(),
		})
		return
	}

	content := Normalize(evt.Message)
	msg := &store.Message{
		ID:          info.ID,
		ChatID:      chatID,
		SenderPhone: ident.PhoneNumber(sender),
		SenderName:  info.PushName,
		Text:        content.Text,
		Timestamp:   ts,
		IsGroup:     info.IsGroup,
		FromMe:      info.IsFromMe,
		Type:        content.Type,
		Media:       content.Media,
		Raw:         evt.Message,
	}
	if info.IsGroup {
		msg.Participant = sender
	}
	p.stores.Messages.Append(chatID, msg)

	p.updateChat(info.Chat, func(c *store.Chat) {
		if ts > c.LastMessageAt {
			c.LastMessageAt = ts
		}
		if !info.IsFromMe {
			c.UnreadCount++
			if c.Name == "" && !info.IsGroup {
				c.Name = info.PushName
			}
		}
	})
	p.emit(bus.KindMessageReceived, msg)
}

func (p *Projector) drop(evt *events.Message, err error) {
	metrics.EventsDropped.WithLabelValues(p.instance).Inc()
	p.log.Warn("dropping malformed message",
		zap.String("id", evt.Info.ID),
		zap.String("chat", evt.Info.Chat.String()),
		zap.Error(err),
	)
}

func (p *Projector) handlePresence(evt *events.Presence) {
	status := PresenceAvailable
	if evt.Unavailable {
		status = PresenceUnavailable
	}
	pr := bus.Presence{ID: p.canonical(evt.From), Status: status}
	if !evt.LastSeen.IsZero() {
		pr.LastSeen = evt.LastSeen.Unix()
	}
	p.emit(bus.KindPresence, pr)
}

func (p *Projector) handleChatPresence(evt *events.ChatPresence) {
	status := PresencePaused
	if evt.State == types.ChatPresenceComposing {
		status = PresenceComposing
		if evt.Media == types.ChatPresenceMediaAudio {
			status = PresenceRecording
		}
	}
	p.emit(bus.KindPresence, bus.Presence{
		ID:     p.canonical(evt.Sender),
		ChatID: p.canonical(evt.Chat),
		Status: status,
	})
}

func (p *Projector) handleLabelEdit(evt *events.LabelEdit) {
	if evt.LabelID == "" {
		return
	}
	if evt.Action.GetDeleted() {
		p.stores.Labels.Remove(evt.LabelID)
		return
	}
	l := store.Label{
		ID:    evt.LabelID,
		Name:  evt.Action.GetName(),
		Color: evt.Action.GetColor(),
	}
	if evt.Action != nil && evt.Action.PredefinedID != nil {
		id := evt.Action.GetPredefinedID()
		l.PredefinedID = &id
	}
	p.stores.Labels.Upsert(l)
}

func (p *Projector) emit(kind string, payload any) {
	if p.bus != nil {
		p.bus.Emit(kind, payload)
	}
}
