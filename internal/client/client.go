package client

import (
	"context"
	"fmt"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"

	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/connection"
	"github.com/matheus3301/walink/internal/ident"
	"github.com/matheus3301/walink/internal/lidcache"
	"github.com/matheus3301/walink/internal/metrics"
	"github.com/matheus3301/walink/internal/projector"
	"github.com/matheus3301/walink/internal/session"
	"github.com/matheus3301/walink/internal/status"
	"github.com/matheus3301/walink/internal/store"
	"github.com/matheus3301/walink/internal/wa"
)

// Transport is the transport handle a client drives. *wa.Adapter
// implements it.
type Transport interface {
	connection.Transport
	AddEventHandler(fn func(any))
	OwnID() types.JID

	SendText(ctx context.Context, to types.JID, text string) (wa.Sent, error)
	SendMedia(ctx context.Context, to types.JID, m wa.Media) (wa.Sent, error)
	React(ctx context.Context, chat, sender types.JID, id, emoji string) (wa.Sent, error)
	Forward(ctx context.Context, to types.JID, msg *waE2E.Message) (wa.Sent, error)
	Edit(ctx context.Context, chat types.JID, id, text string) (wa.Sent, error)
	Revoke(ctx context.Context, chat, sender types.JID, id string) (wa.Sent, error)
	DeleteForMe(ctx context.Context, chat, sender types.JID, id string, fromMe bool, ts time.Time) error
	MarkRead(ctx context.Context, chat, sender types.JID, ids []string) error
	SendChatPresence(ctx context.Context, chat types.JID, state types.ChatPresence, media types.ChatPresenceMedia) error
	SendPresence(ctx context.Context, p types.Presence) error

	JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error)
	GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error)
	CreateGroup(ctx context.Context, name string, participants []types.JID) (*types.GroupInfo, error)
	LeaveGroup(ctx context.Context, group types.JID) error
	SetGroupName(ctx context.Context, group types.JID, name string) error
	SetGroupDescription(ctx context.Context, group types.JID, description string) error
	SetGroupPhoto(ctx context.Context, group types.JID, jpeg []byte) (string, error)
	UpdateParticipants(ctx context.Context, group types.JID, users []types.JID, action wa.ParticipantAction) ([]types.GroupParticipant, error)
	InviteLink(ctx context.Context, group types.JID, reset bool) (string, error)
	JoinWithLink(ctx context.Context, code string) (types.JID, error)
	GroupInfoFromLink(ctx context.Context, code string) (*types.GroupInfo, error)

	SetStatusMessage(ctx context.Context, msg string) error
	SetPushName(ctx context.Context, name string) error
	ProfilePicture(ctx context.Context, jid types.JID) (*types.ProfilePictureInfo, error)
	EditLabel(ctx context.Context, id, name string, color int32, deleted bool) error
	LabelChat(ctx context.Context, chat types.JID, labelID string, labeled bool) error
	SaveContact(ctx context.Context, jid types.JID, fullName, firstName string) error
	RemoveContact(ctx context.Context, jid types.JID) error

	CreateNewsletter(ctx context.Context, name, description string) (*types.NewsletterMetadata, error)
	FollowNewsletter(ctx context.Context, jid types.JID) error
	UnfollowNewsletter(ctx context.Context, jid types.JID) error
	NewsletterInfo(ctx context.Context, jid types.JID) (*types.NewsletterMetadata, error)
	OnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
}

// Client is the public surface of one instance: it owns the identity
// cache, the stores and the connection controller, and answers queries and
// commands against them.
type Client struct {
	opts      Options
	transport Transport
	cache     *lidcache.Cache
	stores    *store.Stores
	bus       *bus.Bus
	machine   *status.Machine
	ctrl      *connection.Controller
	proj      *projector.Projector
	log       *zap.Logger
}

// New wires a client around transport. Extra controller options are
// mainly for tests.
func New(opts Options, transport Transport, logger *zap.Logger, ctrlOpts ...connection.Option) (*Client, error) {
	if err := session.ValidateName(opts.InstanceID); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("client %s: nil transport", opts.InstanceID)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	b := bus.New()
	machine := status.NewMachine(b)
	cache := lidcache.New(opts.IdentityCacheSize)
	stores := store.New()

	ctrlOpts = append([]connection.Option{connection.WithInstance(opts.InstanceID)}, ctrlOpts...)
	c := &Client{
		opts:      opts,
		transport: transport,
		cache:     cache,
		stores:    stores,
		bus:       b,
		machine:   machine,
		ctrl:      connection.New(machine, transport, b, opts.policy(), logger, ctrlOpts...),
		proj:      projector.New(cache, stores, b, logger, projector.WithInstance(opts.InstanceID)),
		log:       logger.With(zap.String("instance", opts.InstanceID)),
	}
	transport.AddEventHandler(c.handle)
	return c, nil
}

// handle receives every transport event: connection events first so the
// state is current when the projector publishes.
func (c *Client) handle(evt any) {
	c.ctrl.Handle(evt)
	c.proj.Handle(evt)
}

// ID returns the instance id.
func (c *Client) ID() string { return c.opts.InstanceID }

// Options returns the effective options.
func (c *Client) Options() Options { return c.opts }

// State returns the current connection state.
func (c *Client) State() status.State { return c.machine.Current() }

// Subscribe returns domain notifications whose kind starts with namespace.
func (c *Client) Subscribe(namespace string, bufSize int) (<-chan bus.Event, func()) {
	return c.bus.Subscribe(namespace, bufSize)
}

// Connect starts the session, pairing first if no credentials are stored.
func (c *Client) Connect() error {
	return c.ctrl.Connect()
}

// Disconnect ends the session and keeps credentials for the next Connect.
func (c *Client) Disconnect() {
	c.ctrl.Disconnect()
}

// Logout ends the session and invalidates the credentials.
func (c *Client) Logout(ctx context.Context) error {
	return c.ctrl.Logout(ctx)
}

// Dispose cancels reconnects, disconnects and clears the in-memory state.
func (c *Client) Dispose() {
	c.ctrl.Close()
	c.cache.Clear()
	c.stores.Clear()
	metrics.IdentityMappings.WithLabelValues(c.opts.InstanceID).Set(0)
}

func (c *Client) ready() error {
	if !c.machine.Is(status.Connected) {
		return ErrNotConnected
	}
	return nil
}

// ResolveID maps a privacy identifier to its phone identifier when known.
func (c *Client) ResolveID(id string) string {
	return c.cache.Resolve(id)
}

// RegisterMapping records a privacy/phone pair supplied by the caller.
func (c *Client) RegisterMapping(lid, pn string) error {
	if !ident.IsPrivacyID(lid) {
		return invalid("lid", "%q is not a privacy identifier", lid)
	}
	if !ident.IsPhoneID(pn) {
		return invalid("pn", "%q is not a phone identifier", pn)
	}
	c.cache.Set(ident.Normalize(lid), ident.Normalize(pn))
	return nil
}

// ExportMappings snapshots the identity cache, oldest first.
func (c *Client) ExportMappings() []lidcache.Mapping {
	return c.cache.Snapshot()
}

// ImportMappings replays a snapshot into the identity cache.
func (c *Client) ImportMappings(m []lidcache.Mapping) {
	c.cache.Import(m)
	metrics.IdentityMappings.WithLabelValues(c.opts.InstanceID).Set(float64(c.cache.Len()))
}

// ClearIdentityCache drops every identity mapping.
func (c *Client) ClearIdentityCache() {
	c.cache.Clear()
	metrics.IdentityMappings.WithLabelValues(c.opts.InstanceID).Set(0)
}
