package client

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/matheus3301/walink/internal/ident"
	"github.com/matheus3301/walink/internal/store"
)

// Contacts lists every known contact.
func (c *Client) Contacts() ([]store.Contact, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.stores.Contacts.List(), nil
}

// Groups lists joined groups from the server, not from the stores, so
// membership reflects server truth.
func (c *Client) Groups(ctx context.Context) ([]*types.GroupInfo, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	groups, err := c.transport.JoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Chats lists every known chat.
func (c *Client) Chats() ([]store.Chat, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.stores.Chats.List(), nil
}

// Messages returns the messages received for chatID in arrival order.
func (c *Client) Messages(chatID string) ([]*store.Message, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	jid, err := c.chat("chat", chatID)
	if err != nil {
		return nil, err
	}
	return c.stores.Messages.List(c.key(jid)), nil
}

// Labels lists labels. With forceResync it first re-fetches label state
// from the server; the fetch applies every label edit before returning.
func (c *Client) Labels(ctx context.Context, forceResync bool) ([]store.Label, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if forceResync {
		if err := c.transport.ResyncLabels(ctx); err != nil {
			return nil, fmt.Errorf("resync labels: %w", err)
		}
	}
	return c.stores.Labels.List(), nil
}

// key is the store key for jid: normalized and resolved to a phone id.
func (c *Client) key(jid types.JID) string {
	return c.cache.Resolve(ident.NormalizeJID(jid))
}

func (c *Client) chat(field, id string) (types.JID, error) {
	jid, err := ident.ParseChatID(id)
	if err != nil {
		return types.EmptyJID, invalid(field, "%v", err)
	}
	return jid, nil
}

func (c *Client) user(field, id string) (types.JID, error) {
	jid, err := c.chat(field, id)
	if err != nil {
		return jid, err
	}
	s := jid.String()
	if !ident.IsPhoneID(s) && !ident.IsPrivacyID(s) {
		return types.EmptyJID, invalid(field, "%q is not a user identifier", id)
	}
	return jid, nil
}

func (c *Client) users(field string, ids []string) ([]types.JID, error) {
	if len(ids) == 0 {
		return nil, invalid(field, "at least one participant is required")
	}
	out := make([]types.JID, 0, len(ids))
	for _, id := range ids {
		jid, err := c.user(field, id)
		if err != nil {
			return nil, err
		}
		out = append(out, jid)
	}
	return out, nil
}

func (c *Client) group(id string) (types.JID, error) {
	jid, err := c.chat("group", id)
	if err != nil {
		return jid, err
	}
	if jid.Server != types.GroupServer {
		return types.EmptyJID, invalid("group", "%q is not a group identifier", id)
	}
	return jid, nil
}

func (c *Client) newsletter(id string) (types.JID, error) {
	jid, err := c.chat("newsletter", id)
	if err != nil {
		return jid, err
	}
	if jid.Server != types.NewsletterServer {
		return types.EmptyJID, invalid("newsletter", "%q is not a newsletter identifier", id)
	}
	return jid, nil
}

// inviteCode accepts a bare code or a chat.whatsapp.com link.
func inviteCode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "", invalid("invite", "empty invite code")
	}
	return s, nil
}
