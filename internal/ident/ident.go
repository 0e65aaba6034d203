package ident

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// IsPrivacyID reports whether id is a privacy (LID) identifier.
func IsPrivacyID(id string) bool {
	jid, ok := parse(id)
	if !ok {
		return false
	}
	return jid.Server == types.HiddenUserServer || jid.Server == types.HostedLIDServer
}

// IsPhoneID reports whether id is a phone-based user identifier.
func IsPhoneID(id string) bool {
	jid, ok := parse(id)
	if !ok {
		return false
	}
	return jid.Server == types.DefaultUserServer || jid.Server == types.HostedServer
}

// IsGroup reports whether id addresses a group chat.
func IsGroup(id string) bool {
	jid, ok := parse(id)
	return ok && jid.Server == types.GroupServer
}

// IsNewsletter reports whether id addresses a newsletter (channel).
func IsNewsletter(id string) bool {
	jid, ok := parse(id)
	return ok && jid.Server == types.NewsletterServer
}

// Normalize strips the agent/device part so that all devices of one
// account map to the same key. Unparseable input is returned unchanged.
func Normalize(id string) string {
	jid, ok := parse(id)
	if !ok {
		return id
	}
	return jid.ToNonAD().String()
}

// NormalizeJID is Normalize for an already parsed identifier.
func NormalizeJID(jid types.JID) string {
	if jid.IsEmpty() {
		return ""
	}
	return jid.ToNonAD().String()
}

// PhoneNumber returns the bare number of a phone-based identifier, or ""
// for any other identifier shape.
func PhoneNumber(id string) string {
	jid, ok := parse(id)
	if !ok {
		return ""
	}
	if jid.Server != types.DefaultUserServer && jid.Server != types.HostedServer {
		return ""
	}
	return jid.User
}

// ParseChatID accepts either a full identifier ("123@s.whatsapp.net",
// "123-456@g.us") or a bare phone number ("+55 11 91234-5678") and returns
// the normalized identifier.
func ParseChatID(input string) (types.JID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.EmptyJID, fmt.Errorf("empty identifier")
	}
	if strings.ContainsRune(input, '@') {
		jid, err := types.ParseJID(input)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("parse identifier %q: %w", input, err)
		}
		return jid.ToNonAD(), nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		switch r {
		case '+', ' ', '-', '(', ')', '.':
			return -1
		}
		return 'x'
	}, input)
	if digits == "" || strings.ContainsRune(digits, 'x') {
		return types.EmptyJID, fmt.Errorf("invalid phone number %q", input)
	}
	return types.NewJID(digits, types.DefaultUserServer), nil
}

func parse(id string) (types.JID, bool) {
	if id == "" || !strings.ContainsRune(id, '@') {
		return types.EmptyJID, false
	}
	jid, err := types.ParseJID(id)
	if err != nil {
		return types.EmptyJID, false
	}
	return jid, true
}
