package wa

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waSyncAction"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// SetStatusMessage updates the "about" text.
func (a *Adapter) SetStatusMessage(ctx context.Context, msg string) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.SetStatusMessage(ctx, msg)
}

// SetPushName updates the display name through app state.
func (a *Adapter) SetPushName(ctx context.Context, name string) error {
	return a.sendPatch(ctx, appstate.BuildSettingPushName(name))
}

// ProfilePicture returns picture info for a user or group, nil when unset.
func (a *Adapter) ProfilePicture(ctx context.Context, jid types.JID) (*types.ProfilePictureInfo, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	info, err := cli.GetProfilePictureInfo(ctx, jid, &whatsmeow.GetProfilePictureParams{})
	if err != nil {
		return nil, fmt.Errorf("get profile picture: %w", err)
	}
	return info, nil
}

// EditLabel creates, renames or deletes a label.
func (a *Adapter) EditLabel(ctx context.Context, id, name string, color int32, deleted bool) error {
	return a.sendPatch(ctx, appstate.BuildLabelEdit(id, name, color, deleted))
}

// LabelChat assigns or unassigns a label on a chat.
func (a *Adapter) LabelChat(ctx context.Context, chat types.JID, labelID string, labeled bool) error {
	return a.sendPatch(ctx, appstate.BuildLabelChat(chat, labelID, labeled))
}

func (a *Adapter) sendPatch(ctx context.Context, patch appstate.PatchInfo) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	if err := cli.SendAppState(ctx, patch); err != nil {
		return fmt.Errorf("send app state: %w", err)
	}
	return nil
}

// CreateNewsletter creates a channel owned by this account.
func (a *Adapter) CreateNewsletter(ctx context.Context, name, description string) (*types.NewsletterMetadata, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.CreateNewsletter(ctx, whatsmeow.CreateNewsletterParams{Name: name, Description: description})
}

// FollowNewsletter subscribes to a channel.
func (a *Adapter) FollowNewsletter(ctx context.Context, jid types.JID) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.FollowNewsletter(ctx, jid)
}

// UnfollowNewsletter unsubscribes from a channel.
func (a *Adapter) UnfollowNewsletter(ctx context.Context, jid types.JID) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.UnfollowNewsletter(ctx, jid)
}

// NewsletterInfo fetches channel metadata.
func (a *Adapter) NewsletterInfo(ctx context.Context, jid types.JID) (*types.NewsletterMetadata, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.GetNewsletterInfo(ctx, jid)
}

// OnWhatsApp checks which phone numbers have accounts. Numbers are given
// with a leading "+".
func (a *Adapter) OnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.IsOnWhatsApp(ctx, phones)
}

// SaveContact adds jid to the address book, or renames it.
func (a *Adapter) SaveContact(ctx context.Context, jid types.JID, fullName, firstName string) error {
	return a.sendPatch(ctx, contactPatch(jid, fullName, firstName))
}

// RemoveContact clears the address book names of jid.
func (a *Adapter) RemoveContact(ctx context.Context, jid types.JID) error {
	return a.sendPatch(ctx, contactPatch(jid, "", ""))
}

func contactPatch(jid types.JID, fullName, firstName string) appstate.PatchInfo {
	return appstate.PatchInfo{
		Type: appstate.WAPatchCriticalUnblockLow,
		Mutations: []appstate.MutationInfo{{
			Index:   []string{appstate.IndexContact, jid.String()},
			Version: 2,
			Value: &waSyncAction.SyncActionValue{
				ContactAction: &waSyncAction.ContactAction{
					FullName:                 proto.String(fullName),
					FirstName:                proto.String(firstName),
					SaveOnPrimaryAddressbook: proto.Bool(fullName != ""),
				},
			},
		}},
	}
}
