package wa

import (
	"context"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
)

// ParticipantAction is one of add, remove, promote or demote.
type ParticipantAction = whatsmeow.ParticipantChange

const (
	ParticipantAdd     = whatsmeow.ParticipantChangeAdd
	ParticipantRemove  = whatsmeow.ParticipantChangeRemove
	ParticipantPromote = whatsmeow.ParticipantChangePromote
	ParticipantDemote  = whatsmeow.ParticipantChangeDemote
)

// JoinedGroups lists groups as the server reports them.
func (a *Adapter) JoinedGroups(ctx context.Context) ([]*types.GroupInfo, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.GetJoinedGroups(ctx)
}

// GroupInfo fetches metadata of one group.
func (a *Adapter) GroupInfo(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.GetGroupInfo(ctx, group)
}

// CreateGroup creates a group with the given participants.
func (a *Adapter) CreateGroup(ctx context.Context, name string, participants []types.JID) (*types.GroupInfo, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.CreateGroup(ctx, whatsmeow.ReqCreateGroup{Name: name, Participants: participants})
}

// LeaveGroup leaves group.
func (a *Adapter) LeaveGroup(ctx context.Context, group types.JID) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.LeaveGroup(ctx, group)
}

// SetGroupName renames group.
func (a *Adapter) SetGroupName(ctx context.Context, group types.JID, name string) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.SetGroupName(ctx, group, name)
}

// SetGroupDescription replaces the group topic.
func (a *Adapter) SetGroupDescription(ctx context.Context, group types.JID, description string) error {
	cli, err := a.cli()
	if err != nil {
		return err
	}
	return cli.SetGroupTopic(ctx, group, "", "", description)
}

// SetGroupPhoto uploads a JPEG as the group picture and returns its id.
func (a *Adapter) SetGroupPhoto(ctx context.Context, group types.JID, jpeg []byte) (string, error) {
	cli, err := a.cli()
	if err != nil {
		return "", err
	}
	return cli.SetGroupPhoto(ctx, group, jpeg)
}

// UpdateParticipants applies action to users in group.
func (a *Adapter) UpdateParticipants(ctx context.Context, group types.JID, users []types.JID, action ParticipantAction) ([]types.GroupParticipant, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.UpdateGroupParticipants(ctx, group, users, action)
}

// InviteLink returns the invite link of group; reset revokes the old one.
func (a *Adapter) InviteLink(ctx context.Context, group types.JID, reset bool) (string, error) {
	cli, err := a.cli()
	if err != nil {
		return "", err
	}
	return cli.GetGroupInviteLink(ctx, group, reset)
}

// JoinWithLink accepts an invite code or link.
func (a *Adapter) JoinWithLink(ctx context.Context, code string) (types.JID, error) {
	cli, err := a.cli()
	if err != nil {
		return types.EmptyJID, err
	}
	return cli.JoinGroupWithLink(ctx, code)
}

// GroupInfoFromLink previews a group from its invite code.
func (a *Adapter) GroupInfoFromLink(ctx context.Context, code string) (*types.GroupInfo, error) {
	cli, err := a.cli()
	if err != nil {
		return nil, err
	}
	return cli.GetGroupInfoFromLink(ctx, code)
}
