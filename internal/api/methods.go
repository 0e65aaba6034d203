package api

import (
	"context"
	"fmt"

	"github.com/matheus3301/walink/internal/client"
	"github.com/matheus3301/walink/internal/wa"
)

type handler func(ctx context.Context, c *client.Client, a args) (any, error)

// methods maps control method names to facade calls.
var methods = map[string]handler{
	"status": func(_ context.Context, c *client.Client, _ args) (any, error) {
		return map[string]any{"instance": c.ID(), "state": c.State()}, nil
	},
	"connect": func(_ context.Context, c *client.Client, _ args) (any, error) {
		return nil, c.Connect()
	},
	"disconnect": func(_ context.Context, c *client.Client, _ args) (any, error) {
		c.Disconnect()
		return nil, nil
	},
	"logout": func(ctx context.Context, c *client.Client, _ args) (any, error) {
		return nil, c.Logout(ctx)
	},

	"contacts": func(_ context.Context, c *client.Client, _ args) (any, error) {
		return c.Contacts()
	},
	"groups": func(ctx context.Context, c *client.Client, _ args) (any, error) {
		return c.Groups(ctx)
	},
	"chats": func(_ context.Context, c *client.Client, _ args) (any, error) {
		return c.Chats()
	},
	"messages": func(_ context.Context, c *client.Client, a args) (any, error) {
		return c.Messages(a.str("chat"))
	},
	"labels": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.Labels(ctx, a.boolean("resync"))
	},

	"send.text": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.SendText(ctx, a.str("to"), a.str("text"))
	},
	"send.media": func(ctx context.Context, c *client.Client, a args) (any, error) {
		data, err := a.bytes("data")
		if err != nil {
			return nil, err
		}
		return c.SendMedia(ctx, a.str("to"), wa.Media{
			Kind:     wa.MediaKind(a.str("kind")),
			Data:     data,
			MimeType: a.str("mime_type"),
			Caption:  a.str("caption"),
			FileName: a.str("file_name"),
			Voice:    a.boolean("voice"),
		})
	},
	"message.react": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.React(ctx, a.str("chat"), a.str("id"), a.str("emoji"))
	},
	"message.forward": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.Forward(ctx, a.str("chat"), a.str("id"), a.str("to"))
	},
	"message.edit": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.Edit(ctx, a.str("chat"), a.str("id"), a.str("text"))
	},
	"message.delete": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.Delete(ctx, a.str("chat"), a.str("id"), a.boolean("for_everyone"))
	},
	"message.read": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.MarkRead(ctx, a.str("chat"), a.str("sender"), a.strs("ids"))
	},
	"chat.typing": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.SendTyping(ctx, a.str("chat"), a.str("state"))
	},
	"chat.label": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.LabelChat(ctx, a.str("chat"), a.str("label"), !a.boolean("remove"))
	},
	"presence.set": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.SetAvailable(ctx, a.boolean("available"))
	},

	"group.create": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.CreateGroup(ctx, a.str("name"), a.strs("participants"))
	},
	"group.info": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.GroupInfo(ctx, a.str("group"))
	},
	"group.leave": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.LeaveGroup(ctx, a.str("group"))
	},
	"group.rename": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.RenameGroup(ctx, a.str("group"), a.str("name"))
	},
	"group.describe": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.DescribeGroup(ctx, a.str("group"), a.str("description"))
	},
	"group.photo": func(ctx context.Context, c *client.Client, a args) (any, error) {
		jpeg, err := a.bytes("data")
		if err != nil {
			return nil, err
		}
		return c.SetGroupPhoto(ctx, a.str("group"), jpeg)
	},
	"group.participants": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.UpdateParticipants(ctx, a.str("group"), a.strs("participants"), a.str("action"))
	},
	"group.invite_link": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.InviteLink(ctx, a.str("group"), a.boolean("reset"))
	},
	"group.join": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.AcceptInvite(ctx, a.str("invite"))
	},
	"group.invite_info": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.InviteInfo(ctx, a.str("invite"))
	},

	"profile.status": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.SetStatus(ctx, a.str("text"))
	},
	"profile.name": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.SetName(ctx, a.str("name"))
	},
	"profile.picture": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.ProfilePicture(ctx, a.str("id"))
	},

	"label.create": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.CreateLabel(ctx, a.str("name"), a.int32("color"))
	},
	"label.edit": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.EditLabel(ctx, a.str("id"), a.str("name"), a.int32("color"))
	},
	"label.delete": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.DeleteLabel(ctx, a.str("id"))
	},

	"newsletter.create": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.CreateNewsletter(ctx, a.str("name"), a.str("description"))
	},
	"newsletter.follow": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.FollowNewsletter(ctx, a.str("id"))
	},
	"newsletter.unfollow": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.UnfollowNewsletter(ctx, a.str("id"))
	},
	"newsletter.info": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.NewsletterInfo(ctx, a.str("id"))
	},
	"number.check": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return c.OnWhatsApp(ctx, a.strs("phones"))
	},

	"identity.resolve": func(_ context.Context, c *client.Client, a args) (any, error) {
		return c.ResolveID(a.str("id")), nil
	},
	"identity.register": func(_ context.Context, c *client.Client, a args) (any, error) {
		return nil, c.RegisterMapping(a.str("lid"), a.str("pn"))
	},
	"identity.export": func(_ context.Context, c *client.Client, _ args) (any, error) {
		return c.ExportMappings(), nil
	},
	"identity.clear": func(_ context.Context, c *client.Client, _ args) (any, error) {
		c.ClearIdentityCache()
		return nil, nil
	},

	"contact.add": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.AddContact(ctx, a.str("id"), a.str("name"), a.str("first_name"))
	},
	"contact.remove": func(ctx context.Context, c *client.Client, a args) (any, error) {
		return nil, c.RemoveContact(ctx, a.str("id"))
	},

	"catalog.list":   unsupported("catalog.list"),
	"catalog.create": unsupported("catalog.create"),
	"catalog.update": unsupported("catalog.update"),
	"catalog.delete": unsupported("catalog.delete"),
}

// unsupported answers operations the transport has no request for.
func unsupported(name string) handler {
	return func(context.Context, *client.Client, args) (any, error) {
		return nil, fmt.Errorf("%s: %w", name, client.ErrUnsupported)
	}
}

// known reports whether name is a control method.
func known(name string) bool {
	if name == methodInstances {
		return true
	}
	_, ok := methods[name]
	return ok
}
