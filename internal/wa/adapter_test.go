package wa

import (
	"context"
	"slices"
	"testing"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(context.Background(), Options{InstanceID: "test", SessionPath: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewAdapterRejectsBadInstance(t *testing.T) {
	_, err := NewAdapter(context.Background(), Options{InstanceID: "../etc", SessionPath: t.TempDir()}, zap.NewNop())
	if err == nil {
		t.Fatal("NewAdapter should reject an unsafe instance id")
	}
}

func TestFreshAdapterIsNotLoggedIn(t *testing.T) {
	a := newTestAdapter(t)
	if a.IsLoggedIn() {
		t.Error("fresh store should have no credentials")
	}
	if a.IsConnected() {
		t.Error("fresh adapter should not be connected")
	}
	if !a.OwnID().IsEmpty() {
		t.Errorf("OwnID() = %s, want empty", a.OwnID())
	}
}

func TestDispatchFiltersRawQRWhilePairing(t *testing.T) {
	a := newTestAdapter(t)
	var got []any
	a.AddEventHandler(func(evt any) { got = append(got, evt) })

	a.dispatch(&events.QR{Codes: []string{"raw"}})
	if len(got) != 1 {
		t.Fatalf("got %d events, want raw QR delivered when not pairing", len(got))
	}

	a.hmu.Lock()
	a.qrCancel = func() {}
	a.hmu.Unlock()

	a.dispatch(&events.QR{Codes: []string{"raw"}})
	a.dispatch(&events.Connected{})
	if len(got) != 2 {
		t.Fatalf("got %d events, want raw QR dropped while pairing", len(got))
	}
	if _, ok := got[1].(*events.Connected); !ok {
		t.Errorf("second event = %T, want *events.Connected", got[1])
	}

	a.stopQR()
	if a.pairing() {
		t.Error("stopQR should end pairing")
	}
}

func TestPurgeCredentialsKeepsHandlers(t *testing.T) {
	a := newTestAdapter(t)
	calls := 0
	a.AddEventHandler(func(any) { calls++ })

	before, _ := a.cli()
	if err := a.PurgeCredentials(context.Background()); err != nil {
		t.Fatalf("PurgeCredentials() error = %v", err)
	}
	after, _ := a.cli()
	if before == after {
		t.Error("purge should build a new client")
	}
	if a.IsLoggedIn() {
		t.Error("purged adapter must have no credentials")
	}

	a.dispatch(&events.Connected{})
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 after purge", calls)
	}
}

func TestClosedAdapter(t *testing.T) {
	a, err := NewAdapter(context.Background(), Options{InstanceID: "closed", SessionPath: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := a.Connect(); err != ErrNoClient {
		t.Errorf("Connect() after Close = %v, want ErrNoClient", err)
	}
	if _, err := a.SendText(context.Background(), a.OwnID(), "x"); err != ErrNoClient {
		t.Errorf("SendText() after Close = %v, want ErrNoClient", err)
	}
}

func TestUploadType(t *testing.T) {
	tests := []struct {
		kind    MediaKind
		want    whatsmeow.MediaType
		wantErr bool
	}{
		{MediaImage, whatsmeow.MediaImage, false},
		{MediaVideo, whatsmeow.MediaVideo, false},
		{MediaAudio, whatsmeow.MediaAudio, false},
		{MediaDocument, whatsmeow.MediaDocument, false},
		{"sticker", "", true},
	}
	for _, tt := range tests {
		got, err := uploadType(tt.kind)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("uploadType(%q) = %q, %v", tt.kind, got, err)
		}
	}
}

func TestBuildMediaMessage(t *testing.T) {
	up := whatsmeow.UploadResponse{URL: "https://mmg/x", DirectPath: "/v/x", FileLength: 42}

	img := buildMediaMessage(Media{Kind: MediaImage, MimeType: "image/png", Caption: "hi"}, up)
	if img.GetImageMessage().GetCaption() != "hi" || img.GetImageMessage().GetFileLength() != 42 {
		t.Errorf("image message = %v", img.GetImageMessage())
	}

	voice := buildMediaMessage(Media{Kind: MediaAudio, MimeType: "audio/ogg", Voice: true}, up)
	if !voice.GetAudioMessage().GetPTT() {
		t.Error("voice note should set PTT")
	}

	doc := buildMediaMessage(Media{Kind: MediaDocument, MimeType: "application/pdf", FileName: "a.pdf"}, up)
	if doc.GetDocumentMessage().GetFileName() != "a.pdf" || doc.GetDocumentMessage().GetDirectPath() != "/v/x" {
		t.Errorf("document message = %v", doc.GetDocumentMessage())
	}
	if doc.GetDocumentMessage().Caption != nil {
		t.Error("empty caption should stay unset")
	}
}

func TestDetectMIME(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := DetectMIME(png); got != "image/png" {
		t.Errorf("DetectMIME(png) = %q, want image/png", got)
	}
	if got := DetectMIME([]byte("%PDF-1.7\n")); got != "application/pdf" {
		t.Errorf("DetectMIME(pdf) = %q, want application/pdf", got)
	}
}

func TestForwarded(t *testing.T) {
	orig := &waE2E.Message{Conversation: proto.String("hello")}
	fwd, err := forwarded(orig)
	if err != nil {
		t.Fatal(err)
	}
	ext := fwd.GetExtendedTextMessage()
	if ext.GetText() != "hello" || !ext.GetContextInfo().GetIsForwarded() {
		t.Errorf("forwarded text = %v", ext)
	}
	if orig.GetExtendedTextMessage() != nil {
		t.Error("original must not be modified")
	}

	img, err := forwarded(&waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("c")}})
	if err != nil {
		t.Fatal(err)
	}
	if !img.GetImageMessage().GetContextInfo().GetIsForwarded() {
		t.Error("image should be flagged forwarded")
	}

	if _, err := forwarded(&waE2E.Message{}); err == nil {
		t.Error("empty content should not be forwardable")
	}
	if _, err := forwarded(nil); err == nil {
		t.Error("nil message should not be forwardable")
	}
}

func TestDeleteForMePatch(t *testing.T) {
	group := types.NewJID("120363-1", types.GroupServer)
	direct := types.NewJID("62811", types.DefaultUserServer)
	author := types.NewJID("62822", types.DefaultUserServer)
	ts := time.Unix(1700000000, 0)

	tests := []struct {
		name   string
		chat   types.JID
		sender types.JID
		fromMe bool
		want   []string
	}{
		{"group author", group, author, false, []string{appstate.IndexDeleteMessageForMe, group.String(), "m1", "0", author.String()}},
		{"own group message", group, types.EmptyJID, true, []string{appstate.IndexDeleteMessageForMe, group.String(), "m1", "1", "0"}},
		{"direct chat", direct, direct, false, []string{appstate.IndexDeleteMessageForMe, direct.String(), "m1", "0", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := deleteForMePatch(tt.chat, tt.sender, "m1", tt.fromMe, ts)
			if patch.Type != appstate.WAPatchRegularHigh || len(patch.Mutations) != 1 {
				t.Fatalf("patch = %+v", patch)
			}
			m := patch.Mutations[0]
			if !slices.Equal(m.Index, tt.want) {
				t.Errorf("index = %v, want %v", m.Index, tt.want)
			}
			if act := m.Value.GetDeleteMessageForMeAction(); act.GetMessageTimestamp() != 1700000000 || act.GetDeleteMedia() {
				t.Errorf("action = %v", act)
			}
		})
	}
}

func TestContactPatch(t *testing.T) {
	jid := types.NewJID("5511999990000", types.DefaultUserServer)

	add := contactPatch(jid, "Maria Silva", "Maria")
	if add.Type != appstate.WAPatchCriticalUnblockLow {
		t.Errorf("type = %s", add.Type)
	}
	m := add.Mutations[0]
	if !slices.Equal(m.Index, []string{appstate.IndexContact, jid.String()}) {
		t.Errorf("index = %v", m.Index)
	}
	act := m.Value.GetContactAction()
	if act.GetFullName() != "Maria Silva" || act.GetFirstName() != "Maria" || !act.GetSaveOnPrimaryAddressbook() {
		t.Errorf("add action = %v", act)
	}

	removed := contactPatch(jid, "", "").Mutations[0].Value.GetContactAction()
	if removed.GetFullName() != "" || removed.GetSaveOnPrimaryAddressbook() {
		t.Errorf("remove action = %v", removed)
	}
}

func TestAppStateCommandsNeedClient(t *testing.T) {
	a, err := NewAdapter(context.Background(), Options{InstanceID: "closed", SessionPath: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	_ = a.Close()
	jid := types.NewJID("62811", types.DefaultUserServer)
	if err := a.DeleteForMe(context.Background(), jid, jid, "m1", false, time.Now()); err != ErrNoClient {
		t.Errorf("DeleteForMe() after Close = %v, want ErrNoClient", err)
	}
	if err := a.SaveContact(context.Background(), jid, "A", "A"); err != ErrNoClient {
		t.Errorf("SaveContact() after Close = %v, want ErrNoClient", err)
	}
}
