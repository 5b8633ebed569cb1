package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/quarrel-dev/upkeep/internal/notify"
)

type fakeSession struct {
	contents []string
	err      error
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.contents = append(f.contents, content)
	return &discordgo.Message{Content: content}, f.err
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Opts{ChannelID: "123"}); err == nil {
		t.Error("New() without token: error = nil, want error")
	}
	if _, err := New(Opts{Token: "abc"}); err == nil {
		t.Error("New() without channel: error = nil, want error")
	}
	if _, err := New(Opts{Session: &fakeSession{}, ChannelID: "123"}); err != nil {
		t.Errorf("New() with injected session: error = %v", err)
	}
}

func TestSend(t *testing.T) {
	fake := &fakeSession{}
	n, err := New(Opts{Session: fake, ChannelID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Send(context.Background(), notify.Notification{Subject: "Issue #7 assigned", Body: "details"}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(fake.contents) != 1 {
		t.Fatalf("messages sent = %d, want 1", len(fake.contents))
	}
	if !strings.HasPrefix(fake.contents[0], "**Issue #7 assigned**\n") {
		t.Errorf("content = %q, want bolded subject first", fake.contents[0])
	}
}

func TestSendError(t *testing.T) {
	n, err := New(Opts{Session: &fakeSession{err: errors.New("missing access")}, ChannelID: "123"})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Send(context.Background(), notify.Notification{Subject: "s"}); err == nil {
		t.Error("Send() error = nil, want error")
	}
}
