package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hi-events/hi-events-api/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type fakeSender struct {
	channel string
	content string
	err     error
}

func (f *fakeSender) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.content = content
	return &discordgo.Message{}, f.err
}

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

type failing struct{ err error }

func (f failing) NotifyRegistration(models.User, models.Event, models.Registration) error {
	return f.err
}

func fixtures() (models.User, models.Event, models.Registration) {
	name := "Ada"
	discordID := "42"
	user := models.User{Email: "ada@example.com", Name: &name, DiscordID: &discordID}
	user.ID = "user-1"
	event := models.Event{
		Title:     "Go Meetup",
		Location:  "Prague",
		StartDate: time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC),
	}
	event.ID = "event-1"
	reg := models.Registration{UserID: user.ID, EventID: event.ID, Status: models.RegistrationWaitlisted}
	reg.ID = "reg-1"
	return user, event, reg
}

func TestDiscordNotifier(t *testing.T) {
	user, event, reg := fixtures()
	sender := &fakeSender{}
	n := &DiscordNotifier{session: sender, channelID: "chan", logger: zerolog.Nop()}

	if err := n.NotifyRegistration(user, event, reg); err != nil {
		t.Fatalf("NotifyRegistration returned error: %v", err)
	}
	if sender.channel != "chan" {
		t.Errorf("sent to %q", sender.channel)
	}
	for _, want := range []string{"Ada", "<@42>", "Go Meetup", "May 1, 2024 6:00 PM", "waitlist"} {
		if !strings.Contains(sender.content, want) {
			t.Errorf("message %q does not contain %q", sender.content, want)
		}
	}
}

func TestDiscordNotifier_Misconfigured(t *testing.T) {
	user, event, reg := fixtures()

	if err := NewDiscordNotifier(nil, "chan", zerolog.Nop()).NotifyRegistration(user, event, reg); err == nil {
		t.Error("expected error without a session")
	}
	n := &DiscordNotifier{session: &fakeSender{}, logger: zerolog.Nop()}
	if err := n.NotifyRegistration(user, event, reg); err == nil {
		t.Error("expected error without a channel")
	}
}

func TestAMQPNotifier(t *testing.T) {
	user, event, reg := fixtures()
	pub := &fakePublisher{}
	n := &AMQPNotifier{channel: pub, exchange: "hi-events", logger: zerolog.Nop()}

	if err := n.NotifyRegistration(user, event, reg); err != nil {
		t.Fatalf("NotifyRegistration returned error: %v", err)
	}
	if pub.exchange != "hi-events" || pub.key != "registration.waitlisted" {
		t.Errorf("published to %s/%s", pub.exchange, pub.key)
	}
	if pub.msg.ContentType != "application/json" || pub.msg.MessageId != "reg-1" {
		t.Errorf("unexpected publishing %+v", pub.msg)
	}

	var body RegistrationMessage
	if err := json.Unmarshal(pub.msg.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.EventTitle != "Go Meetup" || body.UserEmail != "ada@example.com" || body.Status != models.RegistrationWaitlisted {
		t.Errorf("unexpected body %+v", body)
	}

	pub.err = errors.New("channel closed")
	if err := n.NotifyRegistration(user, event, reg); err == nil {
		t.Error("expected publish error to be returned")
	}
}

func TestMulti(t *testing.T) {
	user, event, reg := fixtures()
	sender := &fakeSender{}
	first := errors.New("first")

	m := Multi{
		failing{err: first},
		&DiscordNotifier{session: sender, channelID: "chan", logger: zerolog.Nop()},
		Nop{},
	}
	err := m.NotifyRegistration(user, event, reg)
	if !errors.Is(err, first) {
		t.Errorf("expected joined error, got %v", err)
	}
	if sender.content == "" {
		t.Error("a failing notifier must not stop the others")
	}

	if err := (Multi{Nop{}}).NotifyRegistration(user, event, reg); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
