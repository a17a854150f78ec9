package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/meetlog/meetlog/internal/contacts"
	"github.com/meetlog/meetlog/internal/users"
)

type fakeStore struct {
	items []contacts.Contact
	err   error
}

func (f *fakeStore) BirthdaysOn(_ context.Context, _ time.Time) ([]contacts.Contact, error) {
	return f.items, f.err
}

type fakeDirectory struct {
	accounts []users.User
	err      error
}

func (f *fakeDirectory) ListWithEmail(_ context.Context) ([]users.User, error) {
	return f.accounts, f.err
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

var testDay = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func accountContact(name, owner string) contacts.Contact {
	return contacts.Contact{Name: name, Owner: contacts.AccountOwner(owner), Birthday: "1990-05-10"}
}

func TestRunOnceSendsPerAccount(t *testing.T) {
	store := &fakeStore{items: []contacts.Contact{
		accountContact("Alex", "acc-1"),
		accountContact("Jane Doe", "acc-1"),
		accountContact("Sam", "acc-2"),
	}}
	directory := &fakeDirectory{accounts: []users.User{
		{ID: "acc-1", Email: "one@example.com", IsActive: true},
		{ID: "acc-2", Email: "two@example.com", IsActive: true},
	}}
	mailer := &fakeMailer{}
	service := NewService(nil, store, directory, mailer, "0 8 * * *")

	if err := service.RunOnce(context.Background(), testDay); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d mails, want 2", len(mailer.sent))
	}

	byTo := map[string]sentMail{}
	for _, m := range mailer.sent {
		byTo[m.to] = m
	}
	first := byTo["one@example.com"]
	if first.subject != "2 birthdays today" {
		t.Errorf("subject = %q", first.subject)
	}
	if !strings.Contains(first.body, "Alex") || !strings.Contains(first.body, "Jane Doe") {
		t.Errorf("body missing names: %q", first.body)
	}
	if strings.Contains(first.body, "Sam") {
		t.Error("body leaks another account's contact")
	}
	if second := byTo["two@example.com"]; second.subject != "Birthday today: Sam" {
		t.Errorf("subject = %q", second.subject)
	}
}

func TestRunOnceSkipsChannelAndMailless(t *testing.T) {
	store := &fakeStore{items: []contacts.Contact{
		{Name: "Unclaimed", Owner: contacts.ChannelOwner("telegram"), Birthday: "1990-05-10"},
		accountContact("Quiet", "acc-no-mail"),
		accountContact("Gone", "acc-inactive"),
	}}
	// Neither owner is a mailable account, so the directory lists nobody.
	directory := &fakeDirectory{}
	mailer := &fakeMailer{}
	service := NewService(nil, store, directory, mailer, "0 8 * * *")

	if err := service.RunOnce(context.Background(), testDay); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d mails, want 0", len(mailer.sent))
	}
}

func TestRunOnceNoBirthdays(t *testing.T) {
	mailer := &fakeMailer{}
	service := NewService(nil, &fakeStore{}, &fakeDirectory{}, mailer, "0 8 * * *")

	if err := service.RunOnce(context.Background(), testDay); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestRunOnceStoreFailure(t *testing.T) {
	service := NewService(nil, &fakeStore{err: errors.New("db down")}, &fakeDirectory{}, &fakeMailer{}, "0 8 * * *")
	if err := service.RunOnce(context.Background(), testDay); err == nil {
		t.Fatal("store failure must surface")
	}
}

func TestRunOnceDirectoryFailure(t *testing.T) {
	store := &fakeStore{items: []contacts.Contact{accountContact("Alex", "acc-1")}}
	directory := &fakeDirectory{err: errors.New("db down")}
	mailer := &fakeMailer{}
	service := NewService(nil, store, directory, mailer, "0 8 * * *")

	if err := service.RunOnce(context.Background(), testDay); err == nil {
		t.Fatal("recipient lookup failure must surface")
	}
	if len(mailer.sent) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestRenderEmailEscapes(t *testing.T) {
	body := renderEmail([]contacts.Contact{
		{Name: "Alex & Co", LocationFrom: "Lisbon"},
	}, testDay)
	if !strings.Contains(body, "Alex &amp; Co") {
		t.Errorf("name not escaped: %q", body)
	}
	if !strings.Contains(body, "(Lisbon)") {
		t.Errorf("origin missing: %q", body)
	}
}

func TestStartRejectsBadPattern(t *testing.T) {
	service := NewService(nil, &fakeStore{}, &fakeDirectory{}, &fakeMailer{}, "not a pattern")
	if err := service.Start(); err == nil {
		t.Fatal("invalid cron pattern must fail")
	}
}
