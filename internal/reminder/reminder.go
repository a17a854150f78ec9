// Package reminder sends daily birthday reminder mail on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/meetlog/meetlog/internal/contacts"
	"github.com/meetlog/meetlog/internal/users"
)

// BirthdayLister reports contacts whose birthday falls on the given day.
type BirthdayLister interface {
	BirthdaysOn(ctx context.Context, day time.Time) ([]contacts.Contact, error)
}

// AccountDirectory lists the accounts that can receive reminder mail.
type AccountDirectory interface {
	ListWithEmail(ctx context.Context) ([]users.User, error)
}

// Service runs the birthday check on a cron schedule and mails each account
// the birthdays among its own contacts. Unclaimed channel contacts have no
// mailbox to notify and are skipped.
type Service struct {
	store    BirthdayLister
	accounts AccountDirectory
	mailer   Mailer
	cron     *cron.Cron
	pattern  string
	logger   *slog.Logger
	entryID  cron.EntryID
}

func NewService(log *slog.Logger, store BirthdayLister, accounts AccountDirectory, mailer Mailer, pattern string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		accounts: accounts,
		mailer:   mailer,
		cron:     cron.New(),
		pattern:  pattern,
		logger:   log.With(slog.String("service", "reminder")),
	}
}

// Start registers the cron job and starts the scheduler.
func (s *Service) Start() error {
	if s.store == nil || s.mailer == nil {
		return fmt.Errorf("reminder dependencies not configured")
	}
	entryID, err := s.cron.AddFunc(s.pattern, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.RunOnce(ctx, time.Now()); err != nil {
			s.logger.Error("birthday run failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder cron pattern %q: %w", s.pattern, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.logger.Info("reminder schedule started", slog.String("pattern", s.pattern))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one birthday sweep for the given day. Delivery failures
// for one account do not block the others.
func (s *Service) RunOnce(ctx context.Context, day time.Time) error {
	items, err := s.store.BirthdaysOn(ctx, day)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	recipients, err := s.accounts.ListWithEmail(ctx)
	if err != nil {
		return err
	}
	mailboxes := make(map[string]users.User, len(recipients))
	for _, account := range recipients {
		mailboxes[account.ID] = account
	}

	byAccount := groupByAccount(items)
	for accountID, accountItems := range byAccount {
		account, ok := mailboxes[accountID]
		if !ok {
			// Owner has no mailbox or is inactive; nothing to deliver.
			continue
		}
		body := renderEmail(accountItems, day)
		if err := s.mailer.Send(ctx, account.Email, subjectFor(accountItems), body); err != nil {
			s.logger.Error("send reminder failed", slog.String("account_id", accountID), slog.Any("error", err))
			continue
		}
		s.logger.Info("reminder sent",
			slog.String("account_id", accountID),
			slog.Int("birthdays", len(accountItems)),
		)
	}
	return nil
}

// groupByAccount buckets account-owned contacts by owner; channel contacts
// are dropped.
func groupByAccount(items []contacts.Contact) map[string][]contacts.Contact {
	byAccount := make(map[string][]contacts.Contact)
	for _, item := range items {
		if item.Owner.Kind != contacts.OwnerAccount {
			continue
		}
		byAccount[item.Owner.Ref] = append(byAccount[item.Owner.Ref], item)
	}
	return byAccount
}
