package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/listing"
	"github.com/linesmerrill/legal-case-api/models"
	templates "github.com/linesmerrill/legal-case-api/templates/html"
)

// jobTimeout bounds a single reminder run
const jobTimeout = 5 * time.Minute

// Mailer delivers one email
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, htmlContent, plainText string) error
}

// SendgridMailer sends email through the SendGrid v3 API
type SendgridMailer struct {
	FromName  string
	FromEmail string
	client    *sendgrid.Client
}

// NewSendgridMailer returns a mailer using apiKey
func NewSendgridMailer(apiKey, fromEmail string) *SendgridMailer {
	return &SendgridMailer{
		FromName:  "Legal Case Manager",
		FromEmail: fromEmail,
		client:    sendgrid.NewSendClient(apiKey),
	}
}

// Send implements Mailer
func (m *SendgridMailer) Send(ctx context.Context, toName, toEmail, subject, htmlContent, plainText string) error {
	from := mail.NewEmail(m.FromName, m.FromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// Scheduler emails hearing reminders on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	schedule string

	Cases  databases.CaseDatabase
	Users  databases.UserDatabase
	Prefs  databases.UserPreferencesDatabase
	Mailer Mailer
	Now    func() time.Time
}

// NewScheduler creates a new scheduler instance running on schedule, a five
// field cron expression evaluated in UTC
func NewScheduler(schedule string, cases databases.CaseDatabase, users databases.UserDatabase, prefs databases.UserPreferencesDatabase, mailer Mailer) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		Cases:    cases,
		Users:    users,
		Prefs:    prefs,
		Mailer:   mailer,
	}
}

// Start registers the reminder job and begins the scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runHearingReminders)
	if err != nil {
		return fmt.Errorf("failed to register hearing reminder job: %w", err)
	}
	s.cron.Start()
	zap.S().Infow("Hearing reminder scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Hearing reminder scheduler stopped")
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) runHearingReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := s.SendHearingReminders(ctx)
	if err != nil {
		zap.S().Errorw("hearing reminder job failed", "error", err)
		return
	}
	zap.S().Infow("hearing reminder job finished", "sent", sent)
}

// SendHearingReminders emails the owner of every case whose hearing falls in
// the alert window. Each hearing date is reminded at most once: the case is
// claimed by writing hearingReminderFor before the email goes out, so
// concurrent runs never both send.
func (s *Scheduler) SendHearingReminders(ctx context.Context) (int, error) {
	now := s.now()
	upcoming, err := s.Cases.Find(ctx, bson.M{"clientDetails.hearingDate": bson.M{
		"$gte": now,
		"$lte": now.Add(listing.AlertWindow),
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to find upcoming hearings: %w", err)
	}

	byID := make(map[primitive.ObjectID]models.Case, len(upcoming))
	for _, c := range upcoming {
		byID[c.ID] = c
	}

	sent := 0
	for _, alert := range listing.UpcomingHearings(upcoming, now) {
		c := byID[alert.CaseID]
		if c.HearingReminderFor != nil && c.HearingReminderFor.Equal(alert.HearingDate) {
			continue
		}
		if c.CreatedBy == nil {
			zap.S().Debugw("skipping reminder for case without owner", "case_id", c.ID.Hex())
			continue
		}
		ok, err := s.remind(ctx, c, alert)
		if err != nil {
			zap.S().Errorw("failed to send hearing reminder", "case_id", c.ID.Hex(), "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (s *Scheduler) remind(ctx context.Context, c models.Case, alert models.HearingAlert) (bool, error) {
	user, err := s.Users.FindOne(ctx, bson.M{"_id": *c.CreatedBy})
	if err != nil {
		return false, fmt.Errorf("failed to get case owner: %w", err)
	}

	prefs, err := s.Prefs.FindOne(ctx, bson.M{"userId": user.ID.Hex()})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("failed to get user preferences: %w", err)
	}
	if prefs == nil {
		defaults := models.DefaultUserPreferences(user.ID.Hex())
		prefs = &defaults
	}
	if !prefs.HearingReminders {
		return false, nil
	}

	claimed, err := s.Cases.UpdateOne(ctx,
		bson.M{"_id": c.ID, "hearingReminderFor": bson.M{"$ne": alert.HearingDate}},
		bson.M{"$set": bson.M{"hearingReminderFor": alert.HearingDate}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	if claimed == 0 {
		return false, nil
	}

	subject, htmlContent, plainText := templates.HearingReminder(user.FullName, alert, time.UTC)
	if err := s.Mailer.Send(ctx, user.FullName, user.Email, subject, htmlContent, plainText); err != nil {
		// release the claim so the next run tries again
		_, uerr := s.Cases.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$unset": bson.M{"hearingReminderFor": ""}})
		if uerr != nil {
			zap.S().Errorw("failed to release reminder claim", "case_id", c.ID.Hex(), "error", uerr)
		}
		return false, err
	}
	zap.S().Infow("hearing reminder sent", "case_id", c.ID.Hex(), "case_number", c.CaseNumber, "user_id", user.ID.Hex())
	return true, nil
}
