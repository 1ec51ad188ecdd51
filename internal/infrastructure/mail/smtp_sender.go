package mail

import (
	"context"
	"fmt"
	"html"
	"strings"

	"vetclinic-scheduler/config"

	"gopkg.in/gomail.v2"
)

// Reminder is what a recipient needs to know about an upcoming visit.
type Reminder struct {
	Email     string
	OwnerName string
	PetName   string
	Date      string
	Time      string
	Type      string
	Subject   string
	Intro     string
}

// SMTPSender delivers reminder emails through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

// SendAppointmentReminder blocks until the relay accepts the message or ctx ends.
// gomail has no context support, so a cancelled ctx abandons the send goroutine
// rather than interrupting it.
func (s *SMTPSender) SendAppointmentReminder(ctx context.Context, r Reminder) error {
	m := BuildReminderMessage(s.from, r)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send reminder to %s: %w", r.Email, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send reminder to %s: %w", r.Email, ctx.Err())
	}
}

// BuildReminderMessage renders the plain text and HTML bodies
func BuildReminderMessage(from string, r Reminder) *gomail.Message {
	subject := r.Subject
	if subject == "" {
		subject = "Appointment reminder"
	}
	intro := r.Intro
	if intro == "" {
		intro = "This is a reminder of your upcoming appointment."
	}

	visit := strings.ReplaceAll(r.Type, "_", " ")

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", r.Email)
	m.SetHeader("Subject", subject)

	m.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\n%s\n\nPet: %s\nVisit: %s\nDate: %s\nTime: %s\n",
		r.OwnerName, intro, r.PetName, visit, r.Date, r.Time,
	))

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif;">
		<h2>` + html.EscapeString(subject) + `</h2>
		<p>Hello ` + html.EscapeString(r.OwnerName) + `,</p>
		<p>` + html.EscapeString(intro) + `</p>
		<ul>
			<li><b>Pet:</b> ` + html.EscapeString(r.PetName) + `</li>
			<li><b>Visit:</b> ` + html.EscapeString(visit) + `</li>
			<li><b>Date:</b> ` + html.EscapeString(r.Date) + `</li>
			<li><b>Time:</b> ` + html.EscapeString(r.Time) + `</li>
		</ul>
	</body>
	</html>
	`
	m.AddAlternative("text/html", htmlBody)

	return m
}
