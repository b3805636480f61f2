// Package mail delivers one-time passwords by email.
package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/ruet-portal/portal-backend/internal/config"
)

// Mailer sends a single message.  Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay, dialling once per message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.  It is
// wired when no SMTP relay is configured.
type LogMailer struct {
	Log *logrus.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.Log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info(body)
	return nil
}

// Recorder keeps sent messages in memory; Err, when set, fails every send.
type Recorder struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

type Message struct {
	To, Subject, Body string
}

func (r *Recorder) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return Message{}, false
	}
	return r.Sent[len(r.Sent)-1], true
}

// OTPMessage renders the subject and body of an OTP email.
func OTPMessage(name, code string, validMinutes int) (string, string) {
	subject := "Your RUET portal verification code"
	body := fmt.Sprintf("Hello %s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not request this code you can ignore this email.\n",
		name, code, validMinutes)
	return subject, body
}
