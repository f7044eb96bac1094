package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/logger"
	gomail "github.com/wneessen/go-mail"
)

// Message is one outbound plain-text email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the mailer selected by cfg.Mail.Driver.
func New(cfg *config.Config, log logger.Logger) (Mailer, error) {
	switch cfg.Mail.Driver {
	case "smtp":
		return NewSMTP(cfg.Mail, log)
	case "", "log":
		return NewLog(cfg.Mail.From, log), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Mail.Driver)
	}
}

// SMTP delivers messages through an SMTP relay.
type SMTP struct {
	client *gomail.Client
	from   string
	log    logger.Logger
}

// NewSMTP creates an SMTP mailer.
func NewSMTP(cfg config.MailConfig, log logger.Logger) (*SMTP, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create smtp client: %w", err)
	}

	return &SMTP{client: client, from: cfg.From, log: log}, nil
}

func tlsPolicy(s string) gomail.TLSPolicy {
	switch strings.ToLower(s) {
	case "mandatory":
		return gomail.TLSMandatory
	case "none":
		return gomail.NoTLS
	default:
		return gomail.TLSOpportunistic
	}
}

// Send builds and delivers msg.
func (m *SMTP) Send(ctx context.Context, msg Message) error {
	mail := gomail.NewMsg()
	if err := mail.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := mail.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := mail.ReplyTo(msg.ReplyTo); err != nil {
			return fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	mail.Subject(msg.Subject)
	mail.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := m.client.DialAndSendWithContext(ctx, mail); err != nil {
		return fmt.Errorf("cannot send mail to %s: %w", msg.To, err)
	}
	m.log.Debugf("Mail sent to %s", msg.To)
	return nil
}

// Log writes messages to the logger instead of sending them.
type Log struct {
	from string
	log  logger.Logger
}

// NewLog creates a logging mailer.
func NewLog(from string, log logger.Logger) *Log {
	return &Log{from: from, log: log}
}

// Send logs msg.
func (m *Log) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("cannot send mail: no recipient")
	}
	m.log.With("from", m.from, "to", msg.To, "reply_to", msg.ReplyTo).
		Infof("Mail %q\n%s", msg.Subject, msg.Body)
	return nil
}
