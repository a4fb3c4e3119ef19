package notify

import (
	"context"
	"fmt"

	awsclients "dealer-workers/internal/common/aws"
	"dealer-workers/internal/common/errors"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/common/metrics"
	"dealer-workers/internal/common/validation"
	"dealer-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"gopkg.in/mail.v2"
)

const charsetUTF8 = "UTF-8"

func emailResult(log logger.Logger, to string, err error) EmailResult {
	if err != nil {
		se := errors.NewNotificationSendFailedError(models.ChannelEmail, err)
		log.Warn("email send failed", map[string]interface{}{
			"to":    to,
			"error": se.Details,
		})
		metrics.ChannelSendsTotal.WithLabelValues(models.ChannelEmail, "failed").Inc()
		return EmailResult{Sent: false, Error: err.Error()}
	}
	metrics.ChannelSendsTotal.WithLabelValues(models.ChannelEmail, "sent").Inc()
	return EmailResult{Sent: true}
}

func checkRecipient(to string) error {
	if !validation.ValidateEmail(to) {
		return fmt.Errorf("invalid recipient address %q", to)
	}
	return nil
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	ses    awsclients.SESService
	from   string
	logger logger.Logger
}

func NewSESMailer(client awsclients.SESService, from string, log logger.Logger) *SESMailer {
	return &SESMailer{
		ses:    client,
		from:   from,
		logger: log.WithFields(map[string]interface{}{"channel": models.ChannelEmail, "provider": "ses"}),
	}
}

func (m *SESMailer) SendEmail(ctx context.Context, to, subject, text string) EmailResult {
	if err := checkRecipient(to); err != nil {
		return emailResult(m.logger, to, err)
	}

	_, err := m.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String(charsetUTF8)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(text), Charset: aws.String(charsetUTF8)},
			},
		},
	})
	return emailResult(m.logger, to, err)
}

// Dialer is the part of *mail.Dialer the SMTP mailer needs.
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPConfig holds the admin-configured SMTP server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	dialer Dialer
	from   string
	logger logger.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log logger.Logger) *SMTPMailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.UseTLS {
		d.SSL = cfg.Port == 465
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}
	return newSMTPMailer(d, cfg.From, log)
}

func newSMTPMailer(d Dialer, from string, log logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		dialer: d,
		from:   from,
		logger: log.WithFields(map[string]interface{}{"channel": models.ChannelEmail, "provider": "smtp"}),
	}
}

func (m *SMTPMailer) SendEmail(ctx context.Context, to, subject, text string) EmailResult {
	if err := checkRecipient(to); err != nil {
		return emailResult(m.logger, to, err)
	}
	if err := ctx.Err(); err != nil {
		return emailResult(m.logger, to, err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)

	return emailResult(m.logger, to, m.dialer.DialAndSend(msg))
}
