package service

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"delegues-backend/internal/domain"
	"delegues-backend/internal/logger"
)

// Message is a single outgoing email.
type Message struct {
	To        string
	Subject   string
	PlainText string
	HTML      string
}

// Sender delivers one message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const sendGridHost = "https://api.sendgrid.com"

type sendGridSender struct {
	apiKey string
	host   string
	from   *mail.Email
}

// NewSendGridSender sends through the SendGrid v3 mail API.
func NewSendGridSender(apiKey, fromEmail, fromName string) Sender {
	return newSendGridSender(apiKey, sendGridHost, fromEmail, fromName)
}

func newSendGridSender(apiKey, host, fromEmail, fromName string) *sendGridSender {
	return &sendGridSender{
		apiKey: apiKey,
		host:   host,
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (s *sendGridSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail("", msg.To), msg.PlainText, msg.HTML)

	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)

	logger.ExternalServiceCall("sendgrid", "mail.send", "to", msg.To)
	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "mail.send", err, "to", msg.To)
	if err != nil {
		return fmt.Errorf("failed to send email via sendgrid: %w", err)
	}
	return nil
}

type logSender struct{}

// NewLogSender writes messages to the log instead of delivering them.
func NewLogSender() Sender {
	return logSender{}
}

func (logSender) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "Email (not delivered)", "to", msg.To, "subject", msg.Subject, "body", msg.PlainText)
	return nil
}

// Enqueuer hands a message to the asynchronous dispatcher and returns the
// channel that will receive its delivery result.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg Message) (<-chan error, error)
}

type emailService struct {
	queue   Enqueuer
	subject string
}

func NewEmailService(queue Enqueuer, subject string) EmailService {
	return &emailService{queue: queue, subject: subject}
}

// SendConfirmation queues the confirmation message and waits for its result.
func (s *emailService) SendConfirmation(ctx context.Context, to, link string) error {
	msg := Message{
		To:      to,
		Subject: s.subject,
		PlainText: fmt.Sprintf("Bonjour,\n\nPour confirmer votre inscription comme délégué de bureau de vote, "+
			"ouvrez le lien suivant :\n\n%s\n\nSi vous n'êtes pas à l'origine de cette demande, ignorez ce message.", link),
		HTML: fmt.Sprintf(`<p>Bonjour,</p><p>Pour confirmer votre inscription comme délégué de bureau de vote, `+
			`cliquez sur le lien suivant :</p><p><a href="%[1]s">%[1]s</a></p>`, html.EscapeString(link)),
	}

	result, err := s.queue.Enqueue(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmailDispatch, err)
	}

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmailDispatch, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrEmailDispatch, ctx.Err())
	}
}
