package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrMissingAPIKey = errors.New("sendgrid api key is missing")

// EmailService delivers transactional mail for the storefront.
type EmailService interface {
	Send(ctx context.Context, req *models.EmailNotificationRequest) error
}

type Option func(*emailService)

const sendPath = "/v3/mail/send"

// WithEndpoint points the client at another host, e.g. a local test server.
func WithEndpoint(host string) Option {
	return func(e *emailService) {
		e.client.Request.BaseURL = strings.TrimRight(host, "/") + sendPath
	}
}

type emailService struct {
	client   *sg.Client
	apiKey   string
	from     *mail.Email
	category string
}

func NewEmailService(apiKey, fromEmail, fromName string, opts ...Option) EmailService {

	e := &emailService{
		client:   sg.NewSendClient(apiKey),
		apiKey:   apiKey,
		from:     mail.NewEmail(fromName, fromEmail),
		category: "storefront",
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *emailService) build(req *models.EmailNotificationRequest) *mail.SGMailV3 {

	message := mail.NewV3Mail()
	message.SetFrom(e.from)
	message.AddCategories(e.category)

	p := mail.NewPersonalization()
	p.Subject = req.Subject
	p.AddTos(mail.NewEmail("", req.To))

	for _, addr := range req.CC {
		p.AddCCs(mail.NewEmail("", addr))
	}
	for _, addr := range req.BCC {
		p.AddBCCs(mail.NewEmail("", addr))
	}

	// Metadata (order and user ids) comes back on SendGrid event webhooks.
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.SetCustomArg(k, req.Metadata[k])
	}

	message.AddPersonalizations(p)

	// text/plain must precede text/html
	if req.Content != "" {
		message.AddContent(mail.NewContent("text/plain", req.Content))
	}
	if req.HTMLContent != "" {
		message.AddContent(mail.NewContent("text/html", req.HTMLContent))
	}

	return message
}

// Send delivers one message. A missing API key fails before any request.
func (e *emailService) Send(ctx context.Context, req *models.EmailNotificationRequest) error {

	if e.apiKey == "" {
		return ErrMissingAPIKey
	}

	resp, err := e.client.SendWithContext(ctx, e.build(req))
	if err != nil {
		return fmt.Errorf("failed to reach sendgrid: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected the message with status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}
