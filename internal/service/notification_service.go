package service

import (
	"context"
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/model"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Notifier tells a learner about a newly issued certificate.
type Notifier interface {
	CertificateIssued(ctx context.Context, user *model.User, course *model.Course, cert *model.Certificate) error
}

type noopNotifier struct{}

func (noopNotifier) CertificateIssued(context.Context, *model.User, *model.Course, *model.Certificate) error {
	return nil
}

type SendGridNotifier struct {
	client    *sendgrid.Client
	from      *sgmail.Email
	verifyURL string
}

// NewNotifier returns a SendGrid notifier when email is enabled and keyed,
// and a no-op otherwise.
func NewNotifier(cfg *config.Config) Notifier {
	if !cfg.Email.Enabled || cfg.Email.SendGridAPIKey == "" {
		return noopNotifier{}
	}
	return &SendGridNotifier{
		client:    sendgrid.NewSendClient(cfg.Email.SendGridAPIKey),
		from:      sgmail.NewEmail(cfg.Email.FromName, cfg.Email.FromAddress),
		verifyURL: strings.TrimRight(cfg.Certificate.VerifyBaseURL, "/"),
	}
}

func (n *SendGridNotifier) message(user *model.User, course *model.Course, cert *model.Certificate) *sgmail.SGMailV3 {
	subject := fmt.Sprintf("Your certificate for %s", course.Title)
	link := cert.ArtifactURL
	if n.verifyURL != "" {
		link = n.verifyURL + "/" + cert.ID
	}

	text := fmt.Sprintf("Congratulations %s!\n\nYou completed %s. Your certificate: %s\n",
		user.DisplayName(), course.Title, link)
	html := fmt.Sprintf("<p>Congratulations %s!</p><p>You completed <strong>%s</strong>.</p><p><a href=\"%s\">View your certificate</a></p>",
		user.DisplayName(), course.Title, link)

	return sgmail.NewSingleEmail(n.from, subject, sgmail.NewEmail(user.DisplayName(), user.Email), text, html)
}

func (n *SendGridNotifier) CertificateIssued(ctx context.Context, user *model.User, course *model.Course, cert *model.Certificate) error {
	resp, err := n.client.SendWithContext(ctx, n.message(user, course, cert))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
