package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/resendlabs/resend-go"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
)

// ErrMailDisabled is returned when no e-mail provider key is configured.
var ErrMailDisabled = errors.New("delivery: e-mail is not configured")

// sendFunc delivers one message and returns the provider message id.
type sendFunc func(params *resend.SendEmailRequest) (string, error)

// Mailer sends photo links to guests.
type Mailer struct {
	send   sendFunc
	from   string
	links  Links
	logger *infra.Logger
}

// NewMailer wraps a resend client. An empty apiKey yields a Mailer that
// always returns ErrMailDisabled.
func NewMailer(apiKey, from string, links Links, logger *infra.Logger) *Mailer {
	var send sendFunc
	if strings.TrimSpace(apiKey) != "" {
		client := resend.NewClient(apiKey)
		send = func(params *resend.SendEmailRequest) (string, error) {
			resp, err := client.Emails.Send(params)
			if err != nil {
				return "", err
			}
			return resp.Id, nil
		}
	}
	return newMailer(send, from, links, logger)
}

func newMailer(send sendFunc, from string, links Links, logger *infra.Logger) *Mailer {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Mailer{send: send, from: from, links: links, logger: logger}
}

var photoMail = template.Must(template.New("photo").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Thanks for visiting our photobooth!</p>
<p><a href="{{.Link}}"><img src="{{.ImageURL}}" alt="Your photo" style="max-width:480px"></a></p>
<p>Open or download your photo here: <a href="{{.Link}}">{{.Link}}</a></p>
</body></html>`))

// SendPhoto e-mails the gallery link of photo to recipient and returns the
// provider message id.
func (m *Mailer) SendPhoto(ctx context.Context, recipient string, photo domain.PhotoRecord) (string, error) {
	if m.send == nil {
		return "", ErrMailDisabled
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(recipient))
	if err != nil {
		return "", domain.NewError(domain.KindInvalidInput, "invalid e-mail address")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := photoMail.Execute(&body, map[string]string{
		"Link":     m.links.PhotoURL(photo.ID),
		"ImageURL": photo.URL,
	}); err != nil {
		return "", fmt.Errorf("delivery: render e-mail: %w", err)
	}

	id, err := m.send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{addr.Address},
		Subject: "Your photobooth picture",
		Html:    body.String(),
	})
	if err != nil {
		return "", fmt.Errorf("delivery: send e-mail: %w", err)
	}
	m.logger.Info().Str("photo_id", photo.ID).Str("message_id", id).Msg("delivery: e-mail sent")
	return id, nil
}
