package delivery

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/resendlabs/resend-go"

	"photobooth/internal/domain"
)

func TestPhotoURL(t *testing.T) {
	links := NewLinks("https://gallery.example.com/")
	if got := links.PhotoURL("a b"); got != "https://gallery.example.com/photos/a%20b" {
		t.Fatalf("PhotoURL = %q", got)
	}
}

func TestQRCodeIsPNG(t *testing.T) {
	png, err := QRCode("https://gallery.example.com/photos/1", 0)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("expected PNG output")
	}
	if _, err := QRCode("  ", 256); err == nil {
		t.Fatal("expected error for empty link")
	}
}

func TestSendPhoto(t *testing.T) {
	var sent *resend.SendEmailRequest
	m := newMailer(func(p *resend.SendEmailRequest) (string, error) {
		sent = p
		return "msg-1", nil
	}, "Booth <booth@example.com>", NewLinks("https://g.example"), nil)

	id, err := m.SendPhoto(context.Background(), "Guest <guest@example.com>", domain.PhotoRecord{ID: "p1", URL: "https://cdn/p1.jpg"})
	if err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	if id != "msg-1" {
		t.Fatalf("id = %q", id)
	}
	if len(sent.To) != 1 || sent.To[0] != "guest@example.com" || sent.From != "Booth <booth@example.com>" {
		t.Fatalf("unexpected request %#v", sent)
	}
	if !strings.Contains(sent.Html, "https://g.example/photos/p1") || !strings.Contains(sent.Html, "https://cdn/p1.jpg") {
		t.Fatalf("html missing links: %s", sent.Html)
	}
}

func TestSendPhotoErrors(t *testing.T) {
	disabled := NewMailer("", "x@example.com", NewLinks("https://g"), nil)
	if _, err := disabled.SendPhoto(context.Background(), "guest@example.com", domain.PhotoRecord{ID: "p"}); !errors.Is(err, ErrMailDisabled) {
		t.Fatalf("expected ErrMailDisabled, got %v", err)
	}

	calls := 0
	m := newMailer(func(p *resend.SendEmailRequest) (string, error) {
		calls++
		return "", errors.New("rate limited")
	}, "x@example.com", NewLinks("https://g"), nil)
	if _, err := m.SendPhoto(context.Background(), "not-an-address", domain.PhotoRecord{ID: "p"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("invalid address must not be sent")
	}
	if _, err := m.SendPhoto(context.Background(), "guest@example.com", domain.PhotoRecord{ID: "p"}); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected provider error, got %v", err)
	}
}
