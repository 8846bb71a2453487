package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailCodeSender mails reset codes through the Gmail API as the authorized account.
type GmailCodeSender struct {
	svc  *gmail.Service
	from string
}

// NewGmailCodeSender builds a sender from an OAuth client credentials file
// and a previously authorized token file. The server never runs the
// interactive consent flow; the token must already exist.
func NewGmailCodeSender(ctx context.Context, credentialsFile, tokenFile, from string) (*GmailCodeSender, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail token: %w", err)
	}
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(context.Background(), tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}
	return NewGmailCodeSenderWithService(srv, from), nil
}

func NewGmailCodeSenderWithService(svc *gmail.Service, from string) *GmailCodeSender {
	return &GmailCodeSender{svc: svc, from: from}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (s *GmailCodeSender) SendResetCode(ctx context.Context, email, code string) error {
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(resetMessage(s.from, email, code))}
	if _, err := s.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send reset code to %s: %w", email, err)
	}
	return nil
}

// resetMessage renders an RFC 2822 message. An empty from lets Gmail use the account address.
func resetMessage(from, to, code string) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Your CareerHub password reset code"))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	fmt.Fprintf(&b, "Your password reset code is %s.\r\n\r\nIt expires in a few minutes. If you did not ask for it, ignore this message.\r\n", code)
	return []byte(b.String())
}
