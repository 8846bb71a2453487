package notify_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/garnizeh/careerhub/internal/notify"
)

type fakeGmail struct {
	mu     sync.Mutex
	path   string
	raw    string
	status int
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.path = r.URL.Path
	var msg struct {
		Raw string `json:"raw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	f.raw = msg.Raw
	if f.status != 0 {
		w.WriteHeader(f.status)
		w.Write([]byte(`{"error":{"code":403,"message":"insufficient scope"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"id":"msg-1","threadId":"t-1"}`))
}

func newGmailSender(t *testing.T, f *fakeGmail) *notify.GmailCodeSender {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	svc, err := gmail.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("gmail.NewService: %v", err)
	}
	return notify.NewGmailCodeSenderWithService(svc, "CareerHub <no-reply@careerhub.test>")
}

func TestGmailCodeSender_Send(t *testing.T) {
	f := &fakeGmail{}
	s := newGmailSender(t, f)

	if err := s.SendResetCode(context.Background(), "jane@example.com", "482913"); err != nil {
		t.Fatalf("SendResetCode: %v", err)
	}
	if f.path != "/gmail/v1/users/me/messages/send" {
		t.Fatalf("unexpected path %q", f.path)
	}
	raw, err := base64.URLEncoding.DecodeString(f.raw)
	if err != nil {
		t.Fatalf("raw is not base64url: %v", err)
	}
	msg := string(raw)
	for _, want := range []string{"To: jane@example.com\r\n", "From: CareerHub <no-reply@careerhub.test>\r\n", "482913"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestGmailCodeSender_APIError(t *testing.T) {
	f := &fakeGmail{status: http.StatusForbidden}
	s := newGmailSender(t, f)

	err := s.SendResetCode(context.Background(), "jane@example.com", "1")
	if err == nil || !strings.Contains(err.Error(), "jane@example.com") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewGmailCodeSender_MissingFiles(t *testing.T) {
	if _, err := notify.NewGmailCodeSender(context.Background(), t.TempDir()+"/none.json", "token.json", ""); err == nil {
		t.Fatalf("expected error for missing credentials file")
	}
}
