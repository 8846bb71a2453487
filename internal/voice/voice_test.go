package voice_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/garnizeh/careerhub/internal/voice"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func raws(t *testing.T, s string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return out
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`8`, 8},
		{`7.9`, 7},
		{`"80/100"`, 80},
		{`"score: 6 of 10"`, 6},
		{`"n/a"`, 0},
		{`null`, 0},
		{`{"v":1}`, 0},
	}
	for _, tt := range tests {
		if got := voice.ParseScore(json.RawMessage(tt.in)); got != tt.want {
			t.Fatalf("ParseScore(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeReport(t *testing.T) {
	report := raws(t, `[
		{"section":"Introduction","score":8,"strength":"clear","weaknesses":"shy","general_overview":"good start"},
		{"section":"Technical","score":"7/10","strength":"solid","general overview":"knows Go"},
		{"error":"evaluation failed"},
		"not an object",
		{"score":9}
	]`)
	sections, err := voice.NormalizeReport(report)
	if err != nil {
		t.Fatalf("NormalizeReport: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0].GeneralOverview != "good start" || sections[1].GeneralOverview != "knows Go" {
		t.Fatalf("overview variants not merged: %#v", sections)
	}
	if sections[1].Score != 7 || sections[1].Weaknesses != "" || sections[2].Section != "Unknown" {
		t.Fatalf("unexpected sections %#v", sections)
	}
	if got := voice.OverallScore(sections); got != 8 {
		t.Fatalf("OverallScore = %d, want 8", got)
	}

	if _, err := voice.NormalizeReport(raws(t, `[{"error":"x"}]`)); !errors.Is(err, voice.ErrEmptyReport) {
		t.Fatalf("expected ErrEmptyReport, got %v", err)
	}
	if got := voice.OverallScore(nil); got != 0 {
		t.Fatalf("OverallScore(nil) = %d", got)
	}
}

func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/voice-interview/setup", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			CVData         map[string]any       `json:"cvData"`
			JobDescription voice.JobDescription `json:"jobDescription"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.JobDescription.Title == "" || in.JobDescription.Requirements == nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"success":true,"sessionId":"s-1","status":"ready","message":"Welcome!"}`))
	})
	mux.HandleFunc("/api/voice-interview/report/s-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"complete","report":[{"section":"Intro","score":9}]}`))
	})
	mux.HandleFunc("/api/voice-interview/report/s-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"pending","message":"Interview not yet complete"}`))
	})
	mux.HandleFunc("/api/voice-interview/history/s-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"history":[{"role":"AI said","content":"Hi"},{"section":"Intro","role":"You said","content":"Hello"}]}`))
	})
	mux.HandleFunc("/api/voice-interview/status/s-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active":true,"currentSection":"Intro","totalSections":4,"questionsAsked":1}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := fakeService(t)
	c := voice.New(srv.URL, time.Second, nil)
	ctx := context.Background()

	setup, err := c.Setup(ctx, json.RawMessage(`{"skills":["Go"]}`), voice.JobDescription{Title: "Backend"})
	if err != nil || setup.SessionID != "s-1" || setup.Message != "Welcome!" {
		t.Fatalf("Setup = %#v, %v", setup, err)
	}

	rep, err := c.Report(ctx, "s-1")
	if err != nil || rep.Pending() || len(rep.Report) != 1 {
		t.Fatalf("Report = %#v, %v", rep, err)
	}
	rep, err = c.Report(ctx, "s-2")
	if err != nil || !rep.Pending() {
		t.Fatalf("expected pending report, got %#v, %v", rep, err)
	}
	if _, err := c.Report(ctx, "missing"); !errors.Is(err, voice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	hist, err := c.History(ctx, "s-1")
	if err != nil || len(hist) != 2 || hist[0].Section != "Unknown" || hist[1].Role != "You said" {
		t.Fatalf("History = %#v, %v", hist, err)
	}

	st, err := c.Status(ctx, "s-1")
	if err != nil || !st.Active || st.TotalSections != 4 {
		t.Fatalf("Status = %#v, %v", st, err)
	}
	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	if _, err := voice.New("", 0, nil).Report(ctx, "s-1"); !errors.Is(err, voice.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestStreamURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:7862":      "ws://localhost:7862/api/voice-interview/stream/a%2Fb",
		"https://voice.example.com/": "wss://voice.example.com/api/voice-interview/stream/a%2Fb",
	}
	for base, want := range tests {
		if got := voice.New(base, 0, nil).StreamURL("a/b"); got != want {
			t.Fatalf("StreamURL(%s) = %s, want %s", base, got, want)
		}
	}
	if got := voice.New("", 0, nil).StreamURL("a"); got != "" {
		t.Fatalf("unconfigured StreamURL = %q, want empty", got)
	}
}

// fakeStream mimics the interview service WebSocket protocol.
func fakeStream(t *testing.T) *httptest.Server {
	t.Helper()
	var wg sync.WaitGroup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := voice.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		wg.Add(1)
		defer wg.Done()
		defer conn.Close()
		conn.WriteJSON(map[string]any{"type": voice.MsgStatus, "section": "Intro", "complete": false})
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				conn.WriteMessage(websocket.BinaryMessage, data)
				continue
			}
			var m struct {
				Type string `json:"type"`
			}
			json.Unmarshal(data, &m)
			switch m.Type {
			case voice.MsgPing:
				conn.WriteJSON(map[string]string{"type": voice.MsgPong})
			case voice.MsgEnd:
				conn.WriteJSON(map[string]string{"type": voice.MsgComplete, "message": "Interview ended"})
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
	t.Cleanup(func() {
		srv.Close()
		wg.Wait()
	})
	return srv
}

func TestRelay(t *testing.T) {
	upstream := fakeStream(t)
	upURL := "ws" + strings.TrimPrefix(upstream.URL, "http")

	var mu sync.Mutex
	var seen []string
	relayDone := make(chan error, 1)
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := voice.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			relayDone <- err
			return
		}
		relayDone <- voice.Relay(r.Context(), conn, upURL, nil, func(typ string) {
			mu.Lock()
			seen = append(seen, typ)
			mu.Unlock()
		})
	}))
	defer front.Close()

	browser, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(front.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	defer browser.Close()
	browser.SetReadDeadline(time.Now().Add(3 * time.Second))

	readType := func() string {
		t.Helper()
		var m struct {
			Type string `json:"type"`
		}
		if err := browser.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m.Type
	}

	if got := readType(); got != voice.MsgStatus {
		t.Fatalf("expected status first, got %s", got)
	}
	browser.WriteJSON(map[string]string{"type": voice.MsgPing})
	if got := readType(); got != voice.MsgPong {
		t.Fatalf("expected pong, got %s", got)
	}
	browser.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
	mt, data, err := browser.ReadMessage()
	if err != nil || mt != websocket.BinaryMessage || len(data) != 3 {
		t.Fatalf("binary frame not relayed: %d %v %v", mt, data, err)
	}
	browser.WriteJSON(map[string]string{"type": voice.MsgEnd})
	if got := readType(); got != voice.MsgComplete {
		t.Fatalf("expected complete, got %s", got)
	}
	if _, _, err := browser.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected forwarded normal close, got %v", err)
	}

	select {
	case err := <-relayDone:
		if err != nil {
			t.Fatalf("Relay: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("relay did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{voice.MsgStatus, voice.MsgPong, voice.MsgComplete}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("observed %v, want %v", seen, want)
	}
}

func TestRelay_UpstreamDown(t *testing.T) {
	relayDone := make(chan error, 1)
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := voice.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			relayDone <- err
			return
		}
		relayDone <- voice.Relay(r.Context(), conn, "ws://127.0.0.1:1/api/voice-interview/stream/x", nil, nil)
	}))
	defer front.Close()

	browser, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(front.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	defer browser.Close()
	browser.SetReadDeadline(time.Now().Add(3 * time.Second))

	if _, _, err := browser.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("expected try-again-later close, got %v", err)
	}
	if err := <-relayDone; err == nil {
		t.Fatalf("expected dial error")
	}
}
