package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"unicode/utf8"
)

type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, subject, body string) error {
	s.calls++
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFansOut(t *testing.T) {
	a := &stubSender{name: "a"}
	b := &stubSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, discard())

	if err := n.Send(context.Background(), "subject", "body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}

func TestNotifierIsolatesFailures(t *testing.T) {
	broken := &stubSender{name: "broken", err: errors.New("boom")}
	ok := &stubSender{name: "ok"}
	n := NewNotifier([]Sender{broken, ok}, discard())

	err := n.Send(context.Background(), "subject", "body")
	if err == nil {
		t.Fatalf("combined error expected")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("error %q does not name the failed sender", err)
	}
	if ok.calls != 1 {
		t.Fatalf("healthy sender skipped after failure")
	}
}

func TestNotifierNoSenders(t *testing.T) {
	n := NewNotifier(nil, discard())
	if err := n.Send(context.Background(), "subject", "body"); err != nil {
		t.Fatalf("no-op send failed: %v", err)
	}
}

func TestSMTPMessageFormat(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "bot@example.com", "pw", "bot@example.com",
		[]string{"one@example.com", "two@example.com"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := s.Send(context.Background(), "daily report", "line one\nline two"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("addr = %q", gotAddr)
	}
	if gotFrom != "bot@example.com" || len(gotTo) != 2 {
		t.Fatalf("envelope = %q -> %v", gotFrom, gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{
		"Subject: daily report\r\n",
		"To: one@example.com, two@example.com\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"line one\r\nline two",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSMTPCancelledContext(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "u", "p", "f@example.com", []string{"t@example.com"})
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatalf("sendMail called on cancelled context")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "subject", "body"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestTelegramSendAndTruncation(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		got = map[string]string{}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegramSender("token", "42")
	tg.baseURL = srv.URL

	long := strings.Repeat("x", telegramMaxLen+500)
	if err := tg.Send(context.Background(), "subject", long); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["chat_id"] != "42" {
		t.Fatalf("chat_id = %q", got["chat_id"])
	}
	if !strings.Contains(got["text"], "truncated") {
		t.Fatalf("long report not truncated")
	}
	if len(got["text"]) > telegramMaxLen+200 {
		t.Fatalf("truncated text still %d bytes", len(got["text"]))
	}
}

func TestTelegramTruncatesOnRuneBoundary(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = map[string]string{}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegramSender("token", "42")
	tg.baseURL = srv.URL

	// Three-byte runes guarantee the byte limit lands mid-character.
	long := strings.Repeat("台", telegramMaxLen/3+200)
	if err := tg.Send(context.Background(), "subject", long); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !utf8.ValidString(got["text"]) {
		t.Fatalf("truncated message is not valid UTF-8")
	}
	if !strings.Contains(got["text"], "truncated") {
		t.Fatalf("long report not truncated")
	}
}

func TestTelegramErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegramSender("token", "42")
	tg.baseURL = srv.URL
	err := tg.Send(context.Background(), "subject", "body")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("err = %v, want status 400 error", err)
	}
}
