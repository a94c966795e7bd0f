package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponder struct {
	mu    sync.Mutex
	calls []string
}

func (e *echoResponder) Respond(_ context.Context, userID, text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, userID+"|"+text)
	return "eco: " + text
}

type memoryTranscript struct {
	mu      sync.Mutex
	entries []string
}

func (m *memoryTranscript) AddMessage(_ context.Context, userID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, userID+"|"+role+"|"+content)
	return nil
}

type channelSender struct {
	sent chan string
}

func (c *channelSender) SendText(to, text string) error {
	c.sent <- to + "|" + text
	return nil
}

func (c *channelSender) await(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-c.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message sent")
		return ""
	}
}

type staticMedia struct {
	data        []byte
	contentType string
}

func (s staticMedia) FetchMedia(string) ([]byte, string, error) {
	return s.data, s.contentType, nil
}

type staticTranscriber struct {
	text string
}

func (s staticTranscriber) Transcribe(context.Context, string, string, []byte) (string, error) {
	return s.text, nil
}

func postForm(t *testing.T, srv *Server, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook",
		strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := New(&echoResponder{}, &memoryTranscript{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	srv := New(&echoResponder{}, &memoryTranscript{}, nil, nil, nil)

	rec := postForm(t, srv, url.Values{"Body": {"hola"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postForm(t, srv, url.Values{"From": {"whatsapp:+5215555555555"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookTextTurn(t *testing.T) {
	responder := &echoResponder{}
	transcript := &memoryTranscript{}
	sender := &channelSender{sent: make(chan string, 1)}
	srv := New(responder, transcript, sender, nil, nil)

	rec := postForm(t, srv, url.Values{
		"From": {"whatsapp:+52 1 555 555 5555"},
		"Body": {"cuánto arroz pido"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "whatsapp:+5215555555555|eco: cuánto arroz pido", sender.await(t))
	assert.Equal(t, []string{"whatsapp:+5215555555555|cuánto arroz pido"}, responder.calls)
	assert.Equal(t, []string{
		"whatsapp:+5215555555555|user|cuánto arroz pido",
		"whatsapp:+5215555555555|assistant|eco: cuánto arroz pido",
	}, transcript.entries)
}

func TestWebhookVoiceNoteTranscribed(t *testing.T) {
	responder := &echoResponder{}
	sender := &channelSender{sent: make(chan string, 1)}
	srv := New(responder, &memoryTranscript{}, sender,
		staticMedia{data: []byte("opus"), contentType: "audio/ogg"},
		staticTranscriber{text: "dos coca colas"})

	rec := postForm(t, srv, url.Values{
		"From":      {"whatsapp:+5215555555555"},
		"MediaUrl0": {"https://api.twilio.com/media/abc"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "whatsapp:+5215555555555|eco: dos coca colas", sender.await(t))
}

func TestWebhookVoiceNoteWithoutTranscriber(t *testing.T) {
	sender := &channelSender{sent: make(chan string, 1)}
	srv := New(&echoResponder{}, &memoryTranscript{}, sender, nil, nil)

	rec := postForm(t, srv, url.Values{
		"From":      {"whatsapp:+5215555555555"},
		"MediaUrl0": {"https://api.twilio.com/media/abc"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, sender.await(t), voiceNoteFallback)
}

func TestChatEndpoint(t *testing.T) {
	responder := &echoResponder{}
	srv := New(responder, &memoryTranscript{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"prompt":"hola"}`))
	req.Header.Set("X-Session-ID", "tienda-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"output":"eco: hola"}`, rec.Body.String())
	assert.Equal(t, []string{"tienda-1|hola"}, responder.calls)
}

func TestChatRejectsEmptyPrompt(t *testing.T) {
	srv := New(&echoResponder{}, &memoryTranscript{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"prompt":"  "}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
