// Package server is the HTTP surface: the Twilio webhook that feeds WhatsApp
// turns into the agent runner, a JSON chat endpoint for local testing, and a
// health check.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/abasto-labs/tendero/pkg/whatsapp"
)

// Responder runs one conversation turn and always returns a sendable reply.
type Responder interface {
	Respond(ctx context.Context, userID, text string) string
}

// Transcript records the turn for history injection and auditing.
type Transcript interface {
	AddMessage(ctx context.Context, userID, role, content string) error
}

// Sender delivers the reply back over WhatsApp.
type Sender interface {
	SendText(to, text string) error
}

// MediaFetcher downloads webhook media payloads (voice notes).
type MediaFetcher interface {
	FetchMedia(mediaURL string) ([]byte, string, error)
}

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

const voiceNoteFallback = "No pude entender tu nota de voz. ¿Me lo puedes escribir?"

type Server struct {
	router      chi.Router
	responder   Responder
	transcript  Transcript
	sender      Sender
	media       MediaFetcher
	transcriber Transcriber
}

// New wires the routes. media and transcriber may be nil; voice notes then get
// the fallback reply.
func New(responder Responder, transcript Transcript, sender Sender, media MediaFetcher, transcriber Transcriber) *Server {
	s := &Server{
		responder:   responder,
		transcript:  transcript,
		sender:      sender,
		media:       media,
		transcriber: transcriber,
	}
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Post("/twilio/webhook", s.handleWebhook)
	r.Post("/chat", s.handleChat)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	from := r.FormValue("From")
	body := r.FormValue("Body")
	mediaURL := r.FormValue("MediaUrl0")
	if from == "" || (body == "" && mediaURL == "") {
		http.Error(w, "missing From or Body", http.StatusBadRequest)
		return
	}

	userID := whatsapp.FormatNumber(from)

	if body == "" {
		text, ok := s.transcribeVoiceNote(r.Context(), mediaURL)
		if !ok {
			s.deliver(userID, voiceNoteFallback)
			w.WriteHeader(http.StatusOK)
			return
		}
		body = text
	}

	log.Info().Str("user_id", userID).Msg("webhook message received")

	s.record(r.Context(), userID, "user", body)
	reply := s.responder.Respond(r.Context(), userID, body)
	s.record(r.Context(), userID, "assistant", reply)
	s.deliver(userID, reply)

	w.WriteHeader(http.StatusOK)
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = "default"
	}

	s.record(r.Context(), sessionID, "user", req.Prompt)
	reply := s.responder.Respond(r.Context(), sessionID, req.Prompt)
	s.record(r.Context(), sessionID, "assistant", reply)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chatResponse{Output: reply}); err != nil {
		log.Error().Err(err).Msg("encode chat response failed")
	}
}

// transcribeVoiceNote fetches and transcribes a voice note. Any failure is
// reported to the user as the fallback, not as an HTTP error: the webhook must
// ack so Twilio stops retrying.
func (s *Server) transcribeVoiceNote(ctx context.Context, mediaURL string) (string, bool) {
	if s.media == nil || s.transcriber == nil {
		return "", false
	}
	data, contentType, err := s.media.FetchMedia(mediaURL)
	if err != nil {
		log.Error().Err(err).Msg("fetch voice note failed")
		return "", false
	}
	text, err := s.transcriber.Transcribe(ctx, mediaFilename(mediaURL, contentType), contentType, data)
	if err != nil {
		log.Error().Err(err).Msg("transcribe voice note failed")
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

// mediaFilename derives a name with an extension the transcription API
// accepts. Twilio voice notes come through as audio/ogg.
func mediaFilename(mediaURL, contentType string) string {
	if ext := path.Ext(mediaURL); ext != "" {
		return "voice-note" + ext
	}
	switch contentType {
	case "audio/ogg":
		return "voice-note.ogg"
	case "audio/mpeg":
		return "voice-note.mp3"
	default:
		return "voice-note.ogg"
	}
}

func (s *Server) record(ctx context.Context, userID, role, content string) {
	if err := s.transcript.AddMessage(ctx, userID, role, content); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("role", role).
			Msg("record transcript failed")
	}
}

// deliver sends the reply off the request goroutine so the webhook can ack.
func (s *Server) deliver(to, text string) {
	if s.sender == nil {
		return
	}
	go func() {
		if err := s.sender.SendText(to, text); err != nil {
			log.Error().Err(err).Str("to", to).Msg("send reply failed")
		}
	}()
}

// ListenAndServe runs the server until ctx is cancelled, then drains with a
// short shutdown grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	log.Info().Str("addr", addr).Msg("server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
