package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"catat/internal/command"
	"catat/internal/core"
	applog "catat/internal/log"
)

const maxBodyBytes = 1 << 20

// webhookPayload is the subset of the WhatsApp Cloud API notification we read.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// firstMessage returns entry[0].changes[0].value.messages[0] when present.
func (p webhookPayload) firstMessage() (inboundMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return inboundMessage{}, false
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return inboundMessage{}, false
	}
	return msgs[0], true
}

// handleVerify answers the subscription handshake.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || !tokenMatches(s.verifyToken, token) {
		s.logger.WarnContext(r.Context(), "Webhook verification rejected",
			applog.FieldOperation, applog.OpVerify,
			"mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	s.logger.InfoContext(r.Context(), "Webhook verified", applog.FieldOperation, applog.OpVerify)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// ackOnPanic answers 200 when h panics so the platform never sees a 5xx
// and does not redeliver a message that crashed processing.
func (s *Server) ackOnPanic(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				s.logger.ErrorContext(r.Context(), "Webhook handler panicked",
					applog.FieldOperation, applog.OpReceive,
					"panic", p,
					"stack", string(debug.Stack()))
				w.WriteHeader(http.StatusOK)
			}
		}()
		h(w, r)
	}
}

// handleReceive executes the first inbound text message and replies to its
// sender. Every well-formed notification is acknowledged with 200 once the
// reply attempt completes; notifications without an object get 404.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var p webhookPayload
	err := json.NewDecoder(r.Body).Decode(&p)
	var typeErr *json.UnmarshalTypeError
	if err != nil && errors.As(err, &typeErr) && p.Object != "" {
		// The decoder keeps filling fields past a type mismatch, so the
		// notification is still ours; whatever message survived is used.
		s.logger.DebugContext(r.Context(), "Notification has unexpected field types",
			applog.FieldOperation, applog.OpReceive,
			applog.FieldError, err)
		err = nil
	}
	if err != nil || p.Object == "" {
		s.logger.DebugContext(r.Context(), "Ignoring notification without object",
			applog.FieldOperation, applog.OpReceive,
			applog.FieldError, err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	msg, ok := p.firstMessage()
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Delivery status callbacks and retries must not be cut short by the
	// platform dropping the connection.
	ctx := context.WithoutCancel(r.Context())

	cmd := command.Parse(normalizeBody(msg.Text.Body))
	fields := applog.NewFields().
		WithOperation(applog.OpExecute).
		WithCommand(msg.From, core.CommandName(cmd))

	reply, err := s.executor.Execute(ctx, cmd, msg.From)
	if err != nil {
		s.logger.ErrorContext(ctx, "Command execution failed", fields.WithError(err).ToSlice()...)
		w.WriteHeader(http.StatusOK)
		return
	}
	s.logger.InfoContext(ctx, "Command executed", fields.ToSlice()...)

	if err := s.messenger.SendText(ctx, msg.From, reply); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send reply",
			applog.FieldOperation, applog.OpReply,
			applog.FieldSender, msg.From,
			applog.FieldError, err)
	}
	w.WriteHeader(http.StatusOK)
}
