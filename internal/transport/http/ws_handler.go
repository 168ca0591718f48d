package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trivia-service/internal/app"
	"trivia-service/internal/validator"
)

// WSHandler plays trivia sessions over a websocket. Each connection remembers the last
// session it started, so later messages may omit the session id.
type WSHandler struct {
	service  *app.TriviaService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.TriviaService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type wsAnswerPayload struct {
	SessionID  string `json:"sessionId"`
	UserAnswer string `json:"userAnswer"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

var errMissingSession = errors.New("sessionId is required")

// wsConn is the per-connection state.
type wsConn struct {
	h    *WSHandler
	ctx  context.Context
	send chan<- outboundMessage

	mu        sync.Mutex
	sessionID string
}

// ServeWS upgrades the request and serves messages until the client goes away.
// Cancel messages are handled by the reader directly so they can abort a slow operation;
// everything else runs in order on a worker goroutine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	send := make(chan outboundMessage, 16)
	jobs := make(chan inboundMessage, 16)
	writerDone := make(chan struct{})
	workerDone := make(chan struct{})

	c := &wsConn{h: h, ctx: ctx, send: send}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write failed")
				stop()
				// Drain so producers never block on a dead connection.
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(workerDone)
		for msg := range jobs {
			c.handle(msg)
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "cancel" {
			c.handle(inbound)
			continue
		}
		select {
		case jobs <- inbound:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	stop()
	close(jobs)
	<-workerDone
	close(send)
	<-writerDone
}

func (c *wsConn) handle(msg inboundMessage) {
	svc := c.h.service
	switch msg.Type {
	case "start":
		var req startRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			c.reply("error", validationBody(validator.TranslateErrors(err)))
			return
		}
		if fields := validator.Validate(&req); fields != nil {
			c.reply("error", validationBody(fields))
			return
		}
		res, err := svc.Start(c.ctx, req.toApp())
		if err != nil {
			c.fail(err)
			return
		}
		c.remember(res.SessionID)
		c.reply("started", res)

	case "answer":
		var p wsAnswerPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			c.reply("error", validationBody(validator.TranslateErrors(err)))
			return
		}
		id, err := c.resolve(p.SessionID)
		if err != nil {
			c.fail(err)
			return
		}
		res, err := svc.SubmitAnswer(c.ctx, id, p.UserAnswer)
		if err != nil {
			c.fail(err)
			return
		}
		c.reply("evaluation", res)

	case "next", "progress", "results", "cancel":
		var p sessionPayload
		if err := decodePayload(msg.Payload, &p); err != nil {
			c.reply("error", validationBody(validator.TranslateErrors(err)))
			return
		}
		id, err := c.resolve(p.SessionID)
		if err != nil {
			c.fail(err)
			return
		}
		c.sessionOp(msg.Type, id)

	default:
		c.reply("error", errorBody{Error: "unsupported message type: " + msg.Type, Code: ErrUnsupportedMessage})
	}
}

func (c *wsConn) sessionOp(kind, id string) {
	svc := c.h.service
	switch kind {
	case "next":
		res, err := svc.NextQuestion(c.ctx, id)
		if err != nil {
			c.fail(err)
			return
		}
		c.reply("question", res)
	case "progress":
		res, err := svc.Progress(c.ctx, id)
		if err != nil {
			c.fail(err)
			return
		}
		c.reply("progress", res)
	case "results":
		res, err := svc.Results(c.ctx, id)
		if err != nil {
			c.fail(err)
			return
		}
		c.forget(id)
		c.reply("results", res)
	case "cancel":
		if err := svc.Cancel(c.ctx, id); err != nil {
			c.fail(err)
			return
		}
		c.forget(id)
		c.reply("cancelled", cancelResponse{Message: "Session cancelled", SessionID: id})
	}
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func (c *wsConn) remember(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

func (c *wsConn) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == id {
		c.sessionID = ""
	}
}

// resolve falls back to the remembered session when explicit is empty.
func (c *wsConn) resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return "", errMissingSession
	}
	return c.sessionID, nil
}

func (c *wsConn) fail(err error) {
	if errors.Is(err, errMissingSession) {
		c.reply("error", validationBody(map[string]string{"sessionId": err.Error()}))
		return
	}
	_, body := classify(err)
	if !app.IsClientError(err) {
		c.h.log.Error().Err(err).Msg("ws operation failed")
	}
	c.reply("error", body)
}

func (c *wsConn) reply(kind string, payload any) {
	c.send <- outboundMessage{Type: kind, Payload: payload}
}
