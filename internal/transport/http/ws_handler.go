package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"party-game-engine/internal/app"
	"party-game-engine/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
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

type answerPayload struct {
	OptionID string `json:"optionId"`
}

type answerResult struct {
	RoundID  string `json:"roundId"`
	OptionID string `json:"optionId"`
	Elapsed  int64  `json:"elapsedMs"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// engine: the client submits answers, and receives round and lottery events
// (with idempotency keys; delivery is at-least-once).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined := h.service.Join(r.Context(), userID, displayName)
	events, cancel := h.service.Subscribe(r.Context())
	defer cancel()
	defer h.service.Leave(r.Context(), userID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(event.Kind), Key: event.Key, Payload: event.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}
	if round, open := h.service.CurrentRound(); open {
		send <- outboundMessage[any]{Type: "round.open", Payload: map[string]any{
			"roundId":  round.ID,
			"prompt":   round.Prompt,
			"deadline": round.Deadline(),
		}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			submission, err := h.service.SubmitAnswer(r.Context(), userID, payload.OptionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
					OptionID: payload.OptionID,
					Accepted: false,
					Reason:   rejectionReason(err),
				}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				RoundID:  submission.RoundID,
				OptionID: submission.OptionID,
				Elapsed:  submission.Elapsed.Milliseconds(),
				Accepted: true,
			}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// rejectionReason maps typed errors to wire reasons so a client can tell
// "too late" from "already answered".
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return "deadline"
	case errors.Is(err, domain.ErrRoundNotOpen):
		return "not-open"
	case errors.Is(err, domain.ErrParticipantNotFound):
		return "not-joined"
	default:
		return err.Error()
	}
}
