package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler bridges WebSocket connections and the room service: inbound
// typed messages become state-machine calls, outbound room events become
// pushes. Each inbound message carries a sequence number that its ack echoes.
type WSHandler struct {
	service  *app.RoomService
	hostKey  string
	upgrader websocket.Upgrader
}

// NewWSHandler wires the room service behind a WebSocket endpoint. hostKey
// is the shared secret a connection must present (?hostKey=...) to use the
// host commands; with an empty key host commands are disabled entirely.
func NewWSHandler(service *app.RoomService, hostKey string) *WSHandler {
	return &WSHandler{
		service: service,
		hostKey: hostKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	Payload any    `json:"payload"`
}

type codePayload struct {
	Code string `json:"code"`
}

type joinPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type answerPayload struct {
	Code        string `json:"code"`
	ChoiceIndex int    `json:"choiceIndex"`
}

type ackResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type createRoomResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

type nextResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Ended bool   `json:"ended"`
}

type answerResult struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	TotalScore int    `json:"totalScore,omitempty"`
	Rank       int    `json:"rank,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and speaks the game protocol.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	isHost := h.hostKey != "" && r.URL.Query().Get("hostKey") == h.hostKey
	connID := uuid.NewString()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Per-room subscriptions held by this connection.
	cancels := make(map[string]func())
	var pumps sync.WaitGroup

	subscribe := func(code string) {
		if _, ok := cancels[code]; ok {
			return
		}
		events, cancel, err := h.service.Subscribe(code)
		if err != nil {
			return
		}
		cancels[code] = cancel
		pumps.Add(1)
		go func() {
			defer pumps.Done()
			for ev := range events {
				select {
				case send <- outboundMessage{Type: ev.Type, Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r.Context(), connID, isHost, inbound, send, subscribe)
	}

	close(closeSignals)
	for _, cancel := range cancels {
		cancel()
	}
	pumps.Wait()
	h.service.Disconnect(connID)
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, isHost bool, inbound inboundMessage, send chan<- outboundMessage, subscribe func(string)) {
	ack := func(payload any) {
		send <- outboundMessage{Type: "ack", Seq: inbound.Seq, Payload: payload}
	}

	if isHostCommand(inbound.Type) && !isHost {
		ack(ackResult{Error: "host key required"})
		return
	}

	switch inbound.Type {
	case "host:createRoom":
		room, err := h.service.CreateRoom(ctx, connID)
		if err != nil {
			ack(createRoomResult{Error: err.Error()})
			return
		}
		subscribe(room.Code())
		ack(createRoomResult{OK: true, Code: room.Code()})

	case "host:start":
		h.hostCommand(connID, inbound, ack, h.service.Start)

	case "host:reveal":
		h.hostCommand(connID, inbound, ack, h.service.CloseQuestion)

	case "host:revealAnswer":
		h.hostCommand(connID, inbound, ack, h.service.RevealAnswer)

	case "host:showTop5":
		h.hostCommand(connID, inbound, ack, h.service.ShowTop5)

	case "host:next":
		var payload codePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			ack(nextResult{Error: "invalid payload"})
			return
		}
		ended, err := h.service.Next(payload.Code, connID)
		if err != nil {
			ack(nextResult{Error: err.Error()})
			return
		}
		ack(nextResult{OK: true, Ended: ended})

	case "player:join":
		var payload joinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			ack(ackResult{Error: "invalid payload"})
			return
		}
		catchup, err := h.service.Join(payload.Code, connID, payload.Name)
		if err != nil {
			ack(ackResult{Error: err.Error()})
			return
		}
		subscribe(payload.Code)
		ack(ackResult{OK: true})
		if catchup != nil {
			// Late joiners get the running question directly instead of
			// waiting for the next broadcast.
			send <- outboundMessage{Type: domain.EventQuestionStart, Payload: *catchup}
		}

	case "player:answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			ack(answerResult{Error: "invalid payload"})
			return
		}
		total, rank, err := h.service.SubmitAnswer(payload.Code, connID, payload.ChoiceIndex)
		if err != nil {
			ack(answerResult{Error: err.Error()})
			return
		}
		// Correctness and points stay hidden until the reveal.
		ack(answerResult{OK: true, TotalScore: total, Rank: rank})

	default:
		ack(ackResult{Error: "unsupported message type"})
	}
}

func (h *WSHandler) hostCommand(connID string, inbound inboundMessage, ack func(any), op func(code, hostID string) error) {
	var payload codePayload
	if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
		ack(ackResult{Error: "invalid payload"})
		return
	}
	if err := op(payload.Code, connID); err != nil {
		ack(ackResult{Error: err.Error()})
		return
	}
	ack(ackResult{OK: true})
}

func isHostCommand(msgType string) bool {
	switch msgType {
	case "host:createRoom", "host:start", "host:reveal", "host:revealAnswer", "host:showTop5", "host:next":
		return true
	}
	return false
}
