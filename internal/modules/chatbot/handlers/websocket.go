package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/portfolio-manager/internal/modules/chatbot"
	"nhooyr.io/websocket"
)

const (
	writeWait     = 10 * time.Second
	maxFrameBytes = 16 << 10
)

// frame is one client message on the chat socket
type frame struct {
	Message      string `json:"message"`
	ConsentGiven bool   `json:"consentGiven"`
}

// HandleWebSocket handles GET /api/chatbot/ws?userId=
// Each text frame is answered with one JSON reply.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if !h.owns(w, r, userID) {
		return
	}

	// Server-wide read/write deadlines would otherwise cut long-lived sockets
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")
	conn.SetReadLimit(maxFrameBytes)

	log := h.log.With().Int64("user_id", userID).Logger()
	log.Debug().Msg("Chat socket opened")

	ctx := r.Context()
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Debug().Msg("Chat socket closed")
				conn.Close(websocket.StatusNormalClosure, "")
			} else if ctx.Err() == nil {
				log.Warn().Err(err).Msg("Chat socket read failed")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var in frame
		var out interface{}
		if err := json.Unmarshal(data, &in); err != nil {
			out = map[string]string{"error": "Invalid message"}
		} else {
			out = h.service.Chat(ctx, chatbot.Request{
				UserID:       userID,
				Message:      in.Message,
				ConsentGiven: in.ConsentGiven,
			})
		}

		if err := h.writeFrame(ctx, conn, out); err != nil {
			log.Warn().Err(err).Msg("Chat socket write failed")
			return
		}
	}
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}
