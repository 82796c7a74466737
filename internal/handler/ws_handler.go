package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/internal/hub"
	"github.com/folioserve/folio-live/internal/realtime"
	"github.com/folioserve/folio-live/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades connections and dispatches inbound frames. Join
// and leave are the only client verbs; everything else flows server to
// client.
type WSHandler struct {
	hub      *hub.Hub
	notifier *realtime.Notifier
	wsCfg    hub.Config
}

func NewWSHandler(h *hub.Hub, notifier *realtime.Notifier, wsCfg hub.Config) *WSHandler {
	return &WSHandler{hub: h, notifier: notifier, wsCfg: wsCfg}
}

// HandleWebSocket upgrades the request and runs the connection until
// it drops. Visitor counts go out to the visitors room on every open
// and close.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)
	h.notifier.VisitorCount(context.Background(), h.hub.ClientCount())

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		// ReadPump returns after the client is unregistered.
		h.notifier.VisitorCount(context.Background(), h.hub.ClientCount())
	}()
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var msg domain.ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	switch msg.Type {
	case domain.MsgTypeJoin:
		for _, room := range msg.Rooms {
			h.hub.Join(client, room)
		}

	case domain.MsgTypeLeave:
		for _, room := range msg.Rooms {
			h.hub.Leave(client, room)
		}

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type"))
	}
}
