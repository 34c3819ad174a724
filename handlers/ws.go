package handlers

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"tubescribe/progress"
)

// clientMessage is what browsers send over the socket to manage their
// per-video subscriptions.
type clientMessage struct {
	Action  string `json:"action"`
	VideoID int64  `json:"video_id"`
}

type WSHandler struct {
	hub *progress.Hub
	log *logrus.Logger
}

func NewWSHandler(hub *progress.Hub, log *logrus.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: log}
}

// Upgrade gates the websocket route behind a proper upgrade request.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// wsClient serializes writes; the hub pump and the read loop both emit.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(ev progress.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

// Serve handles one websocket client. Every client receives the
// all_updates stream; join_video additionally delivers flat progress
// events for that video.
func (h *WSHandler) Serve(conn *websocket.Conn) {
	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	client := &wsClient{conn: conn}
	h.log.WithField("remote", conn.RemoteAddr().String()).Debug("websocket client connected")

	// Unsubscribe closes sub.C, which ends this pump.
	go func() {
		for ev := range sub.C {
			if err := client.send(ev); err != nil {
				return
			}
		}
	}()

	if err := client.send(progress.Event{
		Topic:   "connected",
		Payload: fiber.Map{"message": "Connected to TubeScribe WebSocket"},
	}); err != nil {
		return
	}

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Action {
		case "join_video":
			if msg.VideoID > 0 {
				sub.Join(msg.VideoID)
				client.send(progress.Event{
					Topic:   "joined",
					Payload: fiber.Map{"video_id": msg.VideoID},
				})
			}
		case "leave_video":
			if msg.VideoID > 0 {
				sub.Leave(msg.VideoID)
				client.send(progress.Event{
					Topic:   "left",
					Payload: fiber.Map{"video_id": msg.VideoID},
				})
			}
		case "subscribe_all":
			// all_updates is always on; this is just an ack
			client.send(progress.Event{
				Topic:   "subscribed_all",
				Payload: fiber.Map{"message": "Subscribed to all updates"},
			})
		default:
			h.log.WithField("action", msg.Action).Debug("ignoring unknown websocket action")
		}
	}

	conn.Close()
	h.log.WithField("remote", conn.RemoteAddr().String()).Debug("websocket client disconnected")
}
