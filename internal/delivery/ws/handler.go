package ws

import (
	"net/http"
	"time"

	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// QueueHandler upgrades /ws/queue requests and joins the client to the
// room of the requested doctor and date.
type QueueHandler struct {
	hub      *Hub
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewQueueHandler(hub *Hub, allowedOrigins []string, log *logrus.Logger) *QueueHandler {
	return &QueueHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser requests from allowedOrigins. "*" allows any.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	_, allowAny := allowed["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAny {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// ServeHTTP handles GET /ws/queue?doctorId=&date=
func (h *QueueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctorId"))
	if err != nil {
		response.BadRequest(w, "doctorId must be a valid uuid")
		return
	}
	day, err := entity.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		response.BadRequest(w, "date must be in YYYY-MM-DD format")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.log.Debugf("Websocket upgrade failed: %+v", err)
		return
	}

	client := NewClient(uuid.New().String(), service.QueueChannel(doctorID, day.Format(entity.DateLayout)))
	h.hub.Register(client)
	h.log.Debugf("Websocket client %s joined %s", client.ID, client.Room)

	go h.writePump(client, conn)
	go h.readPump(client, conn)
}

// readPump only services control frames; clients do not send messages.
func (h *QueueHandler) readPump(client *Client, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *QueueHandler) writePump(client *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
