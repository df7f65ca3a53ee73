package bell

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Bell devices are not browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades the request and bridges the connection to a hub listener
// for locationID until either side goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, locationID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	listener := h.Listen(locationID)

	go h.readAcks(conn, listener)
	h.writeRings(conn, listener)
	return nil
}

func (h *Hub) readAcks(conn *websocket.Conn, listener *Listener) {
	defer listener.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("bell listener read failed", "listener_id", listener.ID, "error", err)
			}
			return
		}
		if msg.Type == TypeAck {
			listener.Ack(msg.ID)
		}
	}
}

func (h *Hub) writeRings(conn *websocket.Conn, listener *Listener) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		listener.Close()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-listener.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
