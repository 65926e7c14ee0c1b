package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 3 * time.Second,
}

var (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

// streamFunc writes to conn until it returns. closed is closed once the
// peer goes away.
type streamFunc func(c echo.Context, conn *websocket.Conn, closed <-chan struct{}) error

// WithHeartbeat upgrades the request and keeps the connection alive with
// pings while handler streams to it.
func WithHeartbeat(handler streamFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade has already replied to the client.
			return nil
		}

		closed := make(chan struct{})
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		go readRoutine(conn, closed)
		go heartbeatRoutine(conn, closed)
		processRoutine(c, conn, closed, handler)
		return nil
	}
}

// readRoutine drains client frames so control frames get processed.
func readRoutine(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func heartbeatRoutine(conn *websocket.Conn, closed <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func processRoutine(c echo.Context, conn *websocket.Conn, closed <-chan struct{}, handler streamFunc) {
	defer conn.Close()
	_ = handler(c, conn, closed)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
