package realtime

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"taskboard/domain"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ClientAction is an inbound frame on the live connection. The only
// supported actions are joining and leaving a board's group.
type ClientAction struct {
	Action  string `json:"action"`
	BoardID string `json:"boardId"`
}

// Register wires the live event stream endpoint on the given Echo
// instance.
func Register(e *echo.Echo, hub *Hub) {
	e.GET("/ws", serveWS(hub))
}

func serveWS(hub *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		client := hub.Connect()
		go writePump(conn, client)
		readPump(conn, hub, client)
		return nil
	}
}

// readPump consumes join/leave actions until the connection drops, then
// detaches the client from every group.
func readPump(conn *websocket.Conn, hub *Hub, client *Client) {
	defer func() {
		hub.Disconnect(client)
		conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var action ClientAction
		if err := sonic.Unmarshal(data, &action); err != nil {
			continue
		}
		switch action.Action {
		case "join":
			hub.Join(client, action.BoardID)
			hub.Publish(domain.Event{
				Name:    domain.UserJoined,
				BoardID: action.BoardID,
				Data:    domain.UserData{ConnectionID: client.ID},
			})
		case "leave":
			hub.Leave(client, action.BoardID)
			hub.Publish(domain.Event{
				Name:    domain.UserLeft,
				BoardID: action.BoardID,
				Data:    domain.UserData{ConnectionID: client.ID},
			})
		}
	}
}

// writePump drains the client's frame queue onto the wire. It exits when
// the hub closes the queue or a write fails.
func writePump(conn *websocket.Conn, client *Client) {
	defer conn.Close()
	for data := range client.Receive() {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
