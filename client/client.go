package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// ConnState is the live-connection lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

const defaultRetryDelay = 5 * time.Second

// Client maintains a live event stream to the server and reconciles every
// received event into its local state. On connection loss it retries on a
// fixed delay forever. Mutations issued while the stream is down go over
// the separate request path and are not buffered here; missed broadcasts
// are recovered by a later full reload.
type Client struct {
	url        string
	retryDelay time.Duration
	logger     *log.Logger

	mu        sync.Mutex
	state     State
	connState ConnState
	conn      *websocket.Conn
	joined    map[string]struct{}

	// gorilla connections allow one writer at a time; writeMu serializes
	// Join/Leave frames with the post-reconnect rejoin loop
	writeMu sync.Mutex
}

// New creates a client for the given websocket URL. retryDelay zero
// selects the default reconnect delay.
func New(url string, retryDelay time.Duration, logger *log.Logger) *Client {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Client{
		url:        url,
		retryDelay: retryDelay,
		logger:     logger,
		connState:  StateDisconnected,
		joined:     make(map[string]struct{}),
	}
}

// Run connects and consumes events until ctx is cancelled, reconnecting
// on a fixed delay after every connection loss.
func (c *Client) Run(ctx context.Context) {
	for {
		c.setConnState(StateConnecting)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				c.setConnState(StateDisconnected)
				return
			}
			c.logger.Debugf("connect %s: %v", c.url, err)
			select {
			case <-ctx.Done():
				c.setConnState(StateDisconnected)
				return
			case <-time.After(c.retryDelay):
				continue
			}
		}

		c.mu.Lock()
		c.conn = conn
		c.connState = StateConnected
		groups := make([]string, 0, len(c.joined))
		for id := range c.joined {
			groups = append(groups, id)
		}
		c.mu.Unlock()

		// membership does not survive a reconnect server-side; rejoin
		for _, id := range groups {
			c.sendAction(conn, "join", id)
		}

		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-stop:
			}
		}()
		c.readLoop(conn)
		close(stop)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			c.setConnState(StateDisconnected)
			return
		}
		c.setConnState(StateConnecting)
		select {
		case <-ctx.Done():
			c.setConnState(StateDisconnected)
			return
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ev, ok := DecodeEvent(data)
		if !ok {
			continue
		}
		c.mu.Lock()
		c.state = Apply(c.state, ev)
		c.mu.Unlock()
	}
}

// Join subscribes to a board's event group. The group is rejoined
// automatically after every reconnect.
func (c *Client) Join(boardID string) {
	c.mu.Lock()
	c.joined[boardID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.sendAction(conn, "join", boardID)
	}
}

// Leave unsubscribes from a board's event group.
func (c *Client) Leave(boardID string) {
	c.mu.Lock()
	delete(c.joined, boardID)
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.sendAction(conn, "leave", boardID)
	}
}

func (c *Client) sendAction(conn *websocket.Conn, action, boardID string) {
	payload, err := sonic.Marshal(map[string]string{"action": action, "boardId": boardID})
	if err != nil {
		return
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Debugf("send %s: %v", action, err)
	}
}

// ConnState returns the current lifecycle state.
func (c *Client) ConnState() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

func (c *Client) setConnState(s ConnState) {
	c.mu.Lock()
	c.connState = s
	c.mu.Unlock()
}

// Snapshot returns a copy of the reconciled local state.
func (c *Client) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	boards := make([]domain.Board, len(s.Boards))
	copy(boards, s.Boards)
	s.Boards = boards
	if s.Current != nil {
		current := cloneBoard(*s.Current)
		s.Current = &current
	}
	return s
}

// SetCurrent replaces the board the client is looking at, normally after
// a full load over the request path.
func (c *Client) SetCurrent(board domain.Board) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := cloneBoard(board)
	domain.SortLists(current.Lists)
	for i := range current.Lists {
		domain.SortCards(current.Lists[i].Cards)
	}
	c.state.Current = &current
}

// MoveCardOptimistic applies a local drag-and-drop immediately; the
// server echo later re-applies it idempotently.
func (c *Client) MoveCardOptimistic(cardID, targetListID string, newPosition int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = c.state.MoveCardLocal(cardID, targetListID, newPosition)
}

// DecodeEvent parses a wire frame into a typed event. Unknown event names
// and malformed payloads report ok=false and are skipped by the caller.
func DecodeEvent(data []byte) (domain.Event, bool) {
	var frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return domain.Event{}, false
	}
	ev := domain.Event{Name: frame.Type}
	switch frame.Type {
	case domain.BoardCreated, domain.BoardUpdated:
		var b domain.Board
		if err := sonic.Unmarshal(frame.Data, &b); err != nil {
			return domain.Event{}, false
		}
		ev.Data = b
	case domain.ListCreated, domain.ListUpdated:
		var l domain.List
		if err := sonic.Unmarshal(frame.Data, &l); err != nil {
			return domain.Event{}, false
		}
		ev.Data = l
	case domain.CardCreated, domain.CardUpdated:
		var card domain.Card
		if err := sonic.Unmarshal(frame.Data, &card); err != nil {
			return domain.Event{}, false
		}
		ev.Data = card
	case domain.BoardDeleted, domain.ListDeleted, domain.CardDeleted:
		var d domain.DeletedData
		if err := sonic.Unmarshal(frame.Data, &d); err != nil {
			return domain.Event{}, false
		}
		ev.Data = d
	case domain.ListMoved:
		var d domain.ListMovedData
		if err := sonic.Unmarshal(frame.Data, &d); err != nil {
			return domain.Event{}, false
		}
		ev.Data = d
	case domain.CardMoved:
		var d domain.CardMovedData
		if err := sonic.Unmarshal(frame.Data, &d); err != nil {
			return domain.Event{}, false
		}
		ev.Data = d
	case domain.UserJoined, domain.UserLeft:
		var d domain.UserData
		if err := sonic.Unmarshal(frame.Data, &d); err != nil {
			return domain.Event{}, false
		}
		ev.Data = d
	default:
		return domain.Event{}, false
	}
	return ev, true
}
