package realtime

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

const defaultSendBuffer = 64

// Client is a connected subscriber handle. Frames queued for it are
// drained by the transport's write pump in the order they were published.
type Client struct {
	ID   string
	send chan []byte
}

// Receive returns the channel of outbound frames. The channel is closed
// when the client is disconnected.
func (c *Client) Receive() <-chan []byte { return c.send }

// Hub is the group broadcaster. It maps board groups to their current
// members and fans published events out to them. State is process-wide and
// lives for the lifetime of the server; the hub is injected into the
// transport and the HTTP handlers rather than accessed as a global.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	groups  map[string]map[*Client]struct{}
	buffer  int
	logger  *log.Logger
}

// NewHub creates an empty hub. bufferSize bounds each client's outbound
// queue; zero selects the default.
func NewHub(logger *log.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultSendBuffer
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		groups:  make(map[string]map[*Client]struct{}),
		buffer:  bufferSize,
		logger:  logger,
	}
}

// Connect registers a new client and returns its handle.
func (h *Hub) Connect() *Client {
	c := &Client{
		ID:   uuid.NewString(),
		send: make(chan []byte, h.buffer),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debugf("client connected: %s", c.ID)
	return c
}

// Disconnect removes the client from every group it joined and closes its
// frame channel. No explicit leave calls are required.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	h.logger.Debugf("client disconnected: %s", c.ID)
}

// Join adds the client to the board's group. Events published before the
// join are never replayed.
func (h *Hub) Join(c *Client, boardID string) {
	group := groupName(boardID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
}

// Leave removes the client from the board's group.
func (h *Hub) Leave(c *Client, boardID string) {
	group := groupName(boardID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Publish delivers the event to every member of its board group, or to
// every connected client when the event carries no board id. Members
// observe publishes in the order they were made; a client whose queue is
// full is dropped rather than allowed to stall or reorder the fan-out.
// Publishing to a group with no members is a no-op.
func (h *Hub) Publish(ev domain.Event) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		h.logger.Errorf("marshal event %s: %v", ev.Name, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var members map[*Client]struct{}
	if ev.BoardID == "" {
		members = h.clients
	} else {
		members = h.groups[groupName(ev.BoardID)]
	}

	var stalled []*Client
	for c := range members {
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		h.logger.Warnf("dropping slow client %s", c.ID)
		h.dropLocked(c)
	}
}

// dropLocked removes the client from all hub state and closes its channel.
// Caller must hold h.mu.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for group, members := range h.groups {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	close(c.send)
}

func groupName(boardID string) string {
	return "board-" + boardID
}
