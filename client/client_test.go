package client

import (
	"context"
	"net"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/realtime"
)

func newTestLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger
}

func newHubServer() (*realtime.Hub, *httptest.Server) {
	hub := realtime.NewHub(newTestLogger(), 0)
	e := echo.New()
	realtime.Register(e, hub)
	return hub, httptest.NewServer(e)
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestClientReceivesBroadcast(t *testing.T) {
	hub, srv := newHubServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(wsURL(srv.URL), 20*time.Millisecond, newTestLogger())
	go c.Run(ctx)

	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "connect")

	// registration on the hub races the dial; the upsert makes retries safe
	waitFor(t, func() bool {
		hub.Publish(domain.NewBoardCreated(domain.Board{ID: "b1", Title: "Launch"}))
		s := c.Snapshot()
		return len(s.Boards) == 1 && s.Boards[0].Title == "Launch"
	}, "board created event applied")
}

func TestClientJoinReceivesGroupEvents(t *testing.T) {
	hub, srv := newHubServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(wsURL(srv.URL), 20*time.Millisecond, newTestLogger())
	go c.Run(ctx)
	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "connect")

	c.SetCurrent(domain.Board{ID: "b1", Title: "Board", Lists: []domain.List{
		{ID: "l1", BoardID: "b1", Title: "To Do"},
	}})
	c.Join("b1")

	// join is asynchronous server-side; retry the publish until it lands
	waitFor(t, func() bool {
		hub.Publish(domain.NewCardCreated("b1", domain.Card{ID: "c1", ListID: "l1", Title: "New card"}))
		s := c.Snapshot()
		return s.Current != nil && len(s.Current.Lists) == 1 && len(s.Current.Lists[0].Cards) > 0
	}, "card created event applied")
}

func TestClientReconnectsAndRejoins(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	hub := realtime.NewHub(newTestLogger(), 0)
	e := echo.New()
	realtime.Register(e, hub)
	srv := &http.Server{Handler: e}
	go srv.Serve(ln)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New("ws://"+addr+"/ws", 20*time.Millisecond, newTestLogger())
	go c.Run(ctx)
	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "first connect")

	c.SetCurrent(domain.Board{ID: "b1", Title: "Board", Lists: []domain.List{
		{ID: "l1", BoardID: "b1", Title: "To Do"},
	}})
	c.Join("b1")

	srv.Close()
	waitFor(t, func() bool { return c.ConnState() != StateConnected }, "disconnect noticed")

	ln2, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("relisten: %v", err)
	}
	hub2 := realtime.NewHub(newTestLogger(), 0)
	e2 := echo.New()
	realtime.Register(e2, hub2)
	srv2 := &http.Server{Handler: e2}
	go srv2.Serve(ln2)
	defer srv2.Close()

	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "reconnect")

	// the rejoin frame must have reached the fresh hub for this to land
	waitFor(t, func() bool {
		hub2.Publish(domain.NewCardCreated("b1", domain.Card{ID: "c1", ListID: "l1", Title: "After restart"}))
		s := c.Snapshot()
		return s.Current != nil && len(s.Current.Lists[0].Cards) > 0
	}, "group event after reconnect")
}

func TestClientStopsOnContextCancel(t *testing.T) {
	_, srv := newHubServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(wsURL(srv.URL), 20*time.Millisecond, newTestLogger())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "connect")

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if c.ConnState() != StateDisconnected {
		t.Fatalf("state after cancel = %s", c.ConnState())
	}
}

func TestClientRetriesWhileServerDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New("ws://"+addr+"/ws", 10*time.Millisecond, newTestLogger())
	go c.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	if got := c.ConnState(); got == StateConnected {
		t.Fatalf("connected with no server listening")
	}

	ln2, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("relisten: %v", err)
	}
	hub := realtime.NewHub(newTestLogger(), 0)
	e := echo.New()
	realtime.Register(e, hub)
	srv := &http.Server{Handler: e}
	go srv.Serve(ln2)
	defer srv.Close()

	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "connect after server came up")
}

func TestConcurrentJoinLeave(t *testing.T) {
	hub, srv := newHubServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(wsURL(srv.URL), 20*time.Millisecond, newTestLogger())
	go c.Run(ctx)
	waitFor(t, func() bool { return c.ConnState() == StateConnected }, "connect")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("b%d-%d", g, i)
				c.Join(id)
				c.Leave(id)
			}
		}(g)
	}
	wg.Wait()

	// the connection must have survived the concurrent frames intact
	if c.ConnState() != StateConnected {
		t.Fatalf("state after concurrent join/leave = %s", c.ConnState())
	}
	c.SetCurrent(domain.Board{ID: "b1", Title: "Board", Lists: []domain.List{
		{ID: "l1", BoardID: "b1", Title: "To Do"},
	}})
	c.Join("b1")
	waitFor(t, func() bool {
		hub.Publish(domain.NewCardCreated("b1", domain.Card{ID: "c1", ListID: "l1", Title: "Still alive"}))
		s := c.Snapshot()
		return s.Current != nil && len(s.Current.Lists[0].Cards) > 0
	}, "group event after concurrent join/leave")
}

func TestDecodeEventUnknownType(t *testing.T) {
	if _, ok := DecodeEvent([]byte(`{"type":"SomethingElse","data":{}}`)); ok {
		t.Fatalf("unknown event type decoded")
	}
	if _, ok := DecodeEvent([]byte(`not json`)); ok {
		t.Fatalf("garbage decoded")
	}
}

func TestDecodeEventCardMoved(t *testing.T) {
	ev, ok := DecodeEvent([]byte(`{"type":"CardMoved","data":{"cardId":"c1","targetListId":"l2","newPosition":3}}`))
	if !ok {
		t.Fatalf("decode failed")
	}
	data, ok := ev.Data.(domain.CardMovedData)
	if !ok {
		t.Fatalf("payload type %T", ev.Data)
	}
	if data.CardID != "c1" || data.TargetListID != "l2" || data.NewPosition != 3 {
		t.Fatalf("payload = %+v", data)
	}
}
