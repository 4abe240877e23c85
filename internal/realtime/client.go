package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/leonardcser/electives-mcp/internal/logger"
)

const DefaultHeartbeat = 30 * time.Second

type ClientOptions struct {
	// URL is the realtime websocket endpoint, e.g. wss://<ref>.supabase.co/realtime/v1/websocket.
	URL    string
	APIKey string
	// Schema defaults to "public".
	Schema    string
	Heartbeat time.Duration
	// Origin is sent on the websocket handshake; defaults to http://localhost.
	Origin string
}

// message is a Phoenix channel frame.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

type channel struct {
	table    string
	joinRef  string
	handlers map[uint64]Handler
}

// Client is a Stream over a Supabase Realtime (Phoenix channels) websocket.
// It joins one channel per table and leaves it when the last handler unsubscribes.
// The connection is not re-established after a failure; Done is closed instead.
type Client struct {
	conn      *websocket.Conn
	schema    string
	heartbeat time.Duration

	writeMu sync.Mutex
	ref     atomic.Uint64

	mu       sync.Mutex
	nextID   uint64
	channels map[string]*channel

	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// DialClient connects to the realtime endpoint and starts the read and heartbeat loops.
func DialClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("realtime: missing url")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime: parse url: %w", err)
	}
	q := u.Query()
	if opts.APIKey != "" {
		q.Set("apikey", opts.APIKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	origin := opts.Origin
	if origin == "" {
		origin = "http://localhost"
	}
	cfg, err := websocket.NewConfig(u.String(), origin)
	if err != nil {
		return nil, fmt.Errorf("realtime: config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}

	c := &Client{
		conn:      conn,
		schema:    opts.Schema,
		heartbeat: opts.Heartbeat,
		channels:  make(map[string]*channel),
		done:      make(chan struct{}),
	}
	if c.schema == "" {
		c.schema = "public"
	}
	if c.heartbeat <= 0 {
		c.heartbeat = DefaultHeartbeat
	}
	go c.readLoop()
	go c.heartbeatLoop()
	return c, nil
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close shuts the connection down. It is safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) topic(table string) string {
	return "realtime:" + c.schema + ":" + table
}

func (c *Client) Subscribe(table string, h Handler) (Subscription, error) {
	if table == "" {
		return Subscription{}, ErrEmptyTable
	}
	if h == nil {
		return Subscription{}, ErrNilHandler
	}
	if c.closed.Load() {
		return Subscription{}, ErrClosed
	}
	topic := c.topic(table)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch, joined := c.channels[topic]
	if !joined {
		ch = &channel{table: table, handlers: make(map[uint64]Handler)}
		c.channels[topic] = ch
	}
	ch.handlers[id] = h
	c.mu.Unlock()

	if !joined {
		if err := c.join(topic, table, id); err != nil {
			return Subscription{}, err
		}
	}
	return Subscription{id: id, table: table}, nil
}

// join sends phx_join for topic on behalf of subscriber id. If the send fails
// only that subscriber is removed; others that attached meanwhile stay.
func (c *Client) join(topic, table string, id uint64) error {
	ref := c.nextRef()
	c.mu.Lock()
	if ch := c.channels[topic]; ch != nil {
		ch.joinRef = ref
	}
	c.mu.Unlock()

	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []map[string]string{
				{"event": "*", "schema": c.schema, "table": table},
			},
		},
	}
	if err := c.send(topic, "phx_join", payload, ref); err != nil {
		c.removeHandler(topic, id)
		return err
	}
	return nil
}

// removeHandler drops one handler and reports whether the channel became empty.
func (c *Client) removeHandler(topic string, id uint64) (last, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, found := c.channels[topic]
	if !found {
		return false, false
	}
	if _, ok := ch.handlers[id]; !ok {
		return false, false
	}
	delete(ch.handlers, id)
	if len(ch.handlers) == 0 {
		delete(c.channels, topic)
		return true, true
	}
	return false, true
}

func (c *Client) Unsubscribe(sub Subscription) error {
	topic := c.topic(sub.table)
	last, ok := c.removeHandler(topic, sub.id)
	if !ok {
		return ErrNotSubscribed
	}
	if last && !c.closed.Load() {
		return c.send(topic, "phx_leave", struct{}{}, c.nextRef())
	}
	return nil
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

func (c *Client) send(topic, event string, payload any, ref string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message{
		Topic:   topic,
		Event:   event,
		Payload: b,
		Ref:     ref,
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := websocket.JSON.Send(c.conn, msg); err != nil {
		return fmt.Errorf("realtime: send %s: %w", event, err)
	}
	return nil
}

func (c *Client) heartbeatLoop() {
	t := time.NewTicker(c.heartbeat)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			if err := c.send("phoenix", "heartbeat", struct{}{}, c.nextRef()); err != nil {
				if !c.closed.Load() {
					logger.Warnf("realtime heartbeat: %v", err)
				}
				_ = c.Close()
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	defer func() { _ = c.Close() }()
	for {
		var msg message
		if err := websocket.JSON.Receive(c.conn, &msg); err != nil {
			if !c.closed.Load() {
				logger.Warnf("realtime read: %v", err)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg message) {
	var ev Event
	switch msg.Event {
	case "postgres_changes":
		var p struct {
			Data struct {
				Table string `json:"table"`
				Type  string `json:"type"`
			} `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			logger.Warnf("realtime %s: bad payload: %v", msg.Topic, err)
			return
		}
		ev.Table, ev.Type = p.Data.Table, EventType(p.Data.Type)
	case "INSERT", "UPDATE", "DELETE":
		var p struct {
			Table string `json:"table"`
		}
		_ = json.Unmarshal(msg.Payload, &p)
		ev.Table, ev.Type = p.Table, EventType(msg.Event)
	case "phx_reply":
		var p struct {
			Status string `json:"status"`
		}
		if json.Unmarshal(msg.Payload, &p) == nil && p.Status != "ok" {
			c.rejectJoin(msg.Topic, msg.Ref, p.Status)
		}
		return
	case "phx_error":
		logger.Errorf("realtime %s: channel error", msg.Topic)
		c.rejectJoin(msg.Topic, "", "error")
		return
	default:
		return
	}

	t, ok := ParseEventType(string(ev.Type))
	if !ok {
		return
	}
	ev.Type = t

	c.mu.Lock()
	ch := c.channels[msg.Topic]
	var handlers []Handler
	if ch != nil {
		if ev.Table == "" {
			ev.Table = ch.table
		}
		for _, h := range ch.handlers {
			handlers = append(handlers, h)
		}
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// rejectJoin drops a channel whose join was refused, so its subscriptions stop
// reporting as active. An empty ref matches any join of the topic.
func (c *Client) rejectJoin(topic, ref, status string) {
	c.mu.Lock()
	ch := c.channels[topic]
	if ch == nil || (ref != "" && ch.joinRef != ref) {
		c.mu.Unlock()
		return
	}
	delete(c.channels, topic)
	c.mu.Unlock()
	logger.Errorf("realtime %s: join rejected with status %q, %d subscription(s) dropped", topic, status, len(ch.handlers))
}
