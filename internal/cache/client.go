package cache

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

// Client implements KV over the cache daemon's Unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 500 * time.Millisecond}
}

// Dial checks that the socket accepts connections and returns a Client for it.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, err
	}
	_ = conn.Close()
	return NewClient(socketPath), nil
}

func (c *Client) roundTrip(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return nil, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, remoteError(resp.Error)
	}
	return &resp, nil
}

func (c *Client) Get(key string) ([]byte, error) {
	resp, err := c.roundTrip(Request{Op: "get", Key: key})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp.Value...), nil
}

func (c *Client) Put(key string, value []byte) error {
	_, err := c.roundTrip(Request{Op: "put", Key: key, Value: value})
	return err
}

func (c *Client) Delete(key string) error {
	_, err := c.roundTrip(Request{Op: "delete", Key: key})
	return err
}

func (c *Client) Keys(prefix string) ([]string, error) {
	resp, err := c.roundTrip(Request{Op: "keys", Prefix: prefix})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// remoteError maps daemon error strings back onto the package sentinels.
func remoteError(msg string) error {
	switch msg {
	case ErrNotFound.Error():
		return ErrNotFound
	case ErrQuotaExceeded.Error():
		return ErrQuotaExceeded
	}
	return errors.New(msg)
}
