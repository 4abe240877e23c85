package cache

import (
	"encoding/json"
	"net"
)

// JSON-lines protocol between Client and the cache daemon over a Unix domain socket.
// Each request gets exactly one response on the same connection.

type Request struct {
	Op     string `json:"op"` // "get" | "put" | "delete" | "keys"
	Key    string `json:"key,omitempty"`
	Value  []byte `json:"value,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

type Response struct {
	OK    bool     `json:"ok"`
	Value []byte   `json:"value,omitempty"`
	Keys  []string `json:"keys,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Serve answers one request against kv. It is the daemon side of the protocol.
func Serve(kv KV, req Request) Response {
	switch req.Op {
	case "get":
		v, err := kv.Get(req.Key)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Value: v}
	case "put":
		if err := kv.Put(req.Key, req.Value); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case "delete":
		if err := kv.Delete(req.Key); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}
	case "keys":
		keys, err := kv.Keys(req.Prefix)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Keys: keys}
	default:
		return Response{Error: "unknown op"}
	}
}

// ServeConn answers requests on conn until the peer closes it or sends garbage.
func ServeConn(conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(Serve(kv, req)); err != nil {
			return
		}
	}
}
