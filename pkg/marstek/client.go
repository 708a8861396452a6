package marstek

import (
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPort is the UDP port the Marstek local API listens on.
	DefaultPort = 30000

	readBufferSize = 4096
)

// Caller issues a single request/response exchange against a device
// address. Implementations do not retry; retry and pacing policy
// belongs to the caller.
type Caller interface {
	Call(addr string, method Method, params any, timeout time.Duration) (*Response, error)
	Close() error
}

// Client is a UDP Caller. Calls must be serialized per client: a call
// owns the socket until it returns, and the device actor is the single
// serialization point. Discover runs on a socket of its own, so scans
// may overlap calls freely.
type Client struct {
	conn   *net.UDPConn
	nextID atomic.Int64
	logger *zap.Logger
}

func NewClient(logger *zap.Logger) (*Client, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}
	return &Client{
		conn:   conn,
		logger: logger.With(zap.String("component", "udp_client")),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends exactly one datagram and waits for the response carrying
// the same request id, up to timeout. Datagrams with a different id
// (late responses to earlier calls, chatter from other hosts) are
// discarded.
func (c *Client) Call(addr string, method Method, params any, timeout time.Duration) (*Response, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, &TransportError{Op: "resolve", Err: err}
	}

	id := int(c.nextID.Add(1))
	payload, err := json.Marshal(Request{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, &ProtocolError{Method: method, Reason: err.Error()}
	}

	start := time.Now()
	if _, err := c.conn.WriteToUDP(payload, udpAddr); err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}

	deadline := start.Add(timeout)
	buf := make([]byte, readBufferSize)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, &TransportError{Op: "deadline", Err: err}
		}
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return nil, ErrTimeout
			}
			return nil, &TransportError{Op: "receive", Err: err}
		}

		var resp Response
		if err := json.Unmarshal(buf[:n], &resp); err != nil {
			return nil, &ProtocolError{Method: method, Reason: err.Error()}
		}
		if resp.ID != id {
			c.logger.Debug("discarding unmatched datagram",
				zap.Int("want_id", id), zap.Int("got_id", resp.ID))
			continue
		}
		c.logger.Debug("call done",
			zap.String("method", string(method)),
			zap.Duration("latency", time.Since(start)))
		return &resp, nil
	}
}
