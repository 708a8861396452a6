package marstek

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DeviceHit is one device that answered a discovery broadcast.
type DeviceHit struct {
	Info DeviceInfo
	Addr string
}

// Discoverer finds devices on the local network by broadcast. A miss
// is not an error: an empty slice means nothing answered in time.
type Discoverer interface {
	Discover(port int, wait time.Duration) ([]DeviceHit, error)
}

// Discover broadcasts Marstek.GetDevice and collects every reply that
// arrives within wait. Replies are deduplicated by BLE MAC. A scan
// opens its own socket: the per-call socket must keep belonging to the
// call in flight, a scan reading from it would swallow that call's
// response and turn it into a spurious timeout.
func (c *Client) Discover(port int, wait time.Duration) ([]DeviceHit, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}
	defer conn.Close()

	broadcast := &net.UDPAddr{IP: net.IPv4bcast, Port: port}

	id := int(c.nextID.Add(1))
	payload, err := json.Marshal(Request{ID: id, Method: MethodGetDevice, Params: QueryParams{ID: 0}})
	if err != nil {
		return nil, &ProtocolError{Method: MethodGetDevice, Reason: err.Error()}
	}
	if _, err := conn.WriteToUDP(payload, broadcast); err != nil {
		return nil, &TransportError{Op: "broadcast", Err: err}
	}

	deadline := time.Now().Add(wait)
	seen := make(map[string]bool)
	var hits []DeviceHit
	buf := make([]byte, readBufferSize)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, &TransportError{Op: "deadline", Err: err}
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return hits, nil
			}
			return hits, &TransportError{Op: "receive", Err: err}
		}

		var resp Response
		if err := json.Unmarshal(buf[:n], &resp); err != nil {
			c.logger.Debug("discovery: malformed datagram", zap.String("from", from.String()))
			continue
		}
		if resp.ID != id {
			continue
		}
		info, err := DecodeDeviceInfo(&resp)
		if err != nil {
			c.logger.Debug("discovery: undecodable device info", zap.Error(err))
			continue
		}
		if info.BLEMAC == nil {
			continue
		}
		mac := NormalizeMAC(*info.BLEMAC)
		if seen[mac] {
			continue
		}
		seen[mac] = true
		hits = append(hits, DeviceHit{
			Info: *info,
			Addr: fmt.Sprintf("%s:%d", from.IP.String(), port),
		})
	}
}

// NormalizeMAC lowercases a MAC and strips separators so identities
// compare equal regardless of formatting.
func NormalizeMAC(mac string) string {
	mac = strings.ToLower(mac)
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	return mac
}
