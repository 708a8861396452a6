package marstek

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDevice answers UDP requests like a Marstek device would.
type fakeDevice struct {
	conn *net.UDPConn
}

func newFakeDevice(t *testing.T, handle func(req Request) []any) *fakeDevice {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	dev := &fakeDevice{conn: conn}
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			var req Request
			if err := json.Unmarshal(buf[:n], &req); err != nil {
				continue
			}
			for _, resp := range handle(req) {
				payload, _ := json.Marshal(resp)
				_, _ = conn.WriteToUDP(payload, from)
			}
		}
	}()
	return dev
}

func (d *fakeDevice) addr() string {
	return d.conn.LocalAddr().String()
}

func TestClientCall(t *testing.T) {
	dev := newFakeDevice(t, func(req Request) []any {
		return []any{Response{
			ID:     req.ID,
			Src:    "VenusE",
			Result: json.RawMessage(`{"bat_soc": 55}`),
		}}
	})

	client, err := NewClient(zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Call(dev.addr(), MethodESGetStatus, QueryParams{ID: 0}, 2*time.Second)
	require.NoError(t, err)

	status, err := DecodeESStatus(resp)
	require.NoError(t, err)
	assert.Equal(t, 55, *status.BatterySOC)
}

func TestClientCallDiscardsUnmatchedResponses(t *testing.T) {
	dev := newFakeDevice(t, func(req Request) []any {
		// a stale answer to a previous request arrives first
		return []any{
			Response{ID: req.ID + 100, Result: json.RawMessage(`{"bat_soc": 1}`)},
			Response{ID: req.ID, Result: json.RawMessage(`{"bat_soc": 42}`)},
		}
	})

	client, err := NewClient(zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Call(dev.addr(), MethodESGetStatus, QueryParams{ID: 0}, 2*time.Second)
	require.NoError(t, err)

	status, err := DecodeESStatus(resp)
	require.NoError(t, err)
	assert.Equal(t, 42, *status.BatterySOC)
}

func TestClientCallTimeout(t *testing.T) {
	dev := newFakeDevice(t, func(req Request) []any {
		return nil // never answer
	})

	client, err := NewClient(zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Call(dev.addr(), MethodESGetMode, QueryParams{ID: 0}, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClientCallSucceedsDuringDiscovery(t *testing.T) {
	dev := newFakeDevice(t, func(req Request) []any {
		return []any{Response{
			ID:     req.ID,
			Src:    "VenusE",
			Result: json.RawMessage(`{"bat_soc": 55}`),
		}}
	})

	client, err := NewClient(zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Call(dev.addr(), MethodESGetStatus, QueryParams{ID: 0}, 2*time.Second)
	require.NoError(t, err)

	// a scan keeps reading for its whole wait window
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		_, _ = client.Discover(1, 2*time.Second)
	}()
	time.Sleep(100 * time.Millisecond)

	// the scan must not swallow this call's response datagram
	resp, err := client.Call(dev.addr(), MethodESGetStatus, QueryParams{ID: 0}, 2*time.Second)
	require.NoError(t, err, "poll response lost to a running scan")

	status, err := DecodeESStatus(resp)
	require.NoError(t, err)
	assert.Equal(t, 55, *status.BatterySOC)

	<-scanDone
}

func TestClientCallBadAddress(t *testing.T) {
	client, err := NewClient(zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Call("not a host:port", MethodESGetMode, QueryParams{ID: 0}, time.Second)

	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
}

func TestClientRequestIDsIncrease(t *testing.T) {
	var ids []int
	dev := newFakeDevice(t, func(req Request) []any {
		ids = append(ids, req.ID)
		return []any{Response{ID: req.ID, Result: json.RawMessage(`{}`)}}
	})

	client, err := NewClient(zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < 3; i++ {
		_, err := client.Call(dev.addr(), MethodESGetMode, QueryParams{ID: 0}, time.Second)
		require.NoError(t, err, fmt.Sprintf("call %d", i))
	}

	require.Len(t, ids, 3)
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])
}
