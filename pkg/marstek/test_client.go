package marstek

import (
	"encoding/json"
	"sync"
	"time"
)

// TestCaller is an in-memory Caller for tests. Responses are keyed by
// method; every call is recorded with its send time.
type TestCaller struct {
	mu      sync.Mutex
	results map[Method]json.RawMessage
	errs    map[Method]error
	calls   []TestCall
	Delay   time.Duration
}

type TestCall struct {
	Addr   string
	Method Method
	Params any
	At     time.Time
}

func NewTestCaller() *TestCaller {
	return &TestCaller{
		results: make(map[Method]json.RawMessage),
		errs:    make(map[Method]error),
	}
}

func (c *TestCaller) SetResult(method Method, rawResult string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[method] = json.RawMessage(rawResult)
	delete(c.errs, method)
}

func (c *TestCaller) SetError(method Method, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[method] = err
}

func (c *TestCaller) Calls() []TestCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TestCall, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *TestCaller) Call(addr string, method Method, params any, timeout time.Duration) (*Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, TestCall{Addr: addr, Method: method, Params: params, At: time.Now()})
	err := c.errs[method]
	result := c.results[method]
	delay := c.Delay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrTimeout
	}
	return &Response{ID: len(c.calls), Src: "TestVenus", Result: result}, nil
}

func (c *TestCaller) Close() error {
	return nil
}

// TestDiscoverer is an in-memory Discoverer for tests.
type TestDiscoverer struct {
	mu    sync.Mutex
	Hits  []DeviceHit
	Err   error
	scans int
}

func (d *TestDiscoverer) Discover(port int, wait time.Duration) ([]DeviceHit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scans++
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Hits, nil
}

func (d *TestDiscoverer) Scans() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scans
}
