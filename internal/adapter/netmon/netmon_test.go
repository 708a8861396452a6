package netmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMonitorStartStop(t *testing.T) {

	assert := assert.New(t)

	m := NewMonitor(50*time.Millisecond, zap.Must(zap.NewDevelopment()))

	err := m.Start(func() {})
	assert.NoError(err, "start")

	// addresses do not change under the test, no callback expected
	time.Sleep(150 * time.Millisecond)

	m.Stop()
}

func TestMonitorDetectsChange(t *testing.T) {

	assert := assert.New(t)

	m := NewMonitor(time.Hour, zap.Must(zap.NewDevelopment()))

	fired := make(chan struct{}, 1)
	err := m.Start(func() {
		fired <- struct{}{}
	})
	assert.NoError(err, "start")
	defer m.Stop()

	// same address set, no change
	assert.False(m.check(), "no change on identical addresses")
	assert.Empty(fired)

	// pretend the last sample was different
	m.mu.Lock()
	m.lastAddrs = "10.99.99.99"
	m.mu.Unlock()

	assert.True(m.check(), "change detected")
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Error("callback not fired")
	}
}
