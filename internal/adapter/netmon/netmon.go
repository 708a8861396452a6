package netmon

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// Monitor samples the local interface addresses on a fixed schedule and
// fires the callback when the set changes: a DHCP renew or a wifi roam
// on this host is a good moment to re-check where the device lives.
// Implements port.NetworkMonitor.
type Monitor struct {
	interval time.Duration
	logger   *zap.Logger

	sched  quartz.Scheduler
	cancel context.CancelFunc

	mu        sync.Mutex
	lastAddrs string
	onChange  func()
}

func NewMonitor(interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		interval: interval,
		logger:   logger.With(zap.String("component", "netmon")),
	}
}

func (m *Monitor) Start(onChange func()) error {
	addrs, err := localAddrs()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.lastAddrs = addrs
	m.onChange = onChange
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.sched = quartz.NewStdScheduler()
	m.sched.Start(ctx)

	check := job.NewFunctionJob(func(context.Context) (bool, error) {
		return m.check(), nil
	})
	return m.sched.ScheduleJob(quartz.NewJobDetail(check, quartz.NewJobKey("netmon_check")),
		quartz.NewSimpleTrigger(m.interval))
}

func (m *Monitor) Stop() {
	if m.sched != nil {
		m.sched.Stop()
		m.cancel()
		m.sched = nil
	}
	m.mu.Lock()
	m.onChange = nil
	m.mu.Unlock()
}

func (m *Monitor) check() bool {
	addrs, err := localAddrs()
	if err != nil {
		m.logger.Warn("could not list interface addresses", zap.Error(err))
		return false
	}

	m.mu.Lock()
	changed := addrs != m.lastAddrs
	if changed {
		m.logger.Info("local network changed",
			zap.String("previous", m.lastAddrs), zap.String("current", addrs))
		m.lastAddrs = addrs
	}
	onChange := m.onChange
	m.mu.Unlock()

	if changed && onChange != nil {
		onChange()
	}
	return changed
}

// localAddrs returns the non-loopback IPv4 addresses of this host as a
// stable comparable string.
func localAddrs() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	var ips []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			ips = append(ips, v4.String())
		}
	}
	sort.Strings(ips)
	return strings.Join(ips, ","), nil
}
