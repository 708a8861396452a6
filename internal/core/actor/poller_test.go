package actor

import (
	"testing"
	"time"

	adactor "github.com/Jojo-A/has-marstek-local-api/internal/adapter/actor"
	"github.com/Jojo-A/has-marstek-local-api/internal/config"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/util"
	"github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pollTestCaller() *marstek.TestCaller {
	caller := marstek.NewTestCaller()
	caller.SetResult(marstek.MethodESGetMode, `{"mode": "Auto"}`)
	caller.SetResult(marstek.MethodESGetStatus, `{"bat_soc": 73, "bat_power": -500, "ongrid_power": 120, "offgrid_power": 0, "bat_cap": 5.12}`)
	caller.SetResult(marstek.MethodEMGetStatus, `{"a_power": 100, "b_power": 50, "c_power": 25, "total_power": 175}`)
	caller.SetResult(marstek.MethodPVGetStatus, `{"pv_power": 320.5, "pv_voltage": 48.1, "pv_current": 6.7}`)
	caller.SetResult(marstek.MethodBatGetStatus, `{"temp": 24.5, "rated_cap": 5120, "charg_flag": 1, "dischrg_flag": 0}`)
	caller.SetResult(marstek.MethodWifiGetStatus, `{"ssid": "home", "rssi": -60}`)
	return caller
}

func spawnDeviceAndPoller(t *testing.T, cfg *config.Config, caller marstek.Caller,
	stream *eventstream.EventStream) (*actor.ActorSystem, *actor.RootContext, *actor.PID, *actor.PID) {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	identity := domain.NewDeviceIdentity(cfg.Device.BLEMAC)
	deviceProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewDeviceActor(caller, identity, "192.168.1.50:30000",
			10*time.Millisecond, cfg.Device.RequestTimeout(), cfg.Device.FailuresBeforeUnavailable, stream, logger)
	})
	devicePID := context.Spawn(deviceProps)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(cfg, devicePID, stream, logger)
	})
	pollerPID := context.Spawn(pollerProps)

	return as, context, devicePID, pollerPID
}

func getSnapshot(t *testing.T, context *actor.RootContext, poller *actor.PID) map[string]domain.SnapshotValue {
	t.Helper()
	res, err := context.RequestFuture(poller, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	return res.(domain.GetSnapshotResponse).Values
}

func TestPollerFillsSnapshotAcrossTiers(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	caller := pollTestCaller()

	as, context, _, poller := spawnDeviceAndPoller(t, &cfg, caller, &eventstream.EventStream{})

	// every tier runs its first round right away
	time.Sleep(2 * time.Second)

	values := getSnapshot(t, context, poller)

	assert.Equal("Auto", values[domain.KeyDeviceMode].Value, "fast tier value")
	assert.Equal(73, values[domain.KeyBatterySOC].Value, "fast tier value")
	assert.Equal(175, values[domain.KeyMeterTotal].Value, "fast tier value")
	assert.Equal(320.5, values[domain.KeyPVPower].Value, "medium tier value")
	assert.Equal("home", values[domain.KeyWifiSSID].Value, "slow tier value")
	assert.Equal(true, values[domain.KeyBatteryCharging].Value, "slow tier flag")

	context.Stop(poller)
	as.Shutdown()
}

func TestPollerDefersTicksWhilePaused(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Polling.FastIntervalSeconds = 1
	caller := pollTestCaller()

	as, context, _, poller := spawnDeviceAndPoller(t, &cfg, caller, &eventstream.EventStream{})

	time.Sleep(1 * time.Second)

	_, err := context.RequestFuture(poller, domain.PausePollingRequest{}, 10*time.Second).Result()
	require.NoError(t, err)

	// a fast tick comes due while paused, the stale value must survive
	caller.SetResult(marstek.MethodESGetStatus, `{"bat_soc": 80}`)
	time.Sleep(1500 * time.Millisecond)

	values := getSnapshot(t, context, poller)
	assert.Equal(73, values[domain.KeyBatterySOC].Value, "no refresh while paused")

	_, err = context.RequestFuture(poller, domain.ResumePollingRequest{}, 10*time.Second).Result()
	require.NoError(t, err)

	// the deferred tick runs on resume, not on the next interval
	time.Sleep(700 * time.Millisecond)

	values = getSnapshot(t, context, poller)
	assert.Equal(80, values[domain.KeyBatterySOC].Value, "deferred tick ran on resume")

	context.Stop(poller)
	as.Shutdown()
}

func TestPollerKeepsLastKnownValueOnFailure(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Polling.FastIntervalSeconds = 1
	caller := pollTestCaller()

	as, context, _, poller := spawnDeviceAndPoller(t, &cfg, caller, &eventstream.EventStream{})

	time.Sleep(1 * time.Second)

	// the device stops answering, the snapshot must not go blank
	caller.SetError(marstek.MethodESGetStatus, marstek.ErrTimeout)
	time.Sleep(1500 * time.Millisecond)

	values := getSnapshot(t, context, poller)
	assert.Equal(73, values[domain.KeyBatterySOC].Value, "last known value kept")

	context.Stop(poller)
	as.Shutdown()
}
