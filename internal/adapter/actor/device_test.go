package actor

import (
	"testing"
	"time"

	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnTestDeviceActor(t *testing.T, caller marstek.Caller, delay time.Duration, threshold uint,
	stream *eventstream.EventStream) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	t.Helper()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	identity := domain.NewDeviceIdentity("11:22:33:44:55:66")
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewDeviceActor(caller, identity, "192.168.1.50:30000", delay, 5*time.Second, threshold, stream, logger)
	})
	pid := context.Spawn(props)
	return as, context, pid
}

func TestDeviceActorQuery(t *testing.T) {

	assert := assert.New(t)

	caller := marstek.NewTestCaller()
	caller.SetResult(marstek.MethodESGetStatus, `{"bat_soc": 55, "bat_power": -200}`)

	as, context, pid := spawnTestDeviceActor(t, caller, 100*time.Millisecond, 3, &eventstream.EventStream{})

	result, err := context.RequestFuture(pid, domain.DeviceQueryRequest{Method: marstek.MethodESGetStatus}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.DeviceQueryResponse)

	assert.False(resp.HasResponseError())
	status, err := marstek.DecodeESStatus(resp.Response)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(55, *status.BatterySOC)

	context.Stop(pid)
	as.Shutdown()
}

func TestDeviceActorPacesConsecutiveRequests(t *testing.T) {

	assert := assert.New(t)

	delay := 300 * time.Millisecond

	caller := marstek.NewTestCaller()
	caller.SetResult(marstek.MethodESGetStatus, `{"bat_soc": 55}`)
	caller.SetResult(marstek.MethodESGetMode, `{"mode": "Auto"}`)

	as, context, pid := spawnTestDeviceActor(t, caller, delay, 3, &eventstream.EventStream{})

	f1 := context.RequestFuture(pid, domain.DeviceQueryRequest{Method: marstek.MethodESGetStatus}, 15*time.Second)
	f2 := context.RequestFuture(pid, domain.DeviceQueryRequest{Method: marstek.MethodESGetMode}, 15*time.Second)

	_, err := f1.Result()
	if err != nil {
		t.Error(err)
		return
	}
	_, err = f2.Result()
	if err != nil {
		t.Error(err)
		return
	}

	calls := caller.Calls()
	if !assert.Len(calls, 2) {
		return
	}
	gap := calls[1].At.Sub(calls[0].At)
	assert.GreaterOrEqual(gap, delay, "second datagram sent before the pacing gap elapsed")

	context.Stop(pid)
	as.Shutdown()
}

func TestDeviceActorAvailabilityTransitions(t *testing.T) {

	assert := assert.New(t)

	caller := marstek.NewTestCaller()
	caller.SetError(marstek.MethodESGetStatus, marstek.ErrTimeout)

	stream := &eventstream.EventStream{}
	var events []domain.DeviceAvailabilityEvent
	sub := stream.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.DeviceAvailabilityEvent); ok {
			events = append(events, ev)
		}
	})
	defer stream.Unsubscribe(sub)

	as, context, pid := spawnTestDeviceActor(t, caller, 10*time.Millisecond, 2, stream)

	// two consecutive failures reach the threshold
	for i := 0; i < 2; i++ {
		result, err := context.RequestFuture(pid, domain.DeviceQueryRequest{Method: marstek.MethodESGetStatus}, 15*time.Second).Result()
		if err != nil {
			t.Error(err)
			return
		}
		assert.True(result.(domain.DeviceQueryResponse).HasResponseError())
	}

	state, err := context.RequestFuture(pid, domain.GetDeviceStateRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	assert.False(state.(domain.GetDeviceStateResponse).Available)

	// a single success recovers
	caller.SetResult(marstek.MethodESGetStatus, `{"bat_soc": 55}`)
	_, err = context.RequestFuture(pid, domain.DeviceQueryRequest{Method: marstek.MethodESGetStatus}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	state, err = context.RequestFuture(pid, domain.GetDeviceStateRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(state.(domain.GetDeviceStateResponse).Available)

	if assert.Len(events, 2) {
		assert.False(events[0].Available)
		assert.True(events[1].Available)
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestDeviceActorFailedCommandDoesNotAffectAvailability(t *testing.T) {

	assert := assert.New(t)

	caller := marstek.NewTestCaller()
	caller.SetError(marstek.MethodESSetMode, marstek.ErrTimeout)

	as, context, pid := spawnTestDeviceActor(t, caller, 10*time.Millisecond, 1, &eventstream.EventStream{})

	params, err := marstek.BuildModeConfig(marstek.ModePassive, -500)
	if err != nil {
		t.Error(err)
		return
	}
	result, err := context.RequestFuture(pid, domain.DeviceCommandRequest{
		Method: marstek.MethodESSetMode,
		Params: marstek.SetModeParams{Config: params},
	}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(result.(domain.DeviceCommandResponse).HasResponseError())

	state, err := context.RequestFuture(pid, domain.GetDeviceStateRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(state.(domain.GetDeviceStateResponse).Available)
	assert.Equal(0, state.(domain.GetDeviceStateResponse).ConsecutiveFailures)

	context.Stop(pid)
	as.Shutdown()
}

func TestDeviceActorUpdateAddress(t *testing.T) {

	assert := assert.New(t)

	caller := marstek.NewTestCaller()
	caller.SetResult(marstek.MethodESGetStatus, `{"bat_soc": 55}`)

	as, context, pid := spawnTestDeviceActor(t, caller, 10*time.Millisecond, 3, &eventstream.EventStream{})

	result, err := context.RequestFuture(pid, domain.UpdateDeviceAddressRequest{Address: "192.168.1.99:30000"}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(domain.DeviceAddress("192.168.1.50:30000"), result.(domain.UpdateDeviceAddressResponse).Previous)

	_, err = context.RequestFuture(pid, domain.DeviceQueryRequest{Method: marstek.MethodESGetStatus}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	calls := caller.Calls()
	if assert.Len(calls, 1) {
		assert.Equal("192.168.1.99:30000", calls[0].Addr)
	}

	context.Stop(pid)
	as.Shutdown()
}
