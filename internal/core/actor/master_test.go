package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/Jojo-A/has-marstek-local-api/internal/adapter/actor"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/util"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	caller := pollTestCaller()
	caller.SetResult(marstek.MethodESSetMode, `{"set_result": true}`)

	identity := domain.NewDeviceIdentity(cfg.Device.BLEMAC)
	discoverer := &marstek.TestDiscoverer{}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(stream *eventstream.EventStream) *adactor.DeviceActor {
			return adactor.NewDeviceActor(caller, identity, "192.168.1.50:30000",
				cfg.Device.RequestDelay(), cfg.Device.RequestTimeout(), cfg.Device.FailuresBeforeUnavailable, stream, logger)
		}, nil, discoverer, nil, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	// snapshot requests route through the master to the poller
	snapRes, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapshot, ok := snapRes.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.Equal(t, "Auto", snapshot.Values[domain.KeyDeviceMode].Value, "snapshot routed")

	// commands route through the master to the control actor
	cmdRes, err := context.RequestFuture(pid, domain.BatteryCommandRequest{
		Action:    domain.ActionCharge,
		PowerWatt: 400,
	}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	cmdResp, ok := cmdRes.(domain.BatteryCommandResponse)
	assert.True(t, ok)
	assert.True(t, cmdResp.Accepted, "command accepted")

	context.Stop(pid)

	as.Shutdown()
}
