package actor

import (
	"fmt"

	"github.com/Jojo-A/has-marstek-local-api/internal/config"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/port"
	. "github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ScannerActor rebinds the device identity to a fresh address when the
// IP changes under us. Scans run on a periodic fallback sweep, when the
// local network changes and when the device goes unavailable. Only the
// hit matching the configured BLE MAC is ever accepted.
type ScannerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	discoverer  marstek.Discoverer
	deviceActor *actor.PID
	identity    domain.DeviceIdentity
	config      *config.Config
	netmon      port.NetworkMonitor
	eventStream *eventstream.EventStream

	eventStreamSub *eventstream.Subscription
	scanAddress    domain.DeviceAddress

	logger *zap.Logger
}

type sweepTick struct {
}

type networkChanged struct {
}

type deviceLost struct {
}

type scanResult struct {
	hits []marstek.DeviceHit
	err  error
}

func NewScannerActor(config *config.Config, discoverer marstek.Discoverer, deviceActor *actor.PID,
	identity domain.DeviceIdentity, netmon port.NetworkMonitor,
	eventStream *eventstream.EventStream, logger *zap.Logger) *ScannerActor {
	act := &ScannerActor{
		config:      config,
		discoverer:  discoverer,
		deviceActor: deviceActor,
		identity:    identity,
		netmon:      netmon,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger("scanner", logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ScannerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ScannerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("scanner@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.config.Scanner.SweepInterval(), ctx.Self(), sweepTick{})

		self := ctx.Self()
		root := ctx.ActorSystem().Root
		state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
			if ev, ok := value.(domain.DeviceAvailabilityEvent); ok && !ev.Available {
				root.Send(self, deviceLost{})
			}
		})
		if state.netmon != nil {
			if err := state.netmon.Start(func() {
				root.Send(self, networkChanged{})
			}); err != nil {
				state.logger.Warn("scanner@default network monitor unavailable", zap.Error(err))
			}
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("scanner@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SCANNER,
			Healthy: true,
			State:   "idle",
		})
	case sweepTick:
		state.scheduler.RequestOnce(state.config.Scanner.SweepInterval(), ctx.Self(), sweepTick{})
		state.startScan(ctx, "sweep")
	case networkChanged:
		state.startScan(ctx, "network change")
	case deviceLost:
		state.startScan(ctx, "device unavailable")
	case *actor.Restarting:
		state.shutdown()
	case *actor.Stopping:
		state.shutdown()
	default:
		state.logger.Debug("scanner@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ScannerActor) startScan(ctx actor.Context, reason string) {
	state.logger.Debug("scanner@default scan", zap.String("reason", reason))
	port := int(state.config.Device.Port)
	wait := state.config.Scanner.DiscoveryWait()
	NewBackgroundTask(ctx, func() (*scanResult, error) {
		hits, err := state.discoverer.Discover(port, wait)
		return &scanResult{hits: hits, err: err}, nil
	}).Recover(func(err error) scanResult {
		return scanResult{err: err}
	}).WithTimeout(wait + wait).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingScan)
}

func (state *ScannerActor) WaitingScan(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case scanResult:
		if msg.err != nil {
			state.logger.Warn("scanner@waitingScan scan failed", zap.Error(msg.err))
			state.finishScan(ctx)
			return
		}
		hit := state.matchIdentity(msg.hits)
		if hit == nil {
			state.logger.Debug("scanner@waitingScan no hit for identity", zap.Int("hits", len(msg.hits)))
			state.finishScan(ctx)
			return
		}
		state.scanAddress = domain.DeviceAddress(hit.Addr)
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.UpdateDeviceAddressRequest{
			Address: state.scanAddress,
		}, state.config.Device.RequestTimeout()), func(err error) any {
			return domain.UpdateDeviceAddressResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	case domain.UpdateDeviceAddressResponse:
		if msg.HasResponseError() {
			state.logger.Warn("scanner@waitingScan address update failed", zap.Error(msg.GetResponseError()))
		} else if msg.Previous != state.scanAddress {
			state.logger.Info("scanner@waitingScan device rebound",
				zap.String("previous", string(msg.Previous)), zap.String("current", string(state.scanAddress)))
			state.eventStream.Publish(domain.DeviceAddressChangedEvent{
				Identity: state.identity,
				Previous: msg.Previous,
				Current:  state.scanAddress,
			})
		}
		state.finishScan(ctx)
	case sweepTick:
		// a scan is already running, only keep the cadence
		state.scheduler.RequestOnce(state.config.Scanner.SweepInterval(), ctx.Self(), sweepTick{})
	case networkChanged, deviceLost:
		state.logger.Debug("scanner@waitingScan scan already running")
	case *actor.Restarting:
		state.shutdown()
	case *actor.Stopping:
		state.shutdown()
	default:
		state.logger.Debug("scanner@waitingScan stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ScannerActor) finishScan(ctx actor.Context) {
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *ScannerActor) matchIdentity(hits []marstek.DeviceHit) *marstek.DeviceHit {
	for i := range hits {
		if hits[i].Info.BLEMAC == nil {
			continue
		}
		if domain.NewDeviceIdentity(*hits[i].Info.BLEMAC) == state.identity {
			return &hits[i]
		}
	}
	return nil
}

func (state *ScannerActor) shutdown() {
	if state.netmon != nil {
		state.netmon.Stop()
	}
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}
