package actor

import (
	"fmt"
	"time"

	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/service"
	"github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// DeviceActor is the single serialization point for UDP traffic towards
// the battery. Every request goes through it, so the pacing gap between
// consecutive datagrams and the consecutive-failure count are enforced
// in one place. Queries feed the failure tracker, commands do not.
type DeviceActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	scheduler *scheduler.TimerScheduler

	caller      marstek.Caller
	identity    domain.DeviceIdentity
	address     domain.DeviceAddress
	delay       time.Duration
	timeout     time.Duration
	tracker     *service.FailureTracker
	eventStream *eventstream.EventStream
	lastSent    time.Time

	logger *zap.Logger
}

type paceExpired struct {
}

type deviceTaskResult struct {
	message any
	replyTo *actor.PID
	query   bool
	err     error
}

func NewDeviceActor(caller marstek.Caller, identity domain.DeviceIdentity, address domain.DeviceAddress,
	delay time.Duration, timeout time.Duration, failureThreshold uint,
	eventStream *eventstream.EventStream, logger *zap.Logger) *DeviceActor {
	act := &DeviceActor{
		caller:      caller,
		identity:    identity,
		address:     address,
		delay:       delay,
		timeout:     timeout,
		tracker:     service.NewFailureTracker(int(failureThreshold)),
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger("device", logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *DeviceActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DeviceActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("device@default started", zap.String("address", string(state.address)))
		state.scheduler = scheduler.NewTimerScheduler(ctx)
	case domain.ActorHealthRequest:
		state.logger.Debug("device@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetDeviceStateRequest:
		state.logger.Debug("device@default: GetDeviceStateRequest")
		state.respondDeviceState(ctx, msg)
	case domain.UpdateDeviceAddressRequest:
		previous := state.address
		state.address = msg.Address
		if previous != msg.Address {
			state.logger.Info("device address updated",
				zap.String("previous", string(previous)), zap.String("current", string(msg.Address)))
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.UpdateDeviceAddressResponse{
			Previous: previous,
		})
	case domain.DeviceQueryRequest:
		state.logger.Debug("device@default: DeviceQueryRequest", zap.String("method", string(msg.Method)))
		if state.paceRequest(ctx, msg) {
			return
		}
		state.startQuery(ctx, msg)
	case domain.DeviceCommandRequest:
		state.logger.Debug("device@default: DeviceCommandRequest", zap.String("method", string(msg.Method)))
		if state.paceRequest(ctx, msg) {
			return
		}
		state.startCommand(ctx, msg)
	default:
		state.logger.Debug("device@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DeviceActor) respondDeviceState(ctx actor.Context, msg domain.GetDeviceStateRequest) {
	actorutil.ForRequest(msg).Respond(ctx, domain.GetDeviceStateResponse{
		Identity:            state.identity,
		Address:             state.address,
		Available:           state.tracker.Available(),
		ConsecutiveFailures: state.tracker.ConsecutiveFailures(),
	})
}

// paceRequest defers the message when the pacing gap since the last
// datagram has not elapsed yet. Returns true when the message was
// stashed and will be redelivered once the gap expires.
func (state *DeviceActor) paceRequest(ctx actor.Context, msg any) bool {
	wait := state.delay - time.Since(state.lastSent)
	if wait <= 0 {
		return false
	}
	state.logger.Debug("device@default: pacing request", zap.Duration("wait", wait))
	state.stash.Stash(ctx, msg)
	state.scheduler.SendOnce(wait, ctx.Self(), paceExpired{})
	state.behavior.BecomeStacked(state.WaitingPace)
	return true
}

func (state *DeviceActor) WaitingPace(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case paceExpired:
		state.logger.Debug("device@waitingPace: pace expired")
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		// no datagram involved, answer right away
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   "pacing",
		})
	case domain.GetDeviceStateRequest:
		state.respondDeviceState(ctx, msg)
	default:
		state.logger.Debug("device@waitingPace: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) startQuery(ctx actor.Context, msg domain.DeviceQueryRequest) {
	sender := actorutil.ForRequest(msg).ReplyTo(ctx)
	address := string(state.address)
	method := msg.Method
	state.lastSent = time.Now()
	actorutil.NewBackgroundTask(ctx, func() (*deviceTaskResult, error) {
		resp, err := state.caller.Call(address, method, marstek.QueryParams{}, state.timeout)
		return &deviceTaskResult{
			message: domain.DeviceQueryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Method:   method,
				Response: resp,
			},
			replyTo: sender,
			query:   true,
			err:     err,
		}, nil
	}).Recover(func(err error) deviceTaskResult {
		return deviceTaskResult{
			message: domain.DeviceQueryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Method: method,
			},
			replyTo: sender,
			query:   true,
			err:     err,
		}
	}).WithTimeout(state.timeout + time.Second).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingDevice)
}

func (state *DeviceActor) startCommand(ctx actor.Context, msg domain.DeviceCommandRequest) {
	sender := actorutil.ForRequest(msg).ReplyTo(ctx)
	address := string(state.address)
	method := msg.Method
	params := msg.Params
	state.lastSent = time.Now()
	actorutil.NewBackgroundTask(ctx, func() (*deviceTaskResult, error) {
		resp, err := state.caller.Call(address, method, params, state.timeout)
		return &deviceTaskResult{
			message: domain.DeviceCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Response: resp,
			},
			replyTo: sender,
			err:     err,
		}, nil
	}).Recover(func(err error) deviceTaskResult {
		return deviceTaskResult{
			message: domain.DeviceCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			},
			replyTo: sender,
			err:     err,
		}
	}).WithTimeout(state.timeout + time.Second).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingDevice)
}

func (state *DeviceActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case deviceTaskResult:
		state.logger.Debug("device@waitingDevice taskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.query {
			state.trackQueryResult(msg.err)
		}
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DEVICE,
			Healthy: true,
			State:   "busy",
		})
	case domain.GetDeviceStateRequest:
		state.respondDeviceState(ctx, msg)
	default:
		state.logger.Debug("device@waitingDevice stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DeviceActor) trackQueryResult(err error) {
	switch state.tracker.RecordResult(err == nil) {
	case service.TransitionUnavailable:
		state.logger.Warn("device became unavailable",
			zap.Int("consecutive_failures", state.tracker.ConsecutiveFailures()), zap.Error(err))
		state.eventStream.Publish(domain.DeviceAvailabilityEvent{
			Identity:  state.identity,
			Available: false,
		})
	case service.TransitionRecovered:
		state.logger.Info("device recovered")
		state.eventStream.Publish(domain.DeviceAvailabilityEvent{
			Identity:  state.identity,
			Available: true,
		})
	}
}
