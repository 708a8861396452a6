package actor

import (
	"fmt"
	"time"

	"github.com/Jojo-A/has-marstek-local-api/internal/config"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/events"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/service"
	. "github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives the three poll tiers. Each tier reschedules itself
// on its own cadence; responses merge into the snapshot, which only
// this actor writes. While paused (a command is in flight) due ticks
// are remembered and run on resume, never skipped.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	deviceActor  *actor.PID
	config       *config.Config
	eventStream  *eventstream.EventStream
	snapshot     *domain.StateSnapshot
	paused       bool
	pending      map[domain.PollTier]bool
	queryTimeout time.Duration

	logger *zap.Logger
}

type pollTick struct {
	tier domain.PollTier
}

func NewPollerActor(config *config.Config, deviceActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	var totalQueries int
	for _, methods := range domain.TierQueries {
		totalQueries += len(methods)
	}
	act := &PollerActor{
		config:      config,
		deviceActor: deviceActor,
		eventStream: eventStream,
		snapshot:    domain.NewStateSnapshot(),
		pending:     make(map[domain.PollTier]bool),
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger("poller", logger),
		// worst case every tier is due at once and each query waits
		// out the pacing gap plus the full request timeout
		queryTimeout: time.Duration(totalQueries) * (config.Device.RequestDelay() + config.Device.RequestTimeout() + time.Second),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) tierInterval(tier domain.PollTier) time.Duration {
	switch tier {
	case domain.TierFast:
		return state.config.Polling.FastInterval()
	case domain.TierMedium:
		return state.config.Polling.MediumInterval()
	default:
		return state.config.Polling.SlowInterval()
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		// first round of every tier runs right away
		for _, tier := range domain.PollTiers {
			ctx.Send(ctx.Self(), pollTick{tier: tier})
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		healthState := "polling"
		if state.paused {
			healthState = "paused"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   healthState,
		})
	case pollTick:
		state.scheduler.RequestOnce(state.tierInterval(msg.tier), ctx.Self(), pollTick{tier: msg.tier})
		if state.paused {
			state.logger.Debug("poller@default tick deferred", zap.String("tier", msg.tier.String()))
			state.pending[msg.tier] = true
			return
		}
		state.runTier(ctx, msg.tier)
	case domain.DeviceQueryResponse:
		state.handleQueryResponse(msg)
	case domain.GetSnapshotRequest:
		state.logger.Debug("poller@default: GetSnapshotRequest")
		ForRequest(msg).Respond(ctx, domain.GetSnapshotResponse{
			Values: state.snapshot.Values(),
		})
	case domain.PausePollingRequest:
		state.logger.Debug("poller@default: PausePollingRequest")
		state.paused = true
		ForRequest(msg).Respond(ctx, domain.PausePollingResponse{})
	case domain.ResumePollingRequest:
		state.logger.Debug("poller@default: ResumePollingRequest")
		state.paused = false
		ForRequest(msg).Respond(ctx, domain.ResumePollingResponse{})
		for _, tier := range domain.PollTiers {
			if state.pending[tier] {
				delete(state.pending, tier)
				state.runTier(ctx, tier)
			}
		}
	default:
		state.logger.Debug("poller@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollerActor) runTier(ctx actor.Context, tier domain.PollTier) {
	state.logger.Debug("poller@default tick", zap.String("tier", tier.String()))
	for _, method := range domain.TierQueries[tier] {
		m := method
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.DeviceQueryRequest{Method: m}, state.queryTimeout), func(err error) any {
			return domain.DeviceQueryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Method: m,
			}
		})
	}
}

func (state *PollerActor) handleQueryResponse(msg domain.DeviceQueryResponse) {
	if msg.HasResponseError() {
		// the device actor tracks failures, nothing to merge here
		state.logger.Warn("poller@default query failed",
			zap.String("method", string(msg.Method)), zap.Error(msg.GetResponseError()))
		return
	}
	tier, ok := domain.MethodTier(msg.Method)
	if !ok {
		state.logger.Warn("poller@default response for unknown query", zap.String("method", string(msg.Method)))
		return
	}
	values, err := service.QueryValues(msg.Method, msg.Response)
	if err != nil {
		state.logger.Warn("poller@default undecodable response",
			zap.String("method", string(msg.Method)), zap.Error(err))
		return
	}
	written := state.snapshot.Merge(tier, time.Now(), values)
	for _, ev := range events.SnapshotUpdateEvents(values, written) {
		state.eventStream.Publish(ev)
	}
}
