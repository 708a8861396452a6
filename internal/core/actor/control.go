package actor

import (
	"fmt"
	"time"

	"github.com/Jojo-A/has-marstek-local-api/internal/config"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/domain"
	"github.com/Jojo-A/has-marstek-local-api/internal/core/service"
	. "github.com/Jojo-A/has-marstek-local-api/internal/util/actorutil"
	"github.com/Jojo-A/has-marstek-local-api/pkg/marstek"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// ControlActor validates and issues battery commands. A command walks a
// fixed sequence: validate against the power limits, pause polling,
// send ES.SetMode, resume polling, answer the requester. Polling always
// resumes, even when the device rejects the command.
type ControlActor struct {
	behavior actor.Behavior
	stash    *Stash

	deviceActor *actor.PID
	pollerActor *actor.PID
	config      *config.Config
	limits      service.PowerLimits
	eventStream *eventstream.EventStream

	pendingParams   marstek.SetModeParams
	pendingReplyTo  *actor.PID
	pendingResponse domain.BatteryCommandResponse

	logger *zap.Logger
}

func NewControlActor(config *config.Config, deviceActor *actor.PID, pollerActor *actor.PID,
	eventStream *eventstream.EventStream, logger *zap.Logger) *ControlActor {
	act := &ControlActor{
		config:      config,
		deviceActor: deviceActor,
		pollerActor: pollerActor,
		eventStream: eventStream,
		limits: service.PowerLimits{
			SocketLimitEnabled: config.Command.SocketLimitEnabled,
			ChargeLimitWatt:    int(config.Command.ActionChargePower),
			DischargeLimitWatt: int(config.Command.ActionDischargePower),
		},
		behavior: actor.NewBehavior(),
		stash:    &Stash{},
		logger:   ActorLogger("control", logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ControlActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ControlActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("control@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("control@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROL,
			Healthy: true,
			State:   "idle",
		})
	case domain.BatteryCommandRequest:
		state.logger.Debug("control@default: BatteryCommandRequest",
			zap.String("action", msg.Action.String()), zap.Int("power", msg.PowerWatt))
		state.handleCommand(ctx, msg)
	default:
		state.logger.Debug("control@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ControlActor) handleCommand(ctx actor.Context, msg domain.BatteryCommandRequest) {
	sender := ForRequest(msg).ReplyTo(ctx)

	reject := func(reason string) {
		state.logger.Warn("control@default command rejected",
			zap.String("action", msg.Action.String()), zap.String("reason", reason))
		if sender != nil {
			ctx.Send(sender, domain.BatteryCommandResponse{
				Accepted:     false,
				RejectReason: reason,
			})
		}
	}

	if err := state.limits.Validate(msg.Action, msg.PowerWatt); err != nil {
		reject(err.Error())
		return
	}

	modeConfig, err := commandModeConfig(msg.Action, msg.PowerWatt)
	if err != nil {
		reject(err.Error())
		return
	}

	state.pendingParams = marstek.SetModeParams{Config: modeConfig}
	state.pendingReplyTo = sender
	state.pendingResponse = domain.BatteryCommandResponse{}

	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.pollerActor, domain.PausePollingRequest{}, 5*time.Second), func(err error) any {
		return domain.PausePollingResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.behavior.BecomeStacked(state.WaitingPause)
}

// commandModeConfig maps an action to a device mode. Charge and
// discharge use passive mode with a signed power, charging is negative
// on the wire. Stop hands control back to the device's own auto mode.
func commandModeConfig(action domain.CommandAction, powerWatt int) (map[string]any, error) {
	switch action {
	case domain.ActionCharge:
		return marstek.BuildModeConfig(marstek.ModePassive, -powerWatt)
	case domain.ActionDischarge:
		return marstek.BuildModeConfig(marstek.ModePassive, powerWatt)
	case domain.ActionStop:
		return marstek.BuildModeConfig(marstek.ModeAuto, 0)
	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}
}

func (state *ControlActor) WaitingPause(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PausePollingResponse:
		if msg.HasResponseError() {
			// best effort, the command still goes out
			state.logger.Warn("control@waitingPause pause failed", zap.Error(msg.GetResponseError()))
		}
		commandTimeout := state.config.Device.RequestDelay() + state.config.Device.RequestTimeout() + 2*time.Second
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.DeviceCommandRequest{
			Method: marstek.MethodESSetMode,
			Params: state.pendingParams,
		}, commandTimeout), func(err error) any {
			return domain.DeviceCommandResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.UnbecomeStacked()
		state.behavior.BecomeStacked(state.WaitingCommand)
	default:
		state.logger.Debug("control@waitingPause stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControlActor) WaitingCommand(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.DeviceCommandResponse:
		state.pendingResponse = evaluateCommandResponse(msg)
		// resume no matter how the command went
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.pollerActor, domain.ResumePollingRequest{}, 5*time.Second), func(err error) any {
			return domain.ResumePollingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.UnbecomeStacked()
		state.behavior.BecomeStacked(state.WaitingResume)
	default:
		state.logger.Debug("control@waitingCommand stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func evaluateCommandResponse(msg domain.DeviceCommandResponse) domain.BatteryCommandResponse {
	if msg.HasResponseError() {
		return domain.BatteryCommandResponse{
			Accepted:     false,
			RejectReason: msg.GetResponseError().Error(),
		}
	}
	result, err := marstek.DecodeSetModeResult(msg.Response)
	if err != nil {
		return domain.BatteryCommandResponse{
			Accepted:     false,
			RejectReason: err.Error(),
		}
	}
	if result.SetResult == nil || !*result.SetResult {
		return domain.BatteryCommandResponse{
			Accepted:     false,
			RejectReason: "device refused mode change",
		}
	}
	return domain.BatteryCommandResponse{Accepted: true}
}

func (state *ControlActor) WaitingResume(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ResumePollingResponse:
		if msg.HasResponseError() {
			state.logger.Warn("control@waitingResume resume failed", zap.Error(msg.GetResponseError()))
		}
		if state.pendingResponse.Accepted {
			state.logger.Info("control@waitingResume command accepted")
		}
		if state.pendingReplyTo != nil {
			ctx.Send(state.pendingReplyTo, state.pendingResponse)
		}
		state.pendingReplyTo = nil
		state.pendingParams = marstek.SetModeParams{}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("control@waitingResume stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}
