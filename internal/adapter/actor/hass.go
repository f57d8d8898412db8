package actor

import (
	"context"
	"fmt"
	"time"

	"peakshaver/internal/core/domain"
	"peakshaver/internal/util/actorutil"
	"peakshaver/pkg/hass"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	HASS_ACTOR_ID = "hass"

	HASS_REQUEST_TIMEOUT = 10 * time.Second
)

// HassActor owns the Home Assistant websocket connection. Requests are
// executed as background tasks while the actor stashes any concurrent
// messages until the running one completes.
type HassActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   hass.Client
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewHassActor(client hass.Client, logger *zap.Logger) *HassActor {
	act := &HassActor{
		client:   client,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("hass", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HassActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HassActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hass@starting started")
		openCtx, cancel := context.WithTimeout(context.Background(), HASS_REQUEST_TIMEOUT)
		defer cancel()
		if err := state.client.Open(openCtx); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.client.Close()
	default:
		state.logger.Debug("hass@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HassActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("hass@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      HASS_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetEntityStatesRequest:
		state.logger.Debug("hass@default: GetEntityStatesRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getEntityStates),
			mapTaskResult[domain.GetEntityStatesResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetEntityStatesResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(HASS_REQUEST_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingHass)
	case domain.CallServiceRequest:
		state.logger.Debug("hass@default: CallServiceRequest", zap.String("call", msg.Call.String()))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.CallServiceResponse {
			a := state.callService(msg.Call)
			return &a
		}),
			mapTaskResult[domain.CallServiceResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.CallServiceResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(HASS_REQUEST_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingHass)
	case *actor.Stopping:
		state.client.Close()
	default:
		state.logger.Debug("hass@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HassActor) WaitingHass(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("hass@waitingHass backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.client.Close()
	default:
		state.logger.Debug("hass@waitingHass stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *HassActor) getEntityStates() (*domain.GetEntityStatesResponse, error) {
	reqCtx, cancel := context.WithTimeout(context.Background(), HASS_REQUEST_TIMEOUT)
	defer cancel()
	states, err := a.client.GetStates(reqCtx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetEntityStatesResponse{
		States: states,
	}, nil
}

func (a *HassActor) callService(call hass.ServiceCall) domain.CallServiceResponse {
	reqCtx, cancel := context.WithTimeout(context.Background(), HASS_REQUEST_TIMEOUT)
	defer cancel()
	if err := a.client.CallService(reqCtx, call); err != nil {
		logger.Error(err)
		return domain.CallServiceResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	}
	return domain.CallServiceResponse{}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
