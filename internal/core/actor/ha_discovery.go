package actor

import (
	"errors"
	"fmt"
	"time"

	"peakshaver/internal/config"
	"peakshaver/internal/core/domain"
	"peakshaver/internal/core/events"
	"peakshaver/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the MQTT discovery configs once both the
// hass and mqtt actors report healthy, then goes dormant.
type HADiscoveryActor struct {
	config           *config.Config
	behavior         actor.Behavior
	stash            *actorutil.Stash
	hassActor        *actor.PID
	mqttActor        *actor.PID
	hassActorHealthy bool
	mqttActorHealthy bool
	healthyRecv      int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, hassActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		hassActor: hassActor,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check hass and MQTT actor healthy
		state.healthyRecv = 0
		state.hassActorHealthy = false
		state.mqttActorHealthy = false
		// Hass Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hassActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_HASS,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_HASS:
				state.hassActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.hassActorHealthy && state.mqttActorHealthy {
				state.publishDiscovery(ctx)
				state.behavior.Become(state.Done)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Hass Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	var sensors []domain.GenericSensor

	bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors = append(sensors, events.BridgeSensors(bridgeDevice)...)

	controllerDevice := events.ControllerDevice(state.config.MQTT.BaseTopic)
	controllerDevice.ViaDevice = bridgeDevice.Id
	controllerSensors := events.ControllerSensors(controllerDevice)
	for i := range controllerSensors {
		if i > 0 {
			controllerSensors[i].Device = events.IdDevice(controllerDevice)
		}
		sensors = append(sensors, controllerSensors[i])
	}

	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors: sensors,
	})
}
