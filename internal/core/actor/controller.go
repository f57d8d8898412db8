package actor

import (
	"fmt"
	"math"
	"time"

	"peakshaver/internal/config"
	"peakshaver/internal/core/domain"
	"peakshaver/internal/core/events"
	"peakshaver/internal/core/port"
	"peakshaver/internal/core/service"
	. "peakshaver/internal/util/actorutil"
	"peakshaver/pkg/hass"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	// writes are skipped when the current value is already this close
	VALUE_WRITE_TOLERANCE = 0.5
)

// ControllerActor runs the poll-compute-write cycle. Each tick it asks
// the hass actor for all entity states, feeds them through the peak
// shaving logic and writes back the inverter mode, eco power, slicer
// and depth of discharge. Results are published on the event stream for
// the MQTT bridge.
type ControllerActor struct {
	behavior actor.Behavior
	stash    *Stash

	hassActor   *actor.PID
	options     config.Options
	logic       port.PeakShavingLogic
	reader      *service.SensorReader
	eventStream *eventstream.EventStream

	lastResult *domain.ControlResult
	lastErr    error

	logger *zap.Logger
}

func NewControllerActor(cfg *config.Config, hassActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *ControllerActor {
	actorLogger := ActorLogger(domain.ACTOR_ID_CONTROLLER, logger)
	act := &ControllerActor{
		options:     cfg.Options,
		hassActor:   hassActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		eventStream: eventStream,
		logic:       service.NewPeakShavingLogic(actorLogger),
		reader:      service.NewSensorReader(cfg.Options.Advanced.VerboseLogging, actorLogger),
		logger:      actorLogger,
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ControllerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ControllerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("controller@default started")
		ctx.Send(ctx.Self(), domain.ControlTickRequest{})
	case domain.ActorHealthRequest:
		state.logger.Debug("controller@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROLLER,
			Healthy: state.lastErr == nil,
			State:   "idle",
		})
	case domain.ControlTickRequest:
		state.logger.Debug("controller@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hassActor, domain.GetEntityStatesRequest{}, 15*time.Second), func(err error) any {
			return domain.GetEntityStatesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.BecomeStacked(state.WaitingStatesReceive)
	case domain.GetControlResultRequest:
		state.logger.Debug("controller@default GetControlResultRequest")
		ForRequest(msg).Respond(ctx, domain.GetControlResultResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: state.lastErr,
			},
			Result: state.lastResult,
		})
	case domain.UpdateOptionsRequest:
		state.logger.Info("controller@default UpdateOptionsRequest")
		state.options = msg.Options
		state.reader.SetVerbose(msg.Options.Advanced.VerboseLogging)
		ForRequest(msg).Respond(ctx, domain.UpdateOptionsResponse{})
		// recompute immediately with the new options
		ctx.Send(ctx.Self(), domain.ControlTickRequest{})
	default:
		state.logger.Debug("controller@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ControllerActor) WaitingStatesReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetEntityStatesResponse:
		if msg.HasResponseError() {
			state.failTick(ctx, msg.GetResponseError())
		} else {
			state.runTick(ctx, msg.States)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("controller@waitingStates stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControllerActor) runTick(ctx actor.Context, states map[string]hass.State) {
	opts := state.options

	mode := state.reader.Text(states, opts.Inverter.ModeSelectEntity)
	overrule := state.reader.Text(states, opts.Inverter.OverruleSelectEntity)

	var carCharge float64
	if opts.PowerSensors.EVChargeEntity != "" {
		carCharge = state.reader.Float(states, opts.PowerSensors.EVChargeEntity)
	}

	input := domain.ControlInput{
		InverterMode:          mode,
		Overrule:              overrule,
		Production:            state.reader.Float(states, opts.PowerSensors.SolarProductionEntity),
		Consumption:           state.reader.Float(states, opts.PowerSensors.ConsumptionEntity),
		CarCharge:             carCharge,
		BatteryPct:            state.reader.Float(states, opts.PowerSensors.BatterySOCEntity),
		CurrentFromNet:        state.reader.Float(states, opts.PowerSensors.NetPowerEntity),
		BatteryLowest:         state.reader.Float(states, opts.BatteryControls.BatteryReferenceEntity),
		PeakDemand:            state.reader.Float(states, opts.PowerSensors.PeakDemandEntity),
		Slicer:                state.reader.Float(states, opts.BatteryControls.BatterySlicerEntity),
		MaxChargePowerWatt:    opts.BatteryControls.MaxChargePowerWatt,
		MaxDischargePowerWatt: opts.BatteryControls.MaxDischargePowerWatt,
	}

	decision := state.logic.Compute(input)
	result := service.BuildControlResult(input, decision, input.MaxChargePowerWatt, input.MaxDischargePowerWatt)

	state.logger.Debug("controller@tick computed",
		zap.String("calculatedMode", decision.CalculatedMode),
		zap.String("desiredMode", decision.DesiredMode))

	// write the inverter operating mode when it differs
	if decision.DesiredMode != mode {
		state.logger.Info("controller@tick mode change",
			zap.String("from", mode), zap.String("to", decision.DesiredMode))
		ctx.Send(state.hassActor, domain.CallServiceRequest{
			Call: hass.ServiceCall{
				Domain:  "select",
				Service: "select_option",
				Target: hass.ServiceTarget{
					EntityId: []string{opts.Inverter.ModeSelectEntity},
				},
				Data: map[string]any{
					"option": decision.DesiredMode,
				},
			},
		})
	}

	// write the eco charge/discharge power percentage
	if decision.DesiredMode == domain.MODE_ECO_CHARGE && decision.EcoValue != nil {
		ecoValue := math.Max(0, math.Min(100, float64(*decision.EcoValue)))
		state.setValueIfNeeded(ctx, states, opts.BatteryControls.EcoModePowerEntity, ecoValue)
	}

	// sync the slicer to the battery percentage outside general mode
	if decision.DesiredMode != domain.MODE_GENERAL {
		state.setValueIfNeeded(ctx, states, opts.BatteryControls.BatterySlicerEntity, input.BatteryPct)
	}

	// keep the on-grid depth of discharge pinned
	if opts.BatteryControls.DodOnGridEntity != "" {
		state.setValueIfNeeded(ctx, states, opts.BatteryControls.DodOnGridEntity, service.DOD_ON_GRID_PCT)
	}

	state.lastResult = &result
	state.lastErr = nil

	for _, event := range events.ControlResultToUpdateEvents(&result) {
		state.eventStream.Publish(event)
	}
	state.eventStream.Publish(domain.BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: events.SENSOR_ID_BRIDGE_STATE,
		},
		Value: true,
	})
}

func (state *ControllerActor) failTick(ctx actor.Context, err error) {
	state.logger.Error("controller@tick failed", zap.Error(err))
	state.lastErr = err

	state.notify(ctx, fmt.Sprintf("Peak shaving control cycle failed: %s", err), true)

	state.eventStream.Publish(domain.BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: events.SENSOR_ID_BRIDGE_STATE,
		},
		Value: false,
	})
}

// setValueIfNeeded writes a number entity unless the current state is
// already within tolerance. An unreadable current state does not block
// the write.
func (state *ControllerActor) setValueIfNeeded(ctx actor.Context, states map[string]hass.State, entityId string, value float64) {
	if current, ok := states[entityId]; ok && current.Valid() {
		if currentValue, err := current.Float(); err == nil {
			if math.Abs(currentValue-value) <= VALUE_WRITE_TOLERANCE {
				return
			}
		}
	}

	var serviceDomain string
	switch hass.EntityDomain(entityId) {
	case "number":
		serviceDomain = "number"
	case "input_number":
		serviceDomain = "input_number"
	default:
		state.logger.Warn("controller@tick cannot write value, unsupported entity domain",
			zap.String("entity", entityId))
		return
	}

	state.logger.Debug("controller@tick set value",
		zap.String("entity", entityId), zap.Float64("value", value))
	ctx.Send(state.hassActor, domain.CallServiceRequest{
		Call: hass.ServiceCall{
			Domain:  serviceDomain,
			Service: "set_value",
			Target: hass.ServiceTarget{
				EntityId: []string{entityId},
			},
			Data: map[string]any{
				"value": value,
			},
		},
	})
}

func (state *ControllerActor) notify(ctx actor.Context, message string, critical bool) {
	script := state.options.Notifications.NotifyScriptEntity
	if script == "" {
		state.logger.Warn("controller@notify no notify script configured, skipping notification",
			zap.String("message", message))
		return
	}

	criticalFlag := 0
	if critical {
		criticalFlag = 1
	}
	variables := map[string]any{
		"message":  message,
		"critical": criticalFlag,
	}
	if state.options.Notifications.NotifyDevice != "" {
		variables["device"] = state.options.Notifications.NotifyDevice
	}

	ctx.Send(state.hassActor, domain.CallServiceRequest{
		Call: hass.ServiceCall{
			Domain:  "script",
			Service: "turn_on",
			Target: hass.ServiceTarget{
				EntityId: []string{script},
			},
			Data: map[string]any{
				"variables": variables,
			},
		},
	})
}
