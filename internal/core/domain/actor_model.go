package domain

import (
	"peakshaver/internal/config"
	"peakshaver/pkg/hass"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_HASS         = "hass"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_CONTROLLER   = "controller"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetEntityStatesRequest struct {
	ActorRequestMixIn
}

type GetEntityStatesResponse struct {
	ActorResponseMixIn
	States map[string]hass.State
}

type CallServiceRequest struct {
	ActorRequestMixIn
	Call hass.ServiceCall
}

type CallServiceResponse struct {
	ActorResponseMixIn
}

// ControlTickRequest triggers one poll-compute-write cycle on the
// controller. Sent by the scheduler through the master, or by the
// controller itself after an options update.
type ControlTickRequest struct {
}

type GetControlResultRequest struct {
	ActorRequestMixIn
}

type GetControlResultResponse struct {
	ActorResponseMixIn
	Result *ControlResult
}

type UpdateOptionsRequest struct {
	ActorRequestMixIn
	Options config.Options
}

type UpdateOptionsResponse struct {
	ActorResponseMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
