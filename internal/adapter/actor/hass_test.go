package actor

import (
	"testing"
	"time"

	"peakshaver/internal/core/domain"
	"peakshaver/internal/util/actorutil"
	"peakshaver/pkg/hass"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetEntityStatesHassActor(t *testing.T) {

	assert := assert.New(t)

	client := hass.CreateTestClient()
	client.SetFloatState("sensor.solar_production", 2500)
	client.SetState("select.battery_mode", "general")

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHassActor(client, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetEntityStatesRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetEntityStatesResponse)

	assert.False(resp.HasResponseError())
	assert.Equal(resp.States["sensor.solar_production"].State, "2500", "sensor state")
	assert.Equal(resp.States["select.battery_mode"].State, "general", "select state")

	context.Stop(pid)

	as.Shutdown()
}

func TestCallServiceHassActor(t *testing.T) {

	assert := assert.New(t)

	client := hass.CreateTestClient()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHassActor(client, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.CallServiceRequest{
		Call: hass.ServiceCall{
			Domain:  "select",
			Service: "select_option",
			Target: hass.ServiceTarget{
				EntityId: []string{"select.battery_mode"},
			},
			Data: map[string]any{
				"option": "eco_charge",
			},
		},
	}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.CallServiceResponse)

	assert.False(resp.HasResponseError())

	calls := client.CallsTo("select.battery_mode")
	if assert.Len(calls, 1) {
		assert.Equal("select", calls[0].Domain)
		assert.Equal("select_option", calls[0].Service)
		assert.Equal("eco_charge", calls[0].Data["option"])
	}

	context.Stop(pid)

	as.Shutdown()
}

func TestHassActorHealthCheck(t *testing.T) {

	assert := assert.New(t)

	client := hass.CreateTestClient()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHassActor(client, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ActorHealthResponse)

	assert.Equal(HASS_ACTOR_ID, resp.Id)
	assert.True(resp.Healthy)

	context.Stop(pid)

	as.Shutdown()
}
