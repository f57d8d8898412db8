package actor

import (
	"testing"
	"time"

	adactor "peakshaver/internal/adapter/actor"
	"peakshaver/internal/core/domain"
	"peakshaver/internal/util"
	"peakshaver/internal/util/actorutil"
	"peakshaver/pkg/hass"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func chargeScenarioClient() *hass.TestClient {
	client := hass.CreateTestClient()
	client.SetState("select.battery_mode", "general")
	client.SetState("select.battery_overrule", domain.OVERRULE_AUTOMATIC)
	client.SetFloatState("sensor.solar_production", 500)
	client.SetFloatState("sensor.consumption", 2000)
	client.SetFloatState("sensor.ev_charge", 0)
	client.SetFloatState("sensor.net_power", 1000)
	client.SetFloatState("sensor.peak_demand", 2000)
	client.SetFloatState("sensor.battery_soc", 40)
	client.SetFloatState("input_number.battery_lowest", 50)
	client.SetFloatState("input_number.battery_slicer", 10)
	client.SetFloatState("number.eco_mode_power", 0)
	return client
}

func spawnControllerWithClient(t *testing.T, client *hass.TestClient) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	hassProps := actor.PropsFromProducer(func() actor.Actor { return adactor.NewHassActor(client, logger) })
	hassPID := context.Spawn(hassProps)

	es := &eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewControllerActor(&cfg, hassPID, es, logger) })
	pid := context.Spawn(props)

	return as, context, pid
}

func TestControllerActorTick(t *testing.T) {

	assert := assert.New(t)

	client := chargeScenarioClient()
	as, context, pid := spawnControllerWithClient(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	result, err := context.RequestFuture(pid, domain.GetControlResultRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetControlResultResponse)

	assert.False(resp.HasResponseError())
	if !assert.NotNil(resp.Result) {
		return
	}
	assert.Equal(domain.CALCULATED_MODE_CHARGE, resp.Result.StatusState)
	assert.Equal(50.0, resp.Result.LowestMinState)
	assert.Equal(domain.MODE_ECO_CHARGE, resp.Result.StatusAttributes["oFinal mode"])

	// the desired mode differs from the current select state, so a
	// select_option call must have been made
	modeCalls := client.CallsTo("select.battery_mode")
	if assert.Len(modeCalls, 1) {
		assert.Equal("select", modeCalls[0].Domain)
		assert.Equal("select_option", modeCalls[0].Service)
		assert.Equal(domain.MODE_ECO_CHARGE, modeCalls[0].Data["option"])
	}

	// eco power write: charge percentage 16
	ecoCalls := client.CallsTo("number.eco_mode_power")
	if assert.Len(ecoCalls, 1) {
		assert.Equal("number", ecoCalls[0].Domain)
		assert.Equal("set_value", ecoCalls[0].Service)
		assert.Equal(16.0, ecoCalls[0].Data["value"])
	}

	// slicer synced to battery percentage outside general mode
	slicerCalls := client.CallsTo("input_number.battery_slicer")
	if assert.Len(slicerCalls, 1) {
		assert.Equal("input_number", slicerCalls[0].Domain)
		assert.Equal(40.0, slicerCalls[0].Data["value"])
	}

	context.Stop(pid)
}

func TestControllerActorSkipsWriteWithinTolerance(t *testing.T) {

	assert := assert.New(t)

	client := chargeScenarioClient()
	// slicer already at the target value
	client.SetFloatState("input_number.battery_slicer", 10)
	client.SetFloatState("sensor.battery_soc", 10.3)

	as, context, pid := spawnControllerWithClient(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	// 10.3 is within 0.5 of the current 10, no write expected
	assert.Empty(client.CallsTo("input_number.battery_slicer"))

	context.Stop(pid)
}

func TestControllerActorFailure(t *testing.T) {

	assert := assert.New(t)

	client := chargeScenarioClient()
	client.FailGetStates = true

	as, context, pid := spawnControllerWithClient(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	// no result yet, error reported
	result, err := context.RequestFuture(pid, domain.GetControlResultRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetControlResultResponse)
	assert.True(resp.HasResponseError())
	assert.Nil(resp.Result)

	// exactly one notification per failed cycle
	notifyCalls := client.CallsTo("script.notify_battery")
	if assert.Len(notifyCalls, 1) {
		assert.Equal("script", notifyCalls[0].Domain)
		assert.Equal("turn_on", notifyCalls[0].Service)
		variables := notifyCalls[0].Data["variables"].(map[string]any)
		assert.Equal(1, variables["critical"])
		assert.NotEmpty(variables["message"])
	}

	// health check reflects the failure
	health, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp := health.(domain.ActorHealthResponse)
	assert.False(healthResp.Healthy)

	context.Stop(pid)
}

func TestControllerActorUpdateOptions(t *testing.T) {

	assert := assert.New(t)

	client := chargeScenarioClient()
	as, context, pid := spawnControllerWithClient(t, client)
	defer as.Shutdown()

	time.Sleep(2 * time.Second)

	cfg := util.LoadTestConfig()
	options := cfg.Options
	options.Advanced.VerboseLogging = true

	result, err := context.RequestFuture(pid, domain.UpdateOptionsRequest{Options: options}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.UpdateOptionsResponse)
	assert.False(resp.HasResponseError())

	context.Stop(pid)
}
