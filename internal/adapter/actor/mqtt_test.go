package actor

import (
	"testing"
	"time"

	"peakshaver/internal/core/domain"
	"peakshaver/internal/core/events"
	"peakshaver/internal/util"
	"peakshaver/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(2 * time.Second)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.NotNil(t, resp)

	context.Send(pid, domain.PublishSensorUpdateRequest{
		Event: domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: events.SENSOR_ID_BATTERY_MANUAL_STATUS,
			},
			Value: "Charge",
		},
	})
	context.Send(pid, domain.PublishSensorUpdateRequest{
		Event: domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: events.SENSOR_ID_BATTERY_SOC_TARGET,
			},
			Value:    50,
			Decimals: 1,
		},
	})

	time.Sleep(1 * time.Second)

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}
