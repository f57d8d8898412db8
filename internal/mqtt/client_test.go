package mqtt

import (
	"encoding/json"
	"testing"

	"peakshaver/internal/config"
	"peakshaver/internal/core/events"

	"github.com/stretchr/testify/assert"
)

func testClient() *MQTTClient {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "loremTopic",
		},
	}
	return CreateMQTTClient(cfg, OptsFromConfig(cfg), nil, nil)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	assert.Equal("loremTopic/bridge/state", client.BridgeStateTopic())
	assert.Equal("loremTopic/sensor/battery_manual_status/state", client.SensorStateTopic("battery_manual_status"))
	assert.Equal("loremTopic/sensor/battery_manual_status/attributes", client.SensorAttributesTopic("battery_manual_status"))
	assert.Equal("loremTopic/binary_sensor/bridge/state", client.BinarySensorStateTopic("bridge"))
}

func TestHADiscoverySensorTopic(t *testing.T) {

	assert := assert.New(t)

	device := events.ControllerDevice("loremTopic")
	sensors := events.ControllerSensors(device)

	topic := HADiscoverySensorTopic("homeassistant", sensors[0])
	assert.Equal("homeassistant/sensor/"+device.Id+"/battery_manual_status/config", topic)
}

func TestGenericSensorToHADiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	device := events.ControllerDevice("loremTopic")
	sensors := events.ControllerSensors(device)

	// status sensor carries an attributes topic
	status := GenericSensorToHADiscoveryMessage(client, sensors[0])
	assert.Equal("loremTopic/sensor/battery_manual_status/state", status.StateTopic)
	assert.Equal("loremTopic/sensor/battery_manual_status/attributes", status.JsonAttributesTopic)
	assert.Equal("loremTopic/bridge/state", status.AvTopic)
	assert.Equal("mqtt", status.Platform)

	// SOC target sensor does not
	target := GenericSensorToHADiscoveryMessage(client, sensors[1])
	assert.Equal("", target.JsonAttributesTopic)
	assert.Equal("%", target.UnitOfMeasurement)

	payload, err := json.Marshal(status)
	assert.NoError(err)
	assert.Contains(string(payload), "json_attributes_topic")

	payload, err = json.Marshal(target)
	assert.NoError(err)
	assert.NotContains(string(payload), "json_attributes_topic")
}

func TestBridgeSensorDiscovery(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	device := events.BridgeDevice("loremTopic")
	sensors := events.BridgeSensors(device)

	msg := GenericSensorToHADiscoveryMessage(client, sensors[0])
	assert.Equal("loremTopic/bridge/state", msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.PayloadOff)
}
