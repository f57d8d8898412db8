package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "peakshaver/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE          = "bridge"
	SENSOR_ID_BATTERY_MANUAL_STATUS = "battery_manual_status"
	SENSOR_ID_BATTERY_SOC_TARGET    = "battery_soc_target"

	STATE_CLASS_MEASUREMENT   = "measurement"
	DEVICE_CLASS_BATTERY      = "battery"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("peakshaver_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Peakshaver",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Peakshaver %s", md5HashShort(baseTopic)),
	}
}

func ControllerDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("psh_controller_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Peak shaving controller",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Peak Shaving Controller %s", md5HashShort(baseTopic)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func ControllerSensors(controllerDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Battery Manual Status
	sensors = append(sensors, GenericSensor{
		Device:         controllerDevice,
		Id:             SENSOR_ID_BATTERY_MANUAL_STATUS,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Battery Manual Status",
		WithAttributes: true,
		UniqueId:       uniqueId(controllerDevice.Id, SENSOR_ID_BATTERY_MANUAL_STATUS),
	})

	// Battery SOC Target
	sensors = append(sensors, GenericSensor{
		Device:            controllerDevice,
		Id:                SENSOR_ID_BATTERY_SOC_TARGET,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SOC Target %",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(controllerDevice.Id, SENSOR_ID_BATTERY_SOC_TARGET),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Bridge state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func ControlResultToUpdateEvents(result *ControlResult) []any {
	var events []any

	// Battery Manual Status
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_MANUAL_STATUS,
		},
		Value: result.StatusState,
	})
	events = append(events, AttributesSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_MANUAL_STATUS,
		},
		Attributes: result.StatusAttributes,
	})

	// Battery SOC Target
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_SOC_TARGET,
		},
		Value:    result.LowestMinState,
		Decimals: 1,
	})

	return events
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
