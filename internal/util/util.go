package util

import (
	"peakshaver/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		HomeAssistant: config.HomeAssistantConfig{
			WebsocketURL: "ws://localhost:8123",
			AccessToken:  "test-token",
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "peakshaver",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		Options: config.Options{
			Inverter: config.InverterConfig{
				ModeSelectEntity:     "select.battery_mode",
				OverruleSelectEntity: "select.battery_overrule",
			},
			PowerSensors: config.PowerSensorsConfig{
				SolarProductionEntity: "sensor.solar_production",
				ConsumptionEntity:     "sensor.consumption",
				EVChargeEntity:        "sensor.ev_charge",
				NetPowerEntity:        "sensor.net_power",
				PeakDemandEntity:      "sensor.peak_demand",
				BatterySOCEntity:      "sensor.battery_soc",
			},
			BatteryControls: config.BatteryControlsConfig{
				BatteryReferenceEntity: "input_number.battery_lowest",
				BatterySlicerEntity:    "input_number.battery_slicer",
				EcoModePowerEntity:     "number.eco_mode_power",
				MaxChargePowerWatt:     5000,
				MaxDischargePowerWatt:  4300,
			},
			Notifications: config.NotificationsConfig{
				NotifyScriptEntity: "script.notify_battery",
			},
			Advanced: config.AdvancedConfig{
				UpdateIntervalSeconds: 5,
			},
		},
		Port: 8080,
	}
}
