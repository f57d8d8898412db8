package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DEFAULT_MAX_CHARGE_POWER_W    = 5000
	DEFAULT_MAX_DISCHARGE_POWER_W = 4300
	DEFAULT_UPDATE_INTERVAL_SECS  = 5
)

type Config struct {
	LogLevel      zapcore.Level
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
	MQTT          MQTTConfig          `mapstructure:"mqtt"`

	Options Options `mapstructure:",squash"`
	Port    uint    `mapstructure:"port"`
	HttpLog bool    `mapstructure:"http_log"`
}

type HomeAssistantConfig struct {
	WebsocketURL string `mapstructure:"websocket_url"`
	AccessToken  string `mapstructure:"access_token"`
}

// Options is the runtime-replaceable part of the configuration. The five
// sections can be swapped wholesale through the options API without a
// restart.
type Options struct {
	Inverter        InverterConfig        `mapstructure:"inverter" json:"inverter"`
	PowerSensors    PowerSensorsConfig    `mapstructure:"power_sensors" json:"power_sensors"`
	BatteryControls BatteryControlsConfig `mapstructure:"battery_controls" json:"battery_controls"`
	Notifications   NotificationsConfig   `mapstructure:"notifications" json:"notifications"`
	Advanced        AdvancedConfig        `mapstructure:"advanced" json:"advanced"`
}

type InverterConfig struct {
	ModeSelectEntity     string `mapstructure:"mode_select_entity" json:"mode_select_entity"`
	OverruleSelectEntity string `mapstructure:"overrule_select_entity" json:"overrule_select_entity"`
}

type PowerSensorsConfig struct {
	SolarProductionEntity string `mapstructure:"solar_production_entity" json:"solar_production_entity"`
	ConsumptionEntity     string `mapstructure:"consumption_entity" json:"consumption_entity"`
	EVChargeEntity        string `mapstructure:"ev_charge_entity" json:"ev_charge_entity"`
	NetPowerEntity        string `mapstructure:"net_power_entity" json:"net_power_entity"`
	PeakDemandEntity      string `mapstructure:"peak_demand_entity" json:"peak_demand_entity"`
	BatterySOCEntity      string `mapstructure:"battery_soc_entity" json:"battery_soc_entity"`
}

type BatteryControlsConfig struct {
	BatteryReferenceEntity string  `mapstructure:"battery_reference_entity" json:"battery_reference_entity"`
	BatterySlicerEntity    string  `mapstructure:"battery_slicer_entity" json:"battery_slicer_entity"`
	EcoModePowerEntity     string  `mapstructure:"eco_mode_power_entity" json:"eco_mode_power_entity"`
	DodOnGridEntity        string  `mapstructure:"dod_on_grid_entity" json:"dod_on_grid_entity"`
	MaxChargePowerWatt     float64 `mapstructure:"max_charge_power_w" json:"max_charge_power_w"`
	MaxDischargePowerWatt  float64 `mapstructure:"max_discharge_power_w" json:"max_discharge_power_w"`
}

type NotificationsConfig struct {
	NotifyScriptEntity string `mapstructure:"notify_script_entity" json:"notify_script_entity"`
	NotifyDevice       string `mapstructure:"notify_device" json:"notify_device"`
}

type AdvancedConfig struct {
	VerboseLogging        bool `mapstructure:"verbose_logging" json:"verbose_logging"`
	UpdateIntervalSeconds uint `mapstructure:"update_interval_seconds" json:"update_interval_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// Validate checks required fields section by section and substitutes
// defaults for misconfigured numeric limits, mirroring the order in which
// the setup wizard collects them.
func (o *Options) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"inverter.mode_select_entity", o.Inverter.ModeSelectEntity},
		{"inverter.overrule_select_entity", o.Inverter.OverruleSelectEntity},
		{"power_sensors.solar_production_entity", o.PowerSensors.SolarProductionEntity},
		{"power_sensors.consumption_entity", o.PowerSensors.ConsumptionEntity},
		{"power_sensors.ev_charge_entity", o.PowerSensors.EVChargeEntity},
		{"power_sensors.net_power_entity", o.PowerSensors.NetPowerEntity},
		{"power_sensors.peak_demand_entity", o.PowerSensors.PeakDemandEntity},
		{"power_sensors.battery_soc_entity", o.PowerSensors.BatterySOCEntity},
		{"battery_controls.battery_reference_entity", o.BatteryControls.BatteryReferenceEntity},
		{"battery_controls.battery_slicer_entity", o.BatteryControls.BatterySlicerEntity},
		{"battery_controls.eco_mode_power_entity", o.BatteryControls.EcoModePowerEntity},
	}
	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("config param %s is required", field.name)
		}
		if !CheckEntityId(field.value) {
			return fmt.Errorf("config param %s is not a valid entity id: %q", field.name, field.value)
		}
	}
	// optional entities still need a valid shape when present
	optional := []struct {
		name  string
		value string
	}{
		{"battery_controls.dod_on_grid_entity", o.BatteryControls.DodOnGridEntity},
		{"notifications.notify_script_entity", o.Notifications.NotifyScriptEntity},
	}
	for _, field := range optional {
		if field.value != "" && !CheckEntityId(field.value) {
			return fmt.Errorf("config param %s is not a valid entity id: %q", field.name, field.value)
		}
	}
	if o.BatteryControls.MaxChargePowerWatt <= 0 {
		o.BatteryControls.MaxChargePowerWatt = DEFAULT_MAX_CHARGE_POWER_W
	}
	if o.BatteryControls.MaxDischargePowerWatt <= 0 {
		o.BatteryControls.MaxDischargePowerWatt = DEFAULT_MAX_DISCHARGE_POWER_W
	}
	if o.Advanced.UpdateIntervalSeconds < 1 {
		o.Advanced.UpdateIntervalSeconds = DEFAULT_UPDATE_INTERVAL_SECS
	}
	return nil
}

var entityIdRegexp = regexp.MustCompile(`^[a-z_0-9]+\.[a-z0-9_]+$`)

func CheckEntityId(entityId string) bool {
	return entityIdRegexp.MatchString(entityId)
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
