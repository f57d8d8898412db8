package hass

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	STATE_UNKNOWN     = "unknown"
	STATE_UNAVAILABLE = "unavailable"
)

// State is an entity state as returned by the Home Assistant
// websocket API "get_states" command.
type State struct {
	EntityId   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Valid reports whether the state holds a usable value.
func (s State) Valid() bool {
	return s.State != "" && s.State != STATE_UNKNOWN && s.State != STATE_UNAVAILABLE
}

func (s State) Float() (float64, error) {
	if !s.Valid() {
		return 0, fmt.Errorf("entity %s has no valid state: %q", s.EntityId, s.State)
	}
	return strconv.ParseFloat(s.State, 64)
}

func (s State) Domain() string {
	return EntityDomain(s.EntityId)
}

// EntityDomain returns the part of an entity id before the dot
// ("number.battery_slicer" => "number").
func EntityDomain(entityId string) string {
	idx := strings.Index(entityId, ".")
	if idx < 0 {
		return ""
	}
	return entityId[:idx]
}

type ServiceTarget struct {
	EntityId []string `json:"entity_id,omitempty"`
}

// ServiceCall describes a Home Assistant "call_service" command.
type ServiceCall struct {
	Domain  string         `json:"domain"`
	Service string         `json:"service"`
	Target  ServiceTarget  `json:"target,omitempty"`
	Data    map[string]any `json:"service_data,omitempty"`
}

func (c ServiceCall) String() string {
	return fmt.Sprintf("%s.%s(%s)", c.Domain, c.Service, strings.Join(c.Target.EntityId, ","))
}
