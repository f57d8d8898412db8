package hass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateFloat(t *testing.T) {

	assert := assert.New(t)

	st := State{EntityId: "sensor.solar_production", State: "1250.5"}
	v, err := st.Float()
	assert.NoError(err)
	assert.Equal(1250.5, v)

	st = State{EntityId: "sensor.solar_production", State: "unavailable"}
	_, err = st.Float()
	assert.Error(err)

	st = State{EntityId: "sensor.solar_production", State: "not a number"}
	_, err = st.Float()
	assert.Error(err)
}

func TestStateValid(t *testing.T) {

	assert := assert.New(t)

	assert.True(State{State: "on"}.Valid())
	assert.True(State{State: "0"}.Valid())
	assert.False(State{State: STATE_UNKNOWN}.Valid())
	assert.False(State{State: STATE_UNAVAILABLE}.Valid())
	assert.False(State{State: ""}.Valid())
}

func TestEntityDomain(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("number", EntityDomain("number.battery_slicer"))
	assert.Equal("input_number", EntityDomain("input_number.eco_power"))
	assert.Equal("", EntityDomain("no_dot_here"))
}
