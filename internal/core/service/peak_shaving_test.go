package service

import (
	"testing"

	"peakshaver/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testLogic() *DefaultPeakShavingLogic {
	return NewPeakShavingLogic(zap.NewNop())
}

func baseInput() domain.ControlInput {
	return domain.ControlInput{
		Overrule:              domain.OVERRULE_AUTOMATIC,
		MaxChargePowerWatt:    5000,
		MaxDischargePowerWatt: 4300,
	}
}

func TestSurplusTruthTable(t *testing.T) {

	cases := []struct {
		name        string
		production  float64
		consumption float64
		surplus     bool
	}{
		{"production above consumption above zero", 3000, 1000, true},
		{"production equals consumption", 1000, 1000, false},
		{"production below consumption", 500, 2000, false},
		{"consumption zero", 3000, 0, false},
		{"consumption negative", 3000, -10, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			input := baseInput()
			input.Production = c.production
			input.Consumption = c.consumption
			decision := testLogic().Compute(input)
			assert.Equal(t, c.surplus, decision.Surplus)
		})
	}
}

func TestTotalNetNeverNegative(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Production = 4000
	input.Consumption = 1000

	decision := testLogic().Compute(input)
	assert.Equal(float64(NEGATIVE_NET_FALLBACK_W), decision.TotalNet)
}

func TestPeakFloor(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.PeakDemand = 100

	decision := testLogic().Compute(input)
	assert.Equal(float64(MIN_PEAK_DEMAND_W), decision.Peak)

	input.PeakDemand = 4000
	decision = testLogic().Compute(input)
	assert.Equal(4000.0, decision.Peak)
}

func TestSlicerCap(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Slicer = 55

	decision := testLogic().Compute(input)
	assert.Equal(float64(MAX_SLICER), decision.Slicer)

	input.Slicer = 4
	decision = testLogic().Compute(input)
	assert.Equal(4.0, decision.Slicer)
}

func TestMaxChargePowerDefaultSubstitution(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Production = 500
	input.Consumption = 2000
	input.MaxChargePowerWatt = 0
	input.MaxDischargePowerWatt = -1

	// must not panic or divide by zero
	decision := testLogic().Compute(input)
	assert.GreaterOrEqual(decision.AmountCharge, 0)
	assert.GreaterOrEqual(decision.AmountDischarge, DISCHARGE_PCT_OFFSET)
}

// production=3000, consumption=1000: surplus forces manual mode, no eco write
func TestComputeSurplusExample(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Production = 3000
	input.Consumption = 1000
	input.CarCharge = 0
	input.BatteryPct = 80
	input.BatteryLowest = 50
	input.PeakDemand = 3000
	input.Slicer = 5
	input.CurrentFromNet = 500

	decision := testLogic().Compute(input)

	assert.True(decision.Surplus)
	assert.Equal(domain.CALCULATED_MODE_GENERAL, decision.CalculatedMode)
	assert.Equal(domain.MODE_GENERAL, decision.DesiredMode)
	assert.Nil(decision.EcoValue)
}

// production=500, consumption=2000: charge branch selects eco_charge
func TestComputeChargeExample(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Production = 500
	input.Consumption = 2000
	input.CarCharge = 0
	input.BatteryPct = 40
	input.BatteryLowest = 50
	input.PeakDemand = 2000
	input.Slicer = 10
	input.CurrentFromNet = 1000

	decision := testLogic().Compute(input)

	assert.False(decision.Surplus)
	assert.False(decision.AboveTarget)
	assert.Equal(1500.0, decision.TotalNet)
	assert.Equal(2600.0, decision.Peak)
	assert.Equal(2340.0, decision.FromNet)
	assert.Equal(-840.0, decision.FromBattery)
	assert.True(decision.Charge)
	assert.Equal(domain.CALCULATED_MODE_CHARGE, decision.CalculatedMode)
	assert.Equal(domain.MODE_ECO_CHARGE, decision.DesiredMode)
	if assert.NotNil(decision.EcoValue) {
		assert.Equal(decision.AmountCharge, *decision.EcoValue)
	}
	// abs(int(-840 / 5000 * 100)) = 16
	assert.Equal(16, decision.AmountCharge)
}

func TestChargeDisabledWhenNetExceedsPeak(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Production = 500
	input.Consumption = 2000
	input.BatteryPct = 40
	input.BatteryLowest = 50
	input.PeakDemand = 2000
	input.Slicer = 10
	input.CurrentFromNet = 3000 // above the 2600 peak floor

	decision := testLogic().Compute(input)

	assert.False(decision.Charge)
	assert.Equal(domain.CALCULATED_MODE_DISCHARGE, decision.CalculatedMode)
	assert.Equal(domain.MODE_GENERAL, decision.DesiredMode)
}

func TestOverruleTable(t *testing.T) {

	chargeInput := func() domain.ControlInput {
		input := baseInput()
		input.Production = 500
		input.Consumption = 2000
		input.BatteryPct = 40
		input.BatteryLowest = 50
		input.PeakDemand = 2000
		input.Slicer = 10
		input.CurrentFromNet = 1000
		return input
	}

	cases := []struct {
		overrule    string
		desiredMode string
		hasEco      bool
	}{
		{domain.OVERRULE_AUTOMATIC, domain.MODE_ECO_CHARGE, true},
		{domain.OVERRULE_GENERAL, domain.MODE_GENERAL, false},
		{domain.OVERRULE_CHARGE, domain.MODE_ECO_CHARGE, true},
		{domain.OVERRULE_DISCHARGE, domain.MODE_GENERAL, false},
		{"Whatever", domain.MODE_GENERAL, false},
		{"", domain.MODE_GENERAL, false},
	}

	for _, c := range cases {
		t.Run(c.overrule, func(t *testing.T) {
			input := chargeInput()
			input.Overrule = c.overrule
			decision := testLogic().Compute(input)
			assert.Equal(t, c.desiredMode, decision.DesiredMode)
			if c.hasEco {
				assert.NotNil(t, decision.EcoValue)
			} else {
				assert.Nil(t, decision.EcoValue)
			}
		})
	}
}

// Charge overrule always yields a positive eco value
func TestOverruleChargeForcesMinimumEco(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Overrule = domain.OVERRULE_CHARGE
	input.Production = 2340 // fromBattery approximately 0
	input.Consumption = 2340
	input.PeakDemand = 2600
	input.Slicer = 10

	decision := testLogic().Compute(input)

	assert.Equal(domain.MODE_ECO_CHARGE, decision.DesiredMode)
	if assert.NotNil(decision.EcoValue) {
		assert.GreaterOrEqual(*decision.EcoValue, 1)
	}
}

func TestBuildControlResult(t *testing.T) {

	assert := assert.New(t)

	input := baseInput()
	input.Production = 500
	input.Consumption = 2000
	input.BatteryPct = 40
	input.BatteryLowest = 50
	input.PeakDemand = 2000
	input.Slicer = 10
	input.CurrentFromNet = 1000

	decision := testLogic().Compute(input)
	result := BuildControlResult(input, decision, input.MaxChargePowerWatt, input.MaxDischargePowerWatt)

	assert.Equal(domain.CALCULATED_MODE_CHARGE, result.StatusState)
	assert.Equal(50.0, result.LowestMinState)
	assert.Equal("%", result.LowestMinAttributes["unit_of_measurement"])
	assert.Equal("measurement", result.LowestMinAttributes["state_class"])

	attrs := result.StatusAttributes
	assert.Equal(true, attrs["oCharge mode"])
	assert.Equal(domain.MODE_ECO_CHARGE, attrs["oFinal mode"])
	assert.Equal(decision.AmountCharge, attrs["oInverter Charge/Discharge %"])
	assert.Equal(5000, attrs["iMax charge power (W)"])
	assert.Equal(4300, attrs["iMax discharge power (W)"])
	assert.Equal(domain.OVERRULE_AUTOMATIC, attrs["iInverter overrule operating mode"])
}
