package service

import (
	"math"

	"peakshaver/internal/config"
	"peakshaver/internal/core/domain"
	"peakshaver/internal/core/port"

	"go.uber.org/zap"
)

const (
	// substituted for total net power when production exceeds consumption
	NEGATIVE_NET_FALLBACK_W = 1200
	// floor applied to the peak demand reading
	MIN_PEAK_DEMAND_W = 2600
	// cap applied to the battery slicer reading
	MAX_SLICER = 10
	// discharge percentage is biased up to keep the net draw under the peak
	DISCHARGE_PCT_OFFSET = 3

	DOD_ON_GRID_PCT = 90
)

type DefaultPeakShavingLogic struct {
	Logger *zap.Logger
}

func NewPeakShavingLogic(logger *zap.Logger) *DefaultPeakShavingLogic {
	return &DefaultPeakShavingLogic{Logger: logger}
}

func (l *DefaultPeakShavingLogic) Compute(input domain.ControlInput) domain.ControlDecision {

	maxChargeW := input.MaxChargePowerWatt
	if maxChargeW <= 0 {
		maxChargeW = config.DEFAULT_MAX_CHARGE_POWER_W
	}
	maxDischargeW := input.MaxDischargePowerWatt
	if maxDischargeW <= 0 {
		maxDischargeW = config.DEFAULT_MAX_DISCHARGE_POWER_W
	}

	surplusPower := input.Production - input.Consumption + input.CarCharge
	surplus := input.Production > input.Consumption && input.Consumption > 0

	aboveTarget := input.BatteryPct > input.BatteryLowest
	manualModeFlag := surplus || aboveTarget

	totalNet := input.Consumption - input.Production
	if totalNet < 0 {
		l.Logger.Debug("total net < 0, adjusting", zap.Float64("fallback", NEGATIVE_NET_FALLBACK_W))
		totalNet = NEGATIVE_NET_FALLBACK_W
	}

	peak := math.Max(input.PeakDemand, MIN_PEAK_DEMAND_W)
	slicer := math.Min(input.Slicer, MAX_SLICER)

	fromNet := peak * (100 - slicer) / 100
	fromBattery := totalNet - fromNet

	amountCharge := abs(int(fromBattery / maxChargeW * 100))
	amountDischarge := abs(int(fromBattery/maxDischargeW*100)) + DISCHARGE_PCT_OFFSET

	charge := fromBattery < 0
	if input.CurrentFromNet > peak {
		l.Logger.Debug("net draw exceeds peak, disabling charge")
		charge = false
	}

	var calculatedMode string
	switch {
	case manualModeFlag:
		calculatedMode = domain.CALCULATED_MODE_GENERAL
	case charge:
		calculatedMode = domain.CALCULATED_MODE_CHARGE
	default:
		calculatedMode = domain.CALCULATED_MODE_DISCHARGE
	}

	ecoAmount := amountDischarge
	if charge {
		ecoAmount = amountCharge
	}

	desiredMode := domain.MODE_GENERAL
	var ecoValue *int
	switch input.Overrule {
	case domain.OVERRULE_AUTOMATIC:
		if calculatedMode == domain.CALCULATED_MODE_CHARGE {
			desiredMode = domain.MODE_ECO_CHARGE
			ecoValue = &ecoAmount
		}
	case domain.OVERRULE_GENERAL:
	case domain.OVERRULE_CHARGE:
		desiredMode = domain.MODE_ECO_CHARGE
		forced := max(1, ecoAmount)
		ecoValue = &forced
	case domain.OVERRULE_DISCHARGE:
		// eco_discharge disabled, fall through to general
		l.Logger.Debug("overrule Discharge requested, using general")
	default:
		l.Logger.Debug("unknown overrule option, using general", zap.String("overrule", input.Overrule))
	}

	return domain.ControlDecision{
		CalculatedMode:  calculatedMode,
		DesiredMode:     desiredMode,
		EcoValue:        ecoValue,
		SurplusPower:    surplusPower,
		Surplus:         surplus,
		AboveTarget:     aboveTarget,
		TotalNet:        totalNet,
		Peak:            peak,
		Slicer:          slicer,
		FromNet:         fromNet,
		FromBattery:     fromBattery,
		AmountCharge:    amountCharge,
		AmountDischarge: amountDischarge,
		Charge:          charge,
	}
}

// BuildControlResult assembles the result record for the status sensors.
// Attribute keys are kept exactly as the sensors historically exposed them.
func BuildControlResult(input domain.ControlInput, decision domain.ControlDecision,
	maxChargeW, maxDischargeW float64) domain.ControlResult {

	ecoWritten := 0
	if decision.EcoValue != nil {
		ecoWritten = *decision.EcoValue
	}

	statusAttributes := map[string]any{
		"oBattery SOC Target %":             input.BatteryLowest,
		"oSurplus":                          decision.Surplus,
		"oAbove Target":                     decision.AboveTarget,
		"oFrom net":                         decision.FromNet,
		"oFrom battery":                     decision.FromBattery,
		"oAmount charge":                    decision.AmountCharge,
		"oAmount discharge":                 decision.AmountDischarge,
		"oCalculated mode":                  decision.CalculatedMode,
		"oFinal mode":                       decision.DesiredMode,
		"oTotal netto":                      decision.TotalNet,
		"oSurplus power":                    decision.SurplusPower,
		"oBattery percentage":               input.BatteryPct,
		"oBattery/Car Balance":              decision.Slicer,
		"oInverter Charge/Discharge %":      ecoWritten,
		"oCharge mode":                      decision.Charge,
		"iInverter overrule operating mode": input.Overrule,
		"iMax charge power (W)":             int(maxChargeW),
		"iMax discharge power (W)":          int(maxDischargeW),
	}

	return domain.ControlResult{
		StatusState:      decision.CalculatedMode,
		StatusAttributes: statusAttributes,
		LowestMinState:   input.BatteryLowest,
		LowestMinAttributes: map[string]any{
			"unit_of_measurement": "%",
			"state_class":         "measurement",
		},
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ensure interface compliance
var _ port.PeakShavingLogic = (*DefaultPeakShavingLogic)(nil)
