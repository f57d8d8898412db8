package domain

const (
	MODE_GENERAL    = "general"
	MODE_ECO_CHARGE = "eco_charge"

	OVERRULE_AUTOMATIC = "Automatic"
	OVERRULE_GENERAL   = "General"
	OVERRULE_CHARGE    = "Charge"
	OVERRULE_DISCHARGE = "Discharge"

	CALCULATED_MODE_GENERAL   = "general"
	CALCULATED_MODE_CHARGE    = "Charge"
	CALCULATED_MODE_DISCHARGE = "Discharge"
)

// ControlInput is the full set of readings a control tick decides on.
// All power values are watts, percentages are 0-100.
type ControlInput struct {
	InverterMode string
	Overrule     string

	Production     float64
	CarCharge      float64
	Consumption    float64
	BatteryPct     float64
	CurrentFromNet float64
	BatteryLowest  float64
	PeakDemand     float64
	Slicer         float64

	MaxChargePowerWatt    float64
	MaxDischargePowerWatt float64
}

// ControlDecision is the outcome of the threshold arithmetic: the mode to
// select, the eco power to write (nil means no eco write), and every
// intermediate quantity for the status attributes.
type ControlDecision struct {
	CalculatedMode string
	DesiredMode    string
	EcoValue       *int

	SurplusPower    float64
	Surplus         bool
	AboveTarget     bool
	TotalNet        float64
	Peak            float64
	Slicer          float64
	FromNet         float64
	FromBattery     float64
	AmountCharge    int
	AmountDischarge int
	Charge          bool
}

// ControlResult is published after every successful tick and fully
// replaces the previous result. Absent until the first success.
type ControlResult struct {
	StatusState         string         `json:"status_state"`
	StatusAttributes    map[string]any `json:"status_attributes"`
	LowestMinState      float64        `json:"lowest_min_state"`
	LowestMinAttributes map[string]any `json:"lowest_min_attributes"`
}
