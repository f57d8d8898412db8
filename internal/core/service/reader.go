package service

import (
	"strings"

	"peakshaver/pkg/hass"

	"go.uber.org/zap"
)

// SensorReader reads numeric entity states with a previous-value cache:
// when an entity is missing, unavailable or unparseable, the last good
// reading is substituted (0.0 if there never was one). The cache is never
// pruned and is only touched from the controller's tick.
type SensorReader struct {
	previous map[string]float64
	verbose  bool
	logger   *zap.Logger
}

func NewSensorReader(verbose bool, logger *zap.Logger) *SensorReader {
	return &SensorReader{
		previous: make(map[string]float64),
		verbose:  verbose,
		logger:   logger,
	}
}

func (r *SensorReader) SetVerbose(verbose bool) {
	r.verbose = verbose
}

func (r *SensorReader) Float(states map[string]hass.State, entityId string) float64 {
	st, ok := states[entityId]
	if !ok || !st.Valid() {
		fallback := r.previous[entityId]
		r.vlog("invalid/unknown state, using fallback",
			zap.String("entity", entityId), zap.Float64("fallback", fallback))
		return fallback
	}
	value, err := st.Float()
	if err != nil {
		fallback := r.previous[entityId]
		r.vlog("could not parse float state, using fallback",
			zap.String("entity", entityId), zap.String("state", st.State), zap.Float64("fallback", fallback))
		return fallback
	}
	r.previous[entityId] = value
	return value
}

// Text returns the raw state string, trimmed, or "" when absent.
func (r *SensorReader) Text(states map[string]hass.State, entityId string) string {
	st, ok := states[entityId]
	if !ok {
		return ""
	}
	return strings.TrimSpace(st.State)
}

func (r *SensorReader) vlog(msg string, fields ...zap.Field) {
	if r.verbose {
		r.logger.Info(msg, fields...)
	}
}
