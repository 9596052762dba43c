package domain

import (
	"log/slog"
	"math"
)

// dpeScores maps a DPE label to its IPE weight.
var dpeScores = map[string]float64{
	"A": 1.0,
	"B": 1.5,
	"C": 2.0,
	"D": 2.5,
	"E": 3.0,
	"F": 3.5,
	"G": 4.0,
}

// DPEScore returns the IPE weight of a label and whether the label is known.
// Labels are matched exactly; "b" is not "B".
func DPEScore(label string) (float64, bool) {
	s, ok := dpeScores[label]
	return s, ok
}

// ComputeIRE returns consumption_per_m2 × unit living surface × cost per kWh,
// or nil when any of the three is missing, zero, or not finite.
func ComputeIRE(d DiagnosticRecord, costPerKwh *float64) *float64 {
	perM2, ok1 := nonZero(d.ConsumptionPerM2)
	surface, ok2 := nonZero(d.UnitLivingSurface)
	cost, ok3 := nonZero(costPerKwh)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return finite(perM2 * surface * cost)
}

// ComputeIPE returns dpe_score(label) × heating consumption ×
// consumption_per_m2 / 1000, or nil when the label is unknown or either
// consumption is missing or zero. The reason for a nil result is logged.
func ComputeIPE(d DiagnosticRecord, logger *slog.Logger) *float64 {
	if d.EnergyLabel == "" {
		logger.Debug("ipe skipped: missing DPE label", "ban_id", d.BANID)
		return nil
	}
	score, ok := DPEScore(d.EnergyLabel)
	if !ok {
		logger.Debug("ipe skipped: unknown DPE label", "ban_id", d.BANID, "label", d.EnergyLabel)
		return nil
	}
	heating, ok := nonZero(d.ConsumptionHeating)
	if !ok {
		logger.Debug("ipe skipped: missing heating consumption", "ban_id", d.BANID)
		return nil
	}
	perM2, ok := nonZero(d.ConsumptionPerM2)
	if !ok {
		logger.Debug("ipe skipped: missing consumption per m2", "ban_id", d.BANID)
		return nil
	}
	return finite(score * heating * perM2 / 1000)
}

// nonZero dereferences v when it is a finite number other than zero.
// Negative values pass through unchanged.
func nonZero(v *float64) (float64, bool) {
	if v == nil || *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
