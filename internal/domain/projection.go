package domain

// SavingsProjection compares the current annual energy cost of a dwelling
// with what it would cost at a target DPE class, in euros per year.
type SavingsProjection struct {
	TargetClass      string  `json:"classe_cible"`
	CurrentCost      float64 `json:"conso_actuel_annuel"`
	ProjectedMin     float64 `json:"conso_prev_min_annuel"`
	ProjectedAverage float64 `json:"conso_prev_moyenne_annuel"`
	ProjectedMax     float64 `json:"conso_prev_max_annuel"`
	SavingsMin       float64 `json:"economies_annuelles_min"`
	SavingsAverage   float64 `json:"economies_annuelles_moyenne"`
	SavingsMax       float64 `json:"economies_annuelles_max"`
}

// ProjectSavings projects the annual cost at the consumption band of ref.
// Current cost uses the same inputs as IRE; projected cost replaces the
// per-m² consumption with the band's min, average and max. Savings are
// current minus projected, so a dwelling already better than the band gets
// negative savings. Returns nil when consumption, surface or cost is missing.
func ProjectSavings(d DiagnosticRecord, costPerKwh float64, ref ClassConsumption) *SavingsProjection {
	current := ComputeIRE(d, &costPerKwh)
	if current == nil {
		return nil
	}
	surface := *d.UnitLivingSurface

	p := &SavingsProjection{
		TargetClass:      ref.Class,
		CurrentCost:      *current,
		ProjectedMin:     ref.Min * costPerKwh * surface,
		ProjectedAverage: ref.Average * costPerKwh * surface,
		ProjectedMax:     ref.Max * costPerKwh * surface,
	}
	p.SavingsMin = p.CurrentCost - p.ProjectedMin
	p.SavingsAverage = p.CurrentCost - p.ProjectedAverage
	p.SavingsMax = p.CurrentCost - p.ProjectedMax
	return p
}
