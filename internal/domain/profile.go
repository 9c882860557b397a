package domain

// ============================================================
// Profile (consumed, not owned)
// ============================================================

// FeatureFlags are per-profile overrides. A nil field means "no override,
// fall back to the process-wide default".
type FeatureFlags struct {
	JourneyEnabled   *bool `json:"journey_enabled,omitempty"`
	TaxEngineEnabled *bool `json:"tax_engine_enabled,omitempty"`
}

// Profile carries the identity and flag values this backend consumes. How
// profiles are created or switched lives elsewhere.
type Profile struct {
	ID        string       `json:"id"`
	TaxRegime TaxRegime    `json:"tax_regime,omitempty"`
	Flags     FeatureFlags `json:"feature_flags,omitempty"`
}

// ResolvedFlags are the effective flag values after applying profile
// overrides on top of process-wide defaults.
type ResolvedFlags struct {
	JourneyEnabled   bool
	TaxEngineEnabled bool
}

// Resolve applies the profile's overrides to the given defaults. A
// profile-specific value, when present, wins.
func (p *Profile) Resolve(defaults ResolvedFlags) ResolvedFlags {
	out := defaults
	if p == nil {
		return out
	}
	if p.Flags.JourneyEnabled != nil {
		out.JourneyEnabled = *p.Flags.JourneyEnabled
	}
	if p.Flags.TaxEngineEnabled != nil {
		out.TaxEngineEnabled = *p.Flags.TaxEngineEnabled
	}
	return out
}
