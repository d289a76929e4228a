package domain

import dErrors "datapass/pkg/domain-errors"

// Variant identifies which data provider an enrollment targets. It selects the
// validation rule set and the side-effect table applied by the lifecycle
// engine.
//
// Invariant: a persisted, actionable enrollment always carries a registered
// variant. The zero value (VariantAbstract) may exist transiently on a draft
// but can never pass validation out of the initial state.
type Variant string

const (
	// VariantAbstract marks a draft with no provider selected yet.
	VariantAbstract Variant = ""

	VariantAPIParticulier Variant = "api_particulier"
	VariantAPIEntreprise  Variant = "api_entreprise"
	VariantDGFIP          Variant = "dgfip"
	VariantFranceConnect  Variant = "franceconnect"
)

// registeredVariants is the single source of truth for known providers.
// Registration is static: adding a provider means adding a constant here and a
// profile in internal/enrollment/variants, nothing else.
var registeredVariants = []Variant{
	VariantAPIParticulier,
	VariantAPIEntreprise,
	VariantDGFIP,
	VariantFranceConnect,
}

// ParseVariant constructs a Variant from external input.
// The empty string parses to VariantAbstract so drafts can be created before a
// provider is chosen.
func ParseVariant(s string) (Variant, error) {
	if s == "" {
		return VariantAbstract, nil
	}
	v := Variant(s)
	if !v.IsRegistered() {
		return VariantAbstract, dErrors.New(dErrors.CodeInvalidInput, "unknown variant: "+s)
	}
	return v, nil
}

// IsRegistered reports whether the variant names a known provider.
func (v Variant) IsRegistered() bool {
	for _, known := range registeredVariants {
		if v == known {
			return true
		}
	}
	return false
}

// IsAbstract reports whether no provider has been selected.
func (v Variant) IsAbstract() bool { return v == VariantAbstract }

func (v Variant) String() string { return string(v) }

// Variants enumerates every registered provider. Cross-variant queries (the
// abstract fan-out in the party resolver) iterate this list rather than
// assuming a fixed set.
func Variants() []Variant {
	out := make([]Variant, len(registeredVariants))
	copy(out, registeredVariants)
	return out
}
