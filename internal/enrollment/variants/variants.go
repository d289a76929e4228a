// Package variants declares, per data provider, the validation rules and side
// effects the lifecycle engine applies. The registry is static: adding a
// provider is a table edit here plus a constant in pkg/domain, with no dynamic
// discovery involved.
package variants

import (
	"datapass/internal/enrollment/models"
	id "datapass/pkg/domain"
)

// FieldError is a single validation violation, addressed to the field the
// caller should surface it on.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rule is a pure completeness predicate. It inspects the enrollment and the
// acting user and reports violations; it must not perform I/O. Anything that
// needs a collaborator (company lookup) is resolved onto the aggregate before
// rules run.
type Rule func(e *models.Enrollment, actor models.Actor) []FieldError

// EffectKind classifies the single side effect mapped to a (variant, event)
// pair.
type EffectKind string

const (
	// EffectGrantRole grants the acting user the named role on the
	// enrollment. Granting twice is a no-op.
	EffectGrantRole EffectKind = "grant_role"
	// EffectEnqueueJob enqueues a variant-specific follow-up job.
	EffectEnqueueJob EffectKind = "enqueue_job"
	// EffectRegisterToken registers the enrollment with the external token
	// manager and persists the returned identifier.
	EffectRegisterToken EffectKind = "register_token"
)

// Effect is the declared side effect for one event of one variant. Mandatory
// effects surface their failure as an error even though the state change has
// already been committed; optional ones degrade to a warning.
type Effect struct {
	Kind      EffectKind
	Role      string
	JobKind   string
	Mandatory bool
}

// Profile bundles everything the engine needs to know about one provider.
type Profile struct {
	Variant id.Variant

	// ShortWorkflow providers stop at validated: the technical-inputs and
	// deploy legs of the graph are not offered.
	ShortWorkflow bool

	// Rules are keyed by target state and run in addition to the
	// variant-independent common rules.
	Rules map[models.State][]Rule

	// Effects maps an event to its single declared side effect. Absence of an
	// entry is a legitimate outcome, not a fault.
	Effects map[models.Event]Effect
}

// EffectFor looks up the side effect declared for an event. The second return
// is false when none is declared.
func (p Profile) EffectFor(event models.Event) (Effect, bool) {
	e, ok := p.Effects[event]
	return e, ok
}

// registry is populated at process start from the declarations in this
// package. Keyed by variant tag rather than subtype dispatch so the engine
// stays a lookup away from any provider's behavior.
var registry = map[id.Variant]Profile{
	id.VariantAPIParticulier: apiParticulier,
	id.VariantAPIEntreprise:  apiEntreprise,
	id.VariantDGFIP:          dgfip,
	id.VariantFranceConnect:  franceConnect,
}

// Get returns the profile for a variant. Abstract or unknown variants have no
// profile.
func Get(v id.Variant) (Profile, bool) {
	p, ok := registry[v]
	return p, ok
}

// All enumerates every registered profile, in the registration order of
// pkg/domain.
func All() []Profile {
	out := make([]Profile, 0, len(registry))
	for _, v := range id.Variants() {
		if p, ok := registry[v]; ok {
			out = append(out, p)
		}
	}
	return out
}
