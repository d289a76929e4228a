package variants

import (
	"datapass/internal/enrollment/models"
)

// CommonRules apply to every variant for a given target state, before the
// variant's own rules.
func CommonRules(target models.State) []Rule {
	rules := []Rule{ruleTitle, ruleOrganization}
	if target == models.StateSent {
		rules = append(rules, ruleConcreteVariant, ruleVerifiedEmail)
	}
	return rules
}

// Validate runs the common rules and the variant profile's rules for the
// target state. An empty result is the only pass condition.
func Validate(e *models.Enrollment, actor models.Actor, target models.State) []FieldError {
	var violations []FieldError
	for _, rule := range CommonRules(target) {
		violations = append(violations, rule(e, actor)...)
	}
	if p, ok := Get(e.Variant); ok {
		for _, rule := range p.Rules[target] {
			violations = append(violations, rule(e, actor)...)
		}
	}
	return violations
}

func ruleTitle(e *models.Enrollment, _ models.Actor) []FieldError {
	if e.Title == "" {
		return []FieldError{{Field: "title", Message: "the procedure title is required"}}
	}
	return nil
}

func ruleOrganization(e *models.Enrollment, _ models.Actor) []FieldError {
	if e.SIRET == "" {
		return []FieldError{{Field: "siret", Message: "the organization identifier is required"}}
	}
	return nil
}

// ruleConcreteVariant keeps abstract drafts in the initial state: a request
// with no provider selected can never enter the review queue.
func ruleConcreteVariant(e *models.Enrollment, _ models.Actor) []FieldError {
	if e.Variant.IsAbstract() {
		return []FieldError{{Field: "variant", Message: "a data provider must be selected"}}
	}
	return nil
}

func ruleVerifiedEmail(_ *models.Enrollment, actor models.Actor) []FieldError {
	if !actor.EmailVerified {
		return []FieldError{{Field: "email", Message: "the account email must be verified before submitting"}}
	}
	return nil
}

func ruleDescription(e *models.Enrollment, _ models.Actor) []FieldError {
	if e.Description == "" {
		return []FieldError{{Field: "description", Message: "a description of the intended use is required"}}
	}
	return nil
}

func ruleTermsAccepted(e *models.Enrollment, _ models.Actor) []FieldError {
	if !e.TermsAccepted {
		return []FieldError{{Field: "terms_accepted", Message: "the terms of use must be accepted"}}
	}
	return nil
}

// ruleLegalName requires the organization's legal name to have been resolved
// from the national business identifier. The engine resolves it through the
// company-lookup collaborator before validation runs; an unresolvable
// identifier therefore surfaces here.
func ruleLegalName(e *models.Enrollment, _ models.Actor) []FieldError {
	if e.OrganizationName == "" {
		return []FieldError{{Field: "organization", Message: "the organization could not be resolved from its identifier"}}
	}
	return nil
}

// ruleLegalBasis accepts either a free-text reference or an attached
// legal-basis document.
func ruleLegalBasis(e *models.Enrollment, _ models.Actor) []FieldError {
	if e.LegalBasis == "" && !e.Documents.Has(models.DocumentLegalBasis) {
		return []FieldError{{Field: "legal_basis", Message: "a legal basis reference or document is required"}}
	}
	return nil
}

// requireContacts builds a rule demanding a complete contact (name and email)
// for each listed kind.
func requireContacts(kinds ...models.ContactKind) Rule {
	return func(e *models.Enrollment, _ models.Actor) []FieldError {
		var violations []FieldError
		for _, kind := range kinds {
			c, ok := e.Contacts.ByKind(kind)
			if !ok || !c.Complete() {
				violations = append(violations, FieldError{
					Field:   "contacts",
					Message: "the " + string(kind) + " contact requires a name and an email",
				})
			}
		}
		return violations
	}
}
