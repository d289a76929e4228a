package variants

import (
	"datapass/internal/enrollment/models"
	id "datapass/pkg/domain"
)

// Job kinds dispatched to the notification queue. Consumers key off these.
const (
	JobEnrollmentSubmitted      = "enrollment_submitted"
	JobEnrollmentRefused        = "enrollment_refused"
	JobChangesRequested         = "enrollment_changes_requested"
	JobTechnicalInputsRequested = "technical_inputs_requested"
	JobEnrollmentDeployed       = "enrollment_deployed"
)

// fullReviewRules is the sent-gate shared by the providers that run the
// complete review workflow: three named contacts, a resolved legal name,
// accepted terms, a description, and a legal basis.
var fullReviewRules = []Rule{
	requireContacts(models.ContactDPO, models.ContactTechnique, models.ContactResponsableTraitement),
	ruleLegalName,
	ruleTermsAccepted,
	ruleDescription,
	ruleLegalBasis,
}

var apiParticulier = Profile{
	Variant: id.VariantAPIParticulier,
	Rules: map[models.State][]Rule{
		models.StateSent: fullReviewRules,
	},
	Effects: map[models.Event]Effect{
		models.EventSubmit:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentSubmitted},
		models.EventValidate:       {Kind: EffectRegisterToken, Mandatory: true},
		models.EventRefuse:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentRefused},
		models.EventRequestChanges: {Kind: EffectEnqueueJob, JobKind: JobChangesRequested},
		models.EventRequestTechnicalInputs: {
			Kind: EffectEnqueueJob, JobKind: JobTechnicalInputsRequested,
		},
		models.EventDeploy: {Kind: EffectEnqueueJob, JobKind: JobEnrollmentDeployed},
	},
}

var dgfip = Profile{
	Variant: id.VariantDGFIP,
	Rules: map[models.State][]Rule{
		models.StateSent: fullReviewRules,
	},
	Effects: map[models.Event]Effect{
		models.EventSubmit:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentSubmitted},
		models.EventValidate:       {Kind: EffectRegisterToken, Mandatory: true},
		models.EventRefuse:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentRefused},
		models.EventRequestChanges: {Kind: EffectEnqueueJob, JobKind: JobChangesRequested},
		models.EventRequestTechnicalInputs: {
			Kind: EffectEnqueueJob, JobKind: JobTechnicalInputsRequested,
		},
		models.EventDeploy: {Kind: EffectEnqueueJob, JobKind: JobEnrollmentDeployed},
	},
}

// api_entreprise reviews like the full-workflow providers but its token
// issuance is handled out of band, so validation only notifies.
var apiEntreprise = Profile{
	Variant: id.VariantAPIEntreprise,
	Rules: map[models.State][]Rule{
		models.StateSent: fullReviewRules,
	},
	Effects: map[models.Event]Effect{
		models.EventSubmit:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentSubmitted},
		models.EventValidate:       {Kind: EffectGrantRole, Role: "validater"},
		models.EventRefuse:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentRefused},
		models.EventRequestChanges: {Kind: EffectEnqueueJob, JobKind: JobChangesRequested},
		models.EventRequestTechnicalInputs: {
			Kind: EffectEnqueueJob, JobKind: JobTechnicalInputsRequested,
		},
		models.EventDeploy: {Kind: EffectEnqueueJob, JobKind: JobEnrollmentDeployed},
	},
}

// franceconnect runs the short workflow: validated is its terminal happy
// state, with a lighter sent-gate (no legal-basis requirement).
var franceConnect = Profile{
	Variant:       id.VariantFranceConnect,
	ShortWorkflow: true,
	Rules: map[models.State][]Rule{
		models.StateSent: {
			requireContacts(models.ContactTechnique),
			ruleLegalName,
			ruleTermsAccepted,
			ruleDescription,
		},
	},
	Effects: map[models.Event]Effect{
		models.EventSubmit:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentSubmitted},
		models.EventValidate:       {Kind: EffectGrantRole, Role: "validater"},
		models.EventRefuse:         {Kind: EffectEnqueueJob, JobKind: JobEnrollmentRefused},
		models.EventRequestChanges: {Kind: EffectEnqueueJob, JobKind: JobChangesRequested},
	},
}
