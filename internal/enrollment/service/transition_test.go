package service

import (
	"github.com/google/uuid"

	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/variants"
	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
)

func (s *ServiceSuite) submit(e *models.Enrollment) {
	_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestFullLifecycle() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)

	s.submit(e)
	got, err := s.svc.Get(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal(models.StateSent, got.State)
	s.Equal("Commune de Clamart", got.OrganizationName)

	result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.admin, models.TransitionRequest{})
	s.Require().NoError(err)
	s.Equal(models.StateValidated, result.Enrollment.State)
	s.Empty(result.Warnings)

	result, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventRequestTechnicalInputs, s.admin, models.TransitionRequest{})
	s.Require().NoError(err)
	s.Equal(models.StateTechnicalInputs, result.Enrollment.State)

	result, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventDeploy, s.admin, models.TransitionRequest{})
	s.Require().NoError(err)
	s.Equal(models.StateDeployed, result.Enrollment.State)

	// Exactly one audit event per committed transition, in order.
	trail, err := s.svc.Trail(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 4)
	s.Equal(string(models.EventSubmit), trail[0].Name)
	s.Equal(string(models.EventValidate), trail[1].Name)
	s.Equal(string(models.EventRequestTechnicalInputs), trail[2].Name)
	s.Equal(string(models.EventDeploy), trail[3].Name)

	s.Equal([]string{
		variants.JobEnrollmentSubmitted,
		variants.JobTechnicalInputsRequested,
		variants.JobEnrollmentDeployed,
	}, s.queue.kinds())
}

func (s *ServiceSuite) TestTokenRegistrationOnValidate() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)
	s.submit(e)

	result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.admin, models.TransitionRequest{})
	s.Require().NoError(err)

	s.Equal(1, s.tokens.calls)
	s.Equal("9001", result.Enrollment.LinkedTokenManagerID)

	reg := s.tokens.lastReg
	s.Equal("Commune de Clamart - "+e.ID.String(), reg.Name)
	s.Equal("tech@clamart.fr", reg.TechnicalContactEmail)
	s.Equal("metier@clamart.fr", reg.FunctionnalContactEmail)
	s.Equal(s.admin.Email, reg.AuthorEmail)
	s.Equal(e.ID.String(), reg.DataPassID)
	s.Equal([]string{"dgfip_avis_imposition"}, reg.Scopes)

	// The identifier is durable, not just on the returned copy.
	stored, err := s.svc.Get(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal("9001", stored.LinkedTokenManagerID)
}

func (s *ServiceSuite) TestMandatorySideEffectFailure() {
	s.grantAdmin(id.VariantDGFIP)
	e := s.createComplete(id.VariantDGFIP)
	s.submit(e)
	s.tokens.fail = true

	result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.admin, models.TransitionRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSideEffect))

	// The state change is committed and returned alongside the error; it is
	// never rolled back.
	s.Require().NotNil(result)
	s.Equal(models.StateValidated, result.Enrollment.State)

	stored, err := s.svc.Get(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal(models.StateValidated, stored.State)
	s.Empty(stored.LinkedTokenManagerID)

	trail, err := s.svc.Trail(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Len(trail, 2)
}

func (s *ServiceSuite) TestOptionalSideEffectFailure() {
	e := s.createComplete(id.VariantAPIParticulier)
	s.queue.fail = true

	result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
	s.Require().NoError(err)
	s.Equal(models.StateSent, result.Enrollment.State)
	s.Require().Len(result.Warnings, 1)
	s.Contains(result.Warnings[0], "enqueue_job")
}

func (s *ServiceSuite) TestAuthorization() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)

	s.Run("admin may not submit", func() {
		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.admin, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("stranger may not submit", func() {
		stranger := models.Actor{ID: id.UserID(uuid.New()), EmailVerified: true}
		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, stranger, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("applicant may not validate", func() {
		s.submit(e)
		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin of another variant is a stranger here", func() {
		otherAdmin := models.Actor{ID: id.UserID(uuid.New()), EmailVerified: true}
		role, object := "provider_admin", id.VariantDGFIP.String()
		s.Require().NoError(s.roles.Grant(s.ctx, role, otherAdmin.ID, object))

		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, otherAdmin, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestValidationGate() {
	s.Run("incomplete draft cannot be submitted", func() {
		e, err := s.svc.Create(s.ctx, s.applicant, CreateRequest{
			Variant: id.VariantAPIParticulier.String(),
			Title:   "Dossier incomplet",
			SIRET:   "13002526500013",
		})
		s.Require().NoError(err)

		_, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		fields := dErrors.FieldsOf(err)
		s.Contains(fields, "contacts")
		s.Contains(fields, "terms_accepted")

		// A rejected attempt leaves no trace: state, trail and queue are
		// untouched.
		stored, err := s.svc.Get(s.ctx, e.ID, s.applicant.ID)
		s.Require().NoError(err)
		s.Equal(models.StatePending, stored.State)
		trail, err := s.svc.Trail(s.ctx, e.ID, s.applicant.ID)
		s.Require().NoError(err)
		s.Empty(trail)
		s.Empty(s.queue.jobs)
	})

	s.Run("every missing contact kind is reported", func() {
		e, err := s.svc.Create(s.ctx, s.applicant, CreateRequest{
			Variant:       id.VariantAPIParticulier.String(),
			Title:         "Dossier sans contacts",
			Description:   "Verification des ressources des demandeurs",
			SIRET:         "13002526500013",
			TermsAccepted: true,
			LegalBasis:    "CGCT art. L123-5",
		})
		s.Require().NoError(err)

		_, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		// All three missing kinds must surface, not just the first.
		contacts := dErrors.FieldsOf(err)["contacts"]
		for _, kind := range []models.ContactKind{
			models.ContactDPO,
			models.ContactTechnique,
			models.ContactResponsableTraitement,
		} {
			s.Contains(contacts, string(kind))
		}
	})

	s.Run("abstract draft can never leave pending", func() {
		e, err := s.svc.Create(s.ctx, s.applicant, CreateRequest{
			Title:         "Demande sans fournisseur",
			SIRET:         "13002526500013",
			TermsAccepted: true,
		})
		s.Require().NoError(err)

		_, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.FieldsOf(err), "variant")
	})

	s.Run("unverified email blocks submission", func() {
		e := s.createComplete(id.VariantAPIParticulier)
		unverified := s.applicant
		unverified.EmailVerified = false

		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, unverified, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.FieldsOf(err), "email")
	})

	s.Run("unknown identifier surfaces as a field violation", func() {
		e := s.createComplete(id.VariantAPIParticulier)
		siret := "00000000000000"
		_, err := s.svc.UpdateDraft(s.ctx, e.ID, s.applicant, UpdateRequest{SIRET: &siret})
		s.Require().NoError(err)

		_, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(dErrors.FieldsOf(err), "organization")
	})
}

func (s *ServiceSuite) TestInvalidTransitions() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)

	s.Run("no edge from the current state", func() {
		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.admin, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("refusal is terminal", func() {
		s.submit(e)
		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventRefuse, s.admin, models.TransitionRequest{Comment: "hors perimetre"})
		s.Require().NoError(err)

		_, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventSubmit, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("unknown enrollment", func() {
		_, err := s.svc.AttemptTransition(s.ctx, id.EnrollmentID(uuid.New()), models.EventSubmit, s.applicant, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRequestChangesRoundTrip() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)
	s.submit(e)

	result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventRequestChanges, s.admin, models.TransitionRequest{Comment: "precisez la base legale"})
	s.Require().NoError(err)
	s.Equal(models.StatePending, result.Enrollment.State)
	s.True(result.Enrollment.Editable())

	// The comment travels with the audit event.
	trail, err := s.svc.Trail(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal("precisez la base legale", trail[1].Comment)

	// The applicant fixes the draft and resubmits.
	basis := "Deliberation municipale 2024-12"
	_, err = s.svc.UpdateDraft(s.ctx, e.ID, s.applicant, UpdateRequest{LegalBasis: &basis})
	s.Require().NoError(err)
	s.submit(e)

	stored, err := s.svc.Get(s.ctx, e.ID, s.applicant.ID)
	s.Require().NoError(err)
	s.Equal(models.StateSent, stored.State)
}

func (s *ServiceSuite) TestLoop() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)
	s.submit(e)

	s.Run("legal for either party, state unchanged", func() {
		result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventLoop, s.applicant, models.TransitionRequest{})
		s.Require().NoError(err)
		s.Equal(models.StateSent, result.Enrollment.State)

		result, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventLoop, s.admin, models.TransitionRequest{})
		s.Require().NoError(err)
		s.Equal(models.StateSent, result.Enrollment.State)
	})

	s.Run("audits every repetition", func() {
		trail, err := s.svc.Trail(s.ctx, e.ID, s.applicant.ID)
		s.Require().NoError(err)
		var loops int
		for _, event := range trail {
			if event.Name == string(models.EventLoop) {
				loops++
			}
		}
		s.Equal(2, loops)
	})

	s.Run("skips validation entirely", func() {
		// Strip the draft down so the sent-gate would fail if it ran.
		incomplete, err := s.svc.Create(s.ctx, s.applicant, CreateRequest{Title: "Brouillon"})
		s.Require().NoError(err)

		result, err := s.svc.AttemptTransition(s.ctx, incomplete.ID, models.EventLoop, s.applicant, models.TransitionRequest{})
		s.Require().NoError(err)
		s.Equal(models.StatePending, result.Enrollment.State)
	})

	s.Run("still denied to strangers", func() {
		stranger := models.Actor{ID: id.UserID(uuid.New()), EmailVerified: true}
		_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventLoop, stranger, models.TransitionRequest{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestShortWorkflow() {
	s.grantAdmin(id.VariantFranceConnect)
	e, err := s.svc.Create(s.ctx, s.applicant, CreateRequest{
		Variant:     id.VariantFranceConnect.String(),
		Title:       "Bouton FranceConnect",
		Description: "Connexion des usagers au portail famille",
		SIRET:       "13002526500013",
		Contacts: models.Contacts{
			{Kind: models.ContactTechnique, Name: "B. Robert", Email: "tech@clamart.fr"},
		},
		TermsAccepted: true,
	})
	s.Require().NoError(err)
	s.submit(e)

	result, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.admin, models.TransitionRequest{})
	s.Require().NoError(err)
	s.Equal(models.StateValidated, result.Enrollment.State)
	s.Zero(s.tokens.calls)

	_, err = s.svc.AttemptTransition(s.ctx, e.ID, models.EventRequestTechnicalInputs, s.admin, models.TransitionRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestRoleGrantOnValidate() {
	s.grantAdmin(id.VariantAPIEntreprise)
	e := s.createComplete(id.VariantAPIEntreprise)
	s.submit(e)

	_, err := s.svc.AttemptTransition(s.ctx, e.ID, models.EventValidate, s.admin, models.TransitionRequest{})
	s.Require().NoError(err)
	s.Zero(s.tokens.calls)

	granted, err := s.roles.HasRole(s.ctx, "validater", s.admin.ID, e.ID.String())
	s.Require().NoError(err)
	s.True(granted)
}
