package service

import (
	"github.com/google/uuid"

	"datapass/internal/enrollment/models"
	"datapass/internal/roles"
	id "datapass/pkg/domain"
)

func (s *ServiceSuite) TestRoleOf() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)

	s.Run("applicant resolves by ownership", func() {
		party, err := s.svc.RoleOf(s.ctx, e, s.applicant.ID)
		s.Require().NoError(err)
		s.Equal(models.PartyApplicant, party)
	})

	s.Run("provider admin resolves by variant grant", func() {
		party, err := s.svc.RoleOf(s.ctx, e, s.admin.ID)
		s.Require().NoError(err)
		s.Equal(models.PartyProviderAdmin, party)
	})

	s.Run("stranger resolves to none", func() {
		party, err := s.svc.RoleOf(s.ctx, e, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.Equal(models.PartyNone, party)
	})

	s.Run("nil user resolves to none", func() {
		party, err := s.svc.RoleOf(s.ctx, e, id.UserID{})
		s.Require().NoError(err)
		s.Equal(models.PartyNone, party)
	})

	s.Run("granted applicant role counts as applicant", func() {
		delegate := id.UserID(uuid.New())
		s.Require().NoError(s.roles.Grant(s.ctx, roles.RoleApplicant, delegate, e.ID.String()))
		party, err := s.svc.RoleOf(s.ctx, e, delegate)
		s.Require().NoError(err)
		s.Equal(models.PartyApplicant, party)
	})
}

func (s *ServiceSuite) TestOtherParty() {
	s.grantAdmin(id.VariantAPIParticulier)
	e := s.createComplete(id.VariantAPIParticulier)

	s.Run("applicant's counterpart is the admin pool", func() {
		others, err := s.svc.OtherParty(s.ctx, e, models.PartyApplicant)
		s.Require().NoError(err)
		s.Equal([]id.UserID{s.admin.ID}, others)
	})

	s.Run("admin's counterpart is the applicant", func() {
		others, err := s.svc.OtherParty(s.ctx, e, models.PartyProviderAdmin)
		s.Require().NoError(err)
		s.Equal([]id.UserID{s.applicant.ID}, others)
	})

	s.Run("none has no counterpart", func() {
		others, err := s.svc.OtherParty(s.ctx, e, models.PartyNone)
		s.Require().NoError(err)
		s.Nil(others)
	})
}

func (s *ServiceSuite) TestListForUser() {
	s.grantAdmin(id.VariantAPIParticulier)
	mine := s.createComplete(id.VariantAPIParticulier)
	other := s.createOwnedBy(id.VariantAPIParticulier, id.UserID(uuid.New()))
	foreign := s.createOwnedBy(id.VariantDGFIP, id.UserID(uuid.New()))

	s.Run("applicant sees only their own", func() {
		list, err := s.svc.ListForUser(s.ctx, s.applicant.ID)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(mine.ID, list[0].ID)
	})

	s.Run("variant admin sees the variant backlog", func() {
		list, err := s.svc.ListForUser(s.ctx, s.admin.ID)
		s.Require().NoError(err)
		s.ElementsMatch([]id.EnrollmentID{mine.ID, other.ID}, idsOf(list))
	})

	s.Run("abstract admin sees every variant", func() {
		super := id.UserID(uuid.New())
		role, object := roles.ProviderAdminRole(id.VariantAbstract)
		s.Require().NoError(s.roles.Grant(s.ctx, role, super, object))

		list, err := s.svc.ListForUser(s.ctx, super)
		s.Require().NoError(err)
		s.ElementsMatch([]id.EnrollmentID{mine.ID, other.ID, foreign.ID}, idsOf(list))
	})

	s.Run("admin who also applied sees no duplicates", func() {
		adminOwned := s.createOwnedBy(id.VariantAPIParticulier, s.admin.ID)
		list, err := s.svc.ListForUser(s.ctx, s.admin.ID)
		s.Require().NoError(err)
		s.ElementsMatch([]id.EnrollmentID{mine.ID, other.ID, adminOwned.ID}, idsOf(list))
	})
}

// createOwnedBy seeds a draft for an arbitrary applicant.
func (s *ServiceSuite) createOwnedBy(v id.Variant, owner id.UserID) *models.Enrollment {
	e, err := s.svc.Create(s.ctx, models.Actor{ID: owner, EmailVerified: true}, CreateRequest{
		Variant: v.String(),
		Title:   "Autre demande",
		SIRET:   "55203253400646",
	})
	s.Require().NoError(err)
	return e
}

func idsOf(list []*models.Enrollment) []id.EnrollmentID {
	out := make([]id.EnrollmentID, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}
