package service

import (
	"context"

	"datapass/internal/enrollment/models"
	"datapass/internal/roles"
	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
)

// RoleOf resolves which side of the desk a user sits on for one enrollment.
// Applicant wins over provider admin when a user somehow holds both; the
// engine never lets one user act on both sides of the same record.
func (s *Service) RoleOf(ctx context.Context, e *models.Enrollment, userID id.UserID) (models.Party, error) {
	if userID.IsNil() {
		return models.PartyNone, nil
	}
	if e.ApplicantID == userID {
		return models.PartyApplicant, nil
	}
	ok, err := s.roles.HasRole(ctx, roles.RoleApplicant, userID, e.ID.String())
	if err != nil {
		return models.PartyNone, dErrors.Wrap(err, dErrors.CodeInternal, "looking up applicant role")
	}
	if ok {
		return models.PartyApplicant, nil
	}

	// An admin grant on the abstract variant covers every provider.
	for _, variant := range []id.Variant{e.Variant, id.VariantAbstract} {
		role, object := roles.ProviderAdminRole(variant)
		ok, err = s.roles.HasRole(ctx, role, userID, object)
		if err != nil {
			return models.PartyNone, dErrors.Wrap(err, dErrors.CodeInternal, "looking up provider admin role")
		}
		if ok {
			return models.PartyProviderAdmin, nil
		}
	}
	return models.PartyNone, nil
}

// OtherParty names the users on the opposite side of an enrollment, which is
// who a notification about a transition should reach. For an applicant that is
// every admin of the enrollment's variant; for an admin it is the applicant.
func (s *Service) OtherParty(ctx context.Context, e *models.Enrollment, party models.Party) ([]id.UserID, error) {
	switch party {
	case models.PartyApplicant:
		role, object := roles.ProviderAdminRole(e.Variant)
		holders, err := s.roles.HoldersOf(ctx, role, object)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing provider admins")
		}
		return holders, nil
	case models.PartyProviderAdmin:
		return []id.UserID{e.ApplicantID}, nil
	default:
		return nil, nil
	}
}

// ListForUser returns every enrollment the user may see: their own, plus the
// full variant backlog for each variant they administer. An admin of the
// abstract variant oversees every registered provider.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Enrollment, error) {
	own, err := s.enrollments.ListByApplicant(ctx, userID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	seen := make(map[id.EnrollmentID]struct{}, len(own))
	out := make([]*models.Enrollment, 0, len(own))
	for _, e := range own {
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}

	for _, variant := range s.administeredVariants(ctx, userID) {
		list, err := s.enrollments.ListByVariant(ctx, variant)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		for _, e := range list {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out, nil
}

// administeredVariants enumerates the variants the user holds an admin grant
// on, expanding an abstract-variant grant to every registered provider. Lookup
// failures drop that variant from the view rather than failing the listing.
func (s *Service) administeredVariants(ctx context.Context, userID id.UserID) []id.Variant {
	role, object := roles.ProviderAdminRole(id.VariantAbstract)
	if ok, err := s.roles.HasRole(ctx, role, userID, object); err == nil && ok {
		return id.Variants()
	}

	var out []id.Variant
	for _, variant := range id.Variants() {
		role, object := roles.ProviderAdminRole(variant)
		ok, err := s.roles.HasRole(ctx, role, userID, object)
		if err != nil {
			s.logger.WarnContext(ctx, "admin role lookup failed",
				"variant", variant.String(), "error", err)
			continue
		}
		if ok {
			out = append(out, variant)
		}
	}
	return out
}
