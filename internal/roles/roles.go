// Package roles is the role-store capability the lifecycle engine depends on.
// The engine only ever asks grant / has / holders questions; how grants are
// stored is an implementation concern behind the Store interface, which keeps
// the engine free of ambient global state and testable with a fake.
package roles

import (
	"context"

	id "datapass/pkg/domain"
)

// Role names used by the engine. Applicant is scoped to a single enrollment;
// provider-admin grants are scoped to a variant.
const (
	RoleApplicant = "applicant"
)

// ProviderAdminRole names the administrative role for a variant. Admin grants
// use the variant tag itself as the object.
func ProviderAdminRole(v id.Variant) (role, object string) {
	return "provider_admin", v.String()
}

// Store is the capability set the engine consumes. Grant is idempotent:
// granting an already-held role is a no-op, not an error.
type Store interface {
	Grant(ctx context.Context, role string, subject id.UserID, object string) error
	HasRole(ctx context.Context, role string, subject id.UserID, object string) (bool, error)
	HoldersOf(ctx context.Context, role string, object string) ([]id.UserID, error)
}
