// Package authz holds the single ownership predicate used by every route that
// mutates or reads a principal-owned resource. Routes compose as
// JWT middleware -> (optional role middleware) -> resource lookup -> CanMutate.
package authz

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/college-clubs/backend/internal/models"
)

// ContextPrincipal is the gin context key under which the JWT middleware
// stores the resolved Principal.
const ContextPrincipal = "principal"

// Principal is the authenticated actor resolved from a verified token.
type Principal struct {
	ID    uuid.UUID
	Email string
	Role  models.Role
}

// IsSuperAdmin reports whether the principal holds the super_admin role.
func (p Principal) IsSuperAdmin() bool {
	return p.Role == models.RoleSuperAdmin
}

// CanMutate reports whether p may mutate or delete a resource owned by ownerID.
// True iff p is the super admin or p owns the resource.
func CanMutate(ownerID uuid.UUID, p Principal) bool {
	return p.IsSuperAdmin() || ownerID == p.ID
}

// CanReadOwned reports whether p may read an owner-scoped resource such as a
// club's application list. Same predicate as mutation: owner or super admin.
func CanReadOwned(ownerID uuid.UUID, p Principal) bool {
	return CanMutate(ownerID, p)
}

// Set stores the principal in the request context.
func Set(c *gin.Context, p Principal) {
	c.Set(ContextPrincipal, p)
}

// FromContext returns the principal placed by the JWT middleware.
// ok is false when the request never passed authentication.
func FromContext(c *gin.Context) (Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
