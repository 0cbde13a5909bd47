package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated admin as seen by handlers. Hiding the gin
// context behind this interface keeps attribution fields (archivedBy,
// createdBy) testable without a fake HTTP stack.
type Identity interface {
	AdminID() uuid.UUID
	IsAuthenticated() bool
}

type identity struct {
	adminID       uuid.UUID
	authenticated bool
}

func (i *identity) AdminID() uuid.UUID    { return i.adminID }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity reads the admin identity the auth middleware stored on the
// request. Absent or malformed values yield an unauthenticated identity.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextAdminIDKey)
	if !ok {
		return &identity{}
	}
	adminID, ok := raw.(uuid.UUID)
	if !ok {
		return &identity{}
	}
	return &identity{adminID: adminID, authenticated: true}
}

// MustGetIdentity is GetIdentity for protected routes: it aborts with 401
// and returns nil when no authenticated admin is present.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
