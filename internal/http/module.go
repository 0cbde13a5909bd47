// Package http defines the contract between the router and the domain
// modules it mounts.
package http

import (
	"github.com/gin-gonic/gin"
)

// Module is a bounded context with an HTTP surface. The router calls
// RegisterRoutes on each module so no central file lists every endpoint.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	// RegisterRoutes mounts the module's endpoints on the shared groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups modules mount onto.
type RouterContext struct {
	// V1 is /api/v1 with no authentication. Modules doing their own auth
	// (webhook key checks) mount here.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind the admin JWT middleware.
	Protected *gin.RouterGroup
}
