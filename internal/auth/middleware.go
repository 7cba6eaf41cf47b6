package auth

import (
	"github.com/gin-gonic/gin"

	"casedesk/internal/apperr"
	"casedesk/internal/models"
)

const workspaceContextKey = "workspace_context"

// Resolver turns an inbound request's credentials into a workspace
// context. Exactly one implementation is active per deployment, chosen
// at startup; Mount attaches the strategy's own login/logout routes.
type Resolver interface {
	Resolve(c *gin.Context) *models.WorkspaceContext
	Mount(rg *gin.RouterGroup)
}

// Service wraps the active resolver behind the request middleware.
type Service struct {
	resolver Resolver
}

// NewService constructs the auth service around the chosen strategy.
func NewService(resolver Resolver) *Service {
	return &Service{resolver: resolver}
}

// Mount registers the active strategy's auth routes.
func (s *Service) Mount(rg *gin.RouterGroup) {
	s.resolver.Mount(rg)
}

// Resolve exposes the underlying resolution for non-middleware callers.
func (s *Service) Resolve(c *gin.Context) *models.WorkspaceContext {
	return s.resolver.Resolve(c)
}

// Require aborts with 401 when no identity resolves and otherwise stores
// the workspace context for downstream handlers. Every team-scoped route
// runs behind this; there is no anonymous access.
func (s *Service) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws := s.resolver.Resolve(c)
		if ws == nil {
			ae := apperr.Unauthorized()
			c.AbortWithStatusJSON(ae.Status, gin.H{"error": ae.Message, "code": ae.Code})
			return
		}
		c.Set(workspaceContextKey, ws)
		c.Next()
	}
}

// WorkspaceFromContext retrieves the resolved workspace from the gin context.
func WorkspaceFromContext(c *gin.Context) (*models.WorkspaceContext, bool) {
	val, ok := c.Get(workspaceContextKey)
	if !ok {
		return nil, false
	}
	ws, ok := val.(*models.WorkspaceContext)
	return ws, ok
}
