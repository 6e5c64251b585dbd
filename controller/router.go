package controller

import (
	"facad/auth"
	"facad/repository"

	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RouteInfo struct {
	Method        string
	Path          string
	HandlerFunc   gin.HandlerFunc
	Authenticated bool
	RequiredRoles []repository.Permission
}

func SetRoutes(r *gin.Engine, db *gorm.DB, cacheStore persistence.CacheStore) {
	routes := make([]RouteInfo, 0)
	routes = append(routes, setupScoringTableController(db, cacheStore)...)
	routes = append(routes, setupProcessController(db)...)
	routes = append(routes, setupScoreController(db)...)
	routes = append(routes, setupEvaluationController(db)...)
	routes = append(routes, setupEvidenceController(db)...)
	routes = append(routes, setupUserController(db)...)
	api := r.Group("/api")
	for _, route := range routes {
		handlerfuncs := make([]gin.HandlerFunc, 0)
		if route.Authenticated {
			handlerfuncs = append(handlerfuncs, AuthMiddleware(route.RequiredRoles))
		}
		handlerfuncs = append(handlerfuncs, route.HandlerFunc)
		api.Handle(route.Method, route.Path, handlerfuncs...)
	}
}

func AuthMiddleware(roles []repository.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCookie, err := c.Cookie("auth")
		if err != nil {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		token, err := auth.ParseToken(authCookie)
		if err != nil || !token.Valid {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		claims := &auth.Claims{}
		if err := claims.FromJWTClaims(token.Claims); err != nil {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		if err := claims.Valid(); err != nil {
			c.JSON(401, gin.H{"error": "Unauthenticated"})
			c.Abort()
			return
		}
		c.Set("claims", claims)
		if len(roles) == 0 {
			c.Next()
			return
		}
		for _, requiredRole := range roles {
			for _, userRole := range claims.Permissions {
				if requiredRole == userRole {
					c.Next()
					return
				}
			}
		}
		c.JSON(403, gin.H{"error": "Unauthorized"})
		c.Abort()
	}
}

// getClaims returns the authenticated caller's claims. Only valid behind
// AuthMiddleware.
func getClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Get("claims")
	return claims.(*auth.Claims)
}
