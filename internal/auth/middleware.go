package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth is a middleware that ensures the user is authenticated
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get("user_id").(uint)

		if !ok || userID == 0 {
			if c.GetHeader("HX-Request") == "true" {
				// HTMX request: send HX-Redirect header
				c.Header("HX-Redirect", "/login")
				c.AbortWithStatus(http.StatusUnauthorized)
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			}
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id from the gin context.
// Only valid downstream of RequireAuth.
func CurrentUserID(c *gin.Context) uint {
	id, _ := c.Get("user_id")
	uid, _ := id.(uint)
	return uid
}
