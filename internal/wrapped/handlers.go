package wrapped

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/auth"
	"github.com/thevault-app/thevault/internal/httpx"
	"github.com/thevault-app/thevault/internal/vault"
)

// ShowHandler serves the wrapped summary for the caller's active vault.
// The year defaults to the current one; ?year= selects a past year.
func ShowHandler(svc *Service, vaults *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		year := time.Now().UTC().Year()
		if raw := c.Query("year"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 2000 || parsed > year {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
				return
			}
			year = parsed
		}

		userID := auth.CurrentUserID(c)
		couple, err := vaults.ActiveForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		summary, err := svc.Generate(c.Request.Context(), couple, userID, year)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
