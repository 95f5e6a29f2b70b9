package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/auth"
	"github.com/thevault-app/thevault/internal/httpx"
	"github.com/thevault-app/thevault/internal/models"
)

type profileResponse struct {
	DisplayName           string `json:"display_name"`
	Timezone              string `json:"timezone"`
	NotifyPartnerAnswered bool   `json:"notify_partner_answered"`
	ActiveVaultID         *uint  `json:"active_vault_id,omitempty"`
}

func renderProfile(p *models.Profile) profileResponse {
	return profileResponse{
		DisplayName:           p.DisplayName,
		Timezone:              p.Timezone,
		NotifyPartnerAnswered: p.NotifyPartnerAnswered,
		ActiveVaultID:         p.ActiveCoupleID,
	}
}

// ShowHandler returns the caller's profile.
func ShowHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), auth.CurrentUserID(c))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderProfile(p))
	}
}

// UpdateHandler applies a partial profile update.
func UpdateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DisplayName           *string `json:"display_name" form:"display_name"`
			Timezone              *string `json:"timezone" form:"timezone"`
			NotifyPartnerAnswered *bool   `json:"notify_partner_answered" form:"notify_partner_answered"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		p, err := svc.Apply(c.Request.Context(), auth.CurrentUserID(c), Update{
			DisplayName:           req.DisplayName,
			Timezone:              req.Timezone,
			NotifyPartnerAnswered: req.NotifyPartnerAnswered,
		})
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderProfile(p))
	}
}
