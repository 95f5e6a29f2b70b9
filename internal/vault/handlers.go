package vault

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/auth"
	"github.com/thevault-app/thevault/internal/httpx"
	"github.com/thevault-app/thevault/internal/models"
)

type coupleResponse struct {
	ID                  uint       `json:"id"`
	InviteCode          string     `json:"invite_code,omitempty"`
	Paired              bool       `json:"paired"`
	IsEnded             bool       `json:"is_ended"`
	EndedDate           *time.Time `json:"ended_date,omitempty"`
	AnniversaryDate     *time.Time `json:"anniversary_date,omitempty"`
	Timezone            string     `json:"timezone"`
	PartnerName         string     `json:"partner_name,omitempty"`
	ReactivationPending bool       `json:"reactivation_pending"`
}

// pathID parses the :id path parameter. Unparseable values become 0, which
// no row matches, so the service reports NotFound.
func pathID(c *gin.Context) uint {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id)
}

func renderCouple(c *models.Couple, userID uint, partner *models.User) coupleResponse {
	resp := coupleResponse{
		ID:                  c.ID,
		Paired:              c.IsPaired(),
		IsEnded:             c.IsEnded,
		EndedDate:           c.EndedDate,
		AnniversaryDate:     c.AnniversaryDate,
		Timezone:            c.Timezone,
		ReactivationPending: c.ReactivationRequestedBy != nil,
	}
	// The invite code is only surfaced while the vault is waiting for a
	// partner, and only to the creator.
	if !c.IsPaired() && c.Member1ID == userID {
		resp.InviteCode = c.InviteCode
	}
	if partner != nil {
		resp.PartnerName = partner.Profile.DisplayNameFor(partner)
	}
	return resp
}

// CreateHandler opens a new solo vault for the caller.
func CreateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couple, err := svc.Create(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, renderCouple(couple, userID, nil))
	}
}

// JoinHandler redeems an invite code and pairs the caller into the vault.
func JoinHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Code string `json:"code" form:"code"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		userID := auth.CurrentUserID(c)
		couple, err := svc.JoinWithCode(c.Request.Context(), userID, req.Code)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		partner, err := svc.Partner(c.Request.Context(), couple, userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderCouple(couple, userID, partner))
	}
}

// ListHandler returns every vault the caller belongs to.
func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couples, err := svc.ListForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		out := make([]coupleResponse, 0, len(couples))
		for i := range couples {
			out = append(out, renderCouple(&couples[i], userID, nil))
		}
		c.JSON(http.StatusOK, gin.H{"vaults": out})
	}
}

// ShowHandler returns a single vault with partner details.
func ShowHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couple, err := svc.Get(c.Request.Context(), pathID(c), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		partner, err := svc.Partner(c.Request.Context(), couple, userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderCouple(couple, userID, partner))
	}
}

// SelectHandler switches the caller's active vault.
func SelectHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		if err := svc.Select(c.Request.Context(), userID, pathID(c)); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "selected"})
	}
}

// EndHandler ends the relationship, freezing the vault read-only.
func EndHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couple, err := svc.End(c.Request.Context(), pathID(c), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderCouple(couple, userID, nil))
	}
}

// ReactivateRequestHandler files (or reports on) a reactivation request.
func ReactivateRequestHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		status, err := svc.RequestReactivation(c.Request.Context(), pathID(c), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

// ReactivateApproveHandler approves the partner's pending request.
func ReactivateApproveHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couple, err := svc.ApproveReactivation(c.Request.Context(), pathID(c), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderCouple(couple, userID, nil))
	}
}

// ReactivateDeclineHandler declines or withdraws the pending request.
func ReactivateDeclineHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		if err := svc.DeclineReactivation(c.Request.Context(), pathID(c), userID); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "declined"})
	}
}

// SettingsHandler updates couple-level settings.
func SettingsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AnniversaryDate *string `json:"anniversary_date" form:"anniversary_date"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		var anniversary *time.Time
		if req.AnniversaryDate != nil && *req.AnniversaryDate != "" {
			t, err := time.Parse("2006-01-02", *req.AnniversaryDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "anniversary_date must be YYYY-MM-DD"})
				return
			}
			anniversary = &t
		}

		userID := auth.CurrentUserID(c)
		couple, err := svc.UpdateSettings(c.Request.Context(), pathID(c), userID, anniversary)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderCouple(couple, userID, nil))
	}
}
