package journal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/auth"
	"github.com/thevault-app/thevault/internal/httpx"
	"github.com/thevault-app/thevault/internal/models"
	"github.com/thevault-app/thevault/internal/vault"
)

type entryResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Text        string    `json:"text"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
	WordCount   int       `json:"word_count"`
	LocationTag string    `json:"location_tag,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type promptResponse struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

type dailyResponse struct {
	Prompt       promptResponse `json:"prompt"`
	State        EntryState     `json:"state"`
	OwnEntry     *entryResponse `json:"own_entry,omitempty"`
	PartnerEntry *entryResponse `json:"partner_entry,omitempty"`
}

func renderEntry(e *models.Entry) *entryResponse {
	if e == nil {
		return nil
	}
	return &entryResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Text:        e.TextContent,
		PhotoRef:    e.PhotoRef,
		WordCount:   e.WordCount,
		LocationTag: e.LocationTag,
		CreatedAt:   e.CreatedAt,
	}
}

func renderDaily(v *DailyView) dailyResponse {
	return dailyResponse{
		Prompt: promptResponse{
			ID:       v.Prompt.ID,
			Text:     v.Prompt.Text,
			Category: v.Prompt.Category,
		},
		State:        v.State,
		OwnEntry:     renderEntry(v.OwnEntry),
		PartnerEntry: renderEntry(v.PartnerEntry),
	}
}

// TodayHandler returns the caller's view of today's prompt in their active
// vault.
func TodayHandler(svc *Service, vaults *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couple, err := vaults.ActiveForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		view, err := svc.Today(c.Request.Context(), couple, userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderDaily(view))
	}
}

// SubmitHandler records the caller's answer to today's prompt.
func SubmitHandler(svc *Service, vaults *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Text        string `json:"text" form:"text"`
			PhotoRef    string `json:"photo_ref" form:"photo_ref"`
			LocationTag string `json:"location_tag" form:"location_tag"`
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		userID := auth.CurrentUserID(c)
		couple, err := vaults.ActiveForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		view, err := svc.Submit(c.Request.Context(), couple, userID, Submission{
			Text:        req.Text,
			PhotoRef:    req.PhotoRef,
			LocationTag: req.LocationTag,
		})
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, renderDaily(view))
	}
}

// UnlockCheckHandler is the polling endpoint used while waiting on a partner.
func UnlockCheckHandler(svc *Service, vaults *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		promptID, _ := strconv.ParseUint(c.Param("promptID"), 10, 32)

		userID := auth.CurrentUserID(c)
		couple, err := vaults.ActiveForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		view, err := svc.CheckUnlock(c.Request.Context(), couple, userID, uint(promptID))
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, renderDaily(view))
	}
}

// HistoryHandler returns the caller's entries grouped by month.
func HistoryHandler(svc *Service, vaults *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		couple, err := vaults.ActiveForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		groups, err := svc.History(c.Request.Context(), couple, userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		type monthOut struct {
			Year    int              `json:"year"`
			Month   string           `json:"month"`
			Entries []*entryResponse `json:"entries"`
		}
		out := make([]monthOut, 0, len(groups))
		for _, g := range groups {
			m := monthOut{Year: g.Year, Month: g.Month.String()}
			for i := range g.Entries {
				m.Entries = append(m.Entries, renderEntry(&g.Entries[i]))
			}
			out = append(out, m)
		}
		c.JSON(http.StatusOK, gin.H{"months": out})
	}
}

// EntryHandler returns one entry, enforcing the reveal rule for partner
// entries.
func EntryHandler(svc *Service, vaults *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, _ := strconv.ParseUint(c.Param("id"), 10, 32)

		userID := auth.CurrentUserID(c)
		couple, err := vaults.ActiveForUser(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		entry, err := svc.Detail(c.Request.Context(), couple, userID, uint(entryID))
		if err != nil {
			httpx.Error(c, err)
			return
		}

		resp := renderEntry(entry)
		c.JSON(http.StatusOK, gin.H{
			"entry": resp,
			"prompt": promptResponse{
				ID:       entry.Prompt.ID,
				Text:     entry.Prompt.Text,
				Category: entry.Prompt.Category,
			},
		})
	}
}
