package spark

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/thevault-app/thevault/internal/apperr"
	"github.com/thevault-app/thevault/internal/auth"
	"github.com/thevault-app/thevault/internal/httpx"
	"github.com/thevault-app/thevault/internal/models"
)

type sparkResponse struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	OptionB  string `json:"option_b,omitempty"`
	Vibe     string `json:"vibe"`
	Subtitle string `json:"subtitle,omitempty"`
}

func renderSpark(s *models.Spark) sparkResponse {
	return sparkResponse{
		ID:       s.ID,
		Text:     s.Text,
		Category: s.Category,
		OptionB:  s.OptionB,
		Vibe:     s.Vibe,
		Subtitle: s.Subtitle,
	}
}

// Session history is stored as JSON per category. JSON keeps the cookie
// payload readable and avoids gob type registration.
func historyKey(category string) string {
	return "spark_history_" + category
}

func loadHistory(session sessions.Session, category string) *History {
	h := &History{}
	if raw, ok := session.Get(historyKey(category)).(string); ok {
		_ = json.Unmarshal([]byte(raw), h)
	}
	return h
}

func saveHistory(session sessions.Session, category string, h *History) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	session.Set(historyKey(category), string(raw))
	return session.Save()
}

// RandomHandler deals the next card in a category, excluding this session's
// recent draws and the caller's archived cards. ?vibe= narrows the pool to
// one mood.
func RandomHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Param("category")
		vibe := c.Query("vibe")
		userID := auth.CurrentUserID(c)

		session := sessions.Default(c)
		history := loadHistory(session, category)

		spark, err := svc.Random(c.Request.Context(), userID, category, vibe, history.Recent())
		if err != nil {
			httpx.Error(c, err)
			return
		}

		history.Push(spark.ID)
		if err := saveHistory(session, category, history); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}
		c.JSON(http.StatusOK, renderSpark(spark))
	}
}

// PreviousHandler steps back to the card shown before the current one.
func PreviousHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Param("category")
		if !models.ValidSparkCategory(category) {
			httpx.Error(c, apperr.ErrInvalidCategory)
			return
		}

		session := sessions.Default(c)
		history := loadHistory(session, category)

		prevID := history.Previous()
		if prevID == 0 {
			c.JSON(http.StatusOK, gin.H{"spark": nil})
			return
		}

		spark, err := svc.Get(c.Request.Context(), prevID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		if err := saveHistory(session, category, history); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"spark": renderSpark(spark)})
	}
}

// ArchiveHandler hides a card from the caller's future draws.
func ArchiveHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sparkID, _ := strconv.ParseUint(c.Param("id"), 10, 32)
		userID := auth.CurrentUserID(c)

		if err := svc.Archive(c.Request.Context(), userID, uint(sparkID)); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "archived"})
	}
}

// UnarchiveHandler restores a card to the caller's pool.
func UnarchiveHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sparkID, _ := strconv.ParseUint(c.Param("id"), 10, 32)
		userID := auth.CurrentUserID(c)

		if err := svc.Unarchive(c.Request.Context(), userID, uint(sparkID)); err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "unarchived"})
	}
}

// ArchivedListHandler lists the caller's archived cards.
func ArchivedListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		sparks, err := svc.Archived(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		out := make([]sparkResponse, 0, len(sparks))
		for i := range sparks {
			out = append(out, renderSpark(&sparks[i]))
		}
		c.JSON(http.StatusOK, gin.H{"sparks": out})
	}
}

// CountsHandler reports the remaining pool size per category.
func CountsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.CurrentUserID(c)
		counts, err := svc.CategoryCounts(c.Request.Context(), userID)
		if err != nil {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"counts": counts})
	}
}
