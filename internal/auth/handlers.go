package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// HandleLogin initiates the Google OAuth flow
func HandleLogin(c *gin.Context) {
	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Add("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user and its OAuth
// identity, and stores the user id in the session. The user's profile is
// created by the User AfterCreate hook.
func HandleCallback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Add("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			log.Printf("Auth error: %v", err)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		now := time.Now()
		var user models.User
		result := db.Where("email = ?", gothUser.Email).First(&user)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			user = models.User{
				Email:       gothUser.Email,
				Username:    usernameFromEmail(gothUser.Email),
				LastLoginAt: &now,
			}
			if err := db.Create(&user).Error; err != nil {
				log.Printf("User create error: %v", err)
				c.Redirect(http.StatusFound, "/login?error=auth_failed")
				return
			}
		case result.Error == nil:
			db.Model(&user).Update("last_login_at", now)
		default:
			log.Printf("User lookup error: %v", result.Error)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		if err := upsertIdentity(db, &user, gothUser.UserID, gothUser.AccessToken, gothUser.RefreshToken, gothUser.ExpiresAt); err != nil {
			log.Printf("Identity upsert error: %v", err)
		}

		session := sessions.Default(c)
		session.Set("user_id", user.ID)
		if err := session.Save(); err != nil {
			log.Printf("Session save error: %v", err)
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		log.Printf("User authenticated: %s", user.Email)
		c.Redirect(http.StatusFound, "/journal/today")
	}
}

// HandleLogout clears the session and redirects to login
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()

	if err := session.Save(); err != nil {
		log.Printf("Session clear error: %v", err)
	}

	c.Redirect(http.StatusFound, "/login")
}

func upsertIdentity(db *gorm.DB, user *models.User, subject, accessToken, refreshToken string, expiry time.Time) error {
	var identity models.AuthIdentity
	err := db.Where("provider = ? AND subject = ?", "google", subject).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		identity = models.AuthIdentity{
			UserID:       user.ID,
			Provider:     "google",
			Subject:      subject,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		}
		if !expiry.IsZero() {
			identity.TokenExpiry = &expiry
		}
		return db.Create(&identity).Error
	}
	if err != nil {
		return err
	}

	identity.AccessToken = accessToken
	if refreshToken != "" {
		identity.RefreshToken = refreshToken
	}
	if !expiry.IsZero() {
		identity.TokenExpiry = &expiry
	}
	return db.Save(&identity).Error
}

// usernameFromEmail derives the initial username from the email local part.
// Collisions fall back to the full address, which is unique by constraint.
func usernameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
