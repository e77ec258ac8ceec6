package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-while/go-widgets/internal/common"
)

const flashCookieName = "flash_id"

// FlashMessage is a one-shot notice shown on the next rendered page
type FlashMessage struct {
	Type      string // "success" or "error"
	Message   string
	CreatedAt time.Time
}

// Global flash message map and mutex
var (
	flashMessages   = make(map[string]FlashMessage)
	flashMessagesMu sync.RWMutex
)

// SetFlashError sets a temporary error message for a browser
func SetFlashError(flashID, msg string) {
	flashMessagesMu.Lock()
	flashMessages[flashID] = FlashMessage{Type: "error", Message: msg, CreatedAt: time.Now()}
	flashMessagesMu.Unlock()
}

// SetFlashSuccess sets a temporary success message for a browser
func SetFlashSuccess(flashID, msg string) {
	flashMessagesMu.Lock()
	flashMessages[flashID] = FlashMessage{Type: "success", Message: msg, CreatedAt: time.Now()}
	flashMessagesMu.Unlock()
}

// GetAndClearFlash retrieves and clears the flash message for a browser
func GetAndClearFlash(flashID string) (success, errorMsg string) {
	flashMessagesMu.Lock()
	fm := flashMessages[flashID]
	switch fm.Type {
	case "success":
		success = fm.Message
	case "error":
		errorMsg = fm.Message
	}
	delete(flashMessages, flashID)
	flashMessagesMu.Unlock()
	return
}

// flashID returns the browser's flash cookie, issuing a new one if missing
func (s *WebServer) flashID(c *gin.Context) string {
	if id, err := c.Cookie(flashCookieName); err == nil && id != "" {
		return id
	}
	var id string
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		id = common.NewRequestID()
	} else {
		id = hex.EncodeToString(b)
	}
	s.setFlashCookie(c, id)
	return id
}

// setSuccess and setError flash a notice for the redirect target
func (s *WebServer) setSuccess(c *gin.Context, msg string) {
	SetFlashSuccess(s.flashID(c), msg)
}

func (s *WebServer) setError(c *gin.Context, msg string) {
	SetFlashError(s.flashID(c), msg)
}

// Helper function to set the flash cookie
func (s *WebServer) setFlashCookie(c *gin.Context, flashID string) {
	// Detect HTTPS from the current request perspective only
	isHTTPS := c.Request != nil && (c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https"))

	cookie := &http.Cookie{
		Name:     flashCookieName,
		Value:    flashID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(c.Writer, cookie)
}

// BasicAuthRequired protects the pages with the configured admin user
func (s *WebServer) BasicAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.Config.AdminUser)) != 1 ||
			!checkPassword(pass, s.Config.AdminPasswordHash) {
			c.Header("WWW-Authenticate", `Basic realm="widgets", charset="UTF-8"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPassword checks if password matches hash
func checkPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
