package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/config"
	"github.com/azattekce/redischat/mail"
	mw "github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/model"
	"github.com/azattekce/redischat/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	sm     *session.Manager
	mailer mail.Mailer
	sec    config.SecurityConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, c cache.Cache, sm *session.Manager, mailer mail.Mailer, sec config.SecurityConfig) *AuthHandler {
	return &AuthHandler{db: db, cache: c, sm: sm, mailer: mailer, sec: sec}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email,max=128"`
	Password    string `json:"password" binding:"required,min=6,max=64"`
	DisplayName string `json:"display_name" binding:"required,min=2,max=32"`
	PhoneNumber string `json:"phone_number" binding:"max=32"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := model.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		PhoneNumber:  req.PhoneNumber,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	// Let connected clients refresh their user list.
	h.sm.BroadcastEvent("user_registered", gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
	})

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=64"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := mw.GenerateToken(user.ID, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	// Store session in cache as a simple KV entry so Exists() works
	// uniformly. Without this entry the token would 401 on first use,
	// so a failed write fails the login.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), user.ID, h.sec.JWTTTLH); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// Update last login (best-effort).
	now := time.Now()
	_ = h.db.Model(&user).Update("last_login_at", now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type forgotRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword handles POST /api/auth/forgot-password.
// Generates a temporary password derived from the email address, stores its
// hash, and mails it to the user. The response is the same whether or not
// the address exists, to avoid account enumeration.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user model.User
	err := h.db.Where("email = ?", email).First(&user).Error
	if err == nil {
		temp := tempPassword(email)
		if hash, hashErr := bcrypt.GenerateFromPassword([]byte(temp), 12); hashErr == nil {
			if h.db.Model(&user).Update("password_hash", string(hash)).Error == nil {
				_ = h.mailer.Send(email, "Your temporary password",
					"Your temporary password is: "+temp+"\nPlease change it after logging in.")
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "if the address exists, a temporary password has been sent"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := mw.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var user model.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// tempPassword builds a deterministic temporary password from an email:
// the first three characters of the local part, an "@", and the last three
// characters of the local part reversed, padded with "123" up to six chars.
func tempPassword(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	r := []rune(local)

	head := r
	if len(head) > 3 {
		head = head[:3]
	}

	tail := r
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	rev := make([]rune, len(tail))
	for i, ch := range tail {
		rev[len(tail)-1-i] = ch
	}

	pw := string(head) + "@" + string(rev)
	if len(pw) < 6 {
		pw += "123"
	}
	return pw
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
