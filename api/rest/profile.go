package rest

import (
	"errors"
	"net/http"

	mw "github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/model"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ProfileHandler handles user profile REST endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Get handles GET /api/profile. Returns an empty profile if the user
// never saved one.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := mw.GetUserID(c)

	var profile model.UserProfile
	err := h.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = model.UserProfile{UserID: userID}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

type profileUpdateRequest struct {
	DisplayName   string `json:"display_name" binding:"max=64"`
	PhoneNumber   string `json:"phone_number" binding:"max=32"`
	AvatarURL     string `json:"avatar_url" binding:"max=512"`
	Gender        string `json:"gender" binding:"max=16"`
	Address       string `json:"address" binding:"max=256"`
	Education     string `json:"education" binding:"max=128"`
	PhonePublic   bool   `json:"phone_public"`
	AddressPublic bool   `json:"address_public"`
}

// Update handles PUT /api/profile, creating the row on first save.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var profile model.UserProfile
	err := h.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = model.UserProfile{UserID: userID}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	profile.AvatarURL = req.AvatarURL
	profile.Gender = req.Gender
	profile.Address = req.Address
	profile.Education = req.Education
	profile.PhonePublic = req.PhonePublic
	profile.AddressPublic = req.AddressPublic

	if err := h.db.Save(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	// Display name and phone live on the user row.
	updates := map[string]interface{}{}
	if req.DisplayName != "" {
		updates["display_name"] = req.DisplayName
	}
	if req.PhoneNumber != "" {
		updates["phone_number"] = req.PhoneNumber
	}
	if len(updates) > 0 {
		if err := h.db.Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=64"`
}

// ChangePassword handles POST /api/profile/password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is wrong"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
