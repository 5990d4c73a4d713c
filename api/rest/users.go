package rest

import (
	"net/http"

	mw "github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/model"
	"github.com/azattekce/redischat/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UsersHandler handles user listing and lookup endpoints.
type UsersHandler struct {
	db *gorm.DB
	sm *session.Manager
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(db *gorm.DB, sm *session.Manager) *UsersHandler {
	return &UsersHandler{db: db, sm: sm}
}

type userInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Online      bool   `json:"online"`
}

// userView is the detail returned by Get. Phone and Address appear only
// when the owner made them public, or when the caller views themselves.
type userView struct {
	userInfo
	Gender    string `json:"gender,omitempty"`
	Education string `json:"education,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// List handles GET /api/users: every user except the caller, with avatar
// and an online flag from the session registry.
func (h *UsersHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var users []model.User
	if err := h.db.Where("id <> ?", userID).Order("display_name ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	avatars := h.avatarsFor(users)
	result := make([]userInfo, len(users))
	for i, u := range users {
		result[i] = userInfo{
			ID:          u.ID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			AvatarURL:   avatars[u.ID],
			Online:      h.sm.IsOnline(u.ID),
		}
	}
	c.JSON(http.StatusOK, gin.H{"users": result})
}

func (h *UsersHandler) avatarsFor(users []model.User) map[string]string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var profiles []model.UserProfile
	avatars := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return avatars
	}
	if err := h.db.Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		return avatars
	}
	for _, p := range profiles {
		avatars[p.UserID] = p.AvatarURL
	}
	return avatars
}

// Get handles GET /api/users/:id: a profile view that honors the
// owner's visibility flags.
func (h *UsersHandler) Get(c *gin.Context) {
	callerID := mw.GetUserID(c)

	var user model.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	view := userView{userInfo: userInfo{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Online:      h.sm.IsOnline(user.ID),
	}}

	var profile model.UserProfile
	if err := h.db.Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
		self := callerID == user.ID
		view.AvatarURL = profile.AvatarURL
		view.Gender = profile.Gender
		view.Education = profile.Education
		if self || profile.PhonePublic {
			view.Phone = user.PhoneNumber
		}
		if self || profile.AddressPublic {
			view.Address = profile.Address
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": view})
}
