package rest

import (
	"errors"
	"net/http"

	mw "github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/model"
	"github.com/azattekce/redischat/session"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FriendsHandler handles the friendship and block REST endpoints.
type FriendsHandler struct {
	db *gorm.DB
	sm *session.Manager
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(db *gorm.DB, sm *session.Manager) *FriendsHandler {
	return &FriendsHandler{db: db, sm: sm}
}

type friendInfo struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Online      bool   `json:"online"`
}

// List handles GET /api/friends: accepted friendships in either direction.
func (h *FriendsHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var reqs []model.FriendRequest
	if err := h.db.
		Where("(from_user_id = ? OR to_user_id = ?) AND status = ?", userID, userID, model.FriendAccepted).
		Find(&reqs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		other := r.FromUserID
		if other == userID {
			other = r.ToUserID
		}
		ids = append(ids, other)
	}

	var users []model.User
	if len(ids) > 0 {
		if err := h.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	result := make([]friendInfo, len(users))
	for i, u := range users {
		result[i] = friendInfo{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Online:      h.sm.IsOnline(u.ID),
		}
	}
	c.JSON(http.StatusOK, gin.H{"friends": result})
}

// IncomingRequests handles GET /api/friends/requests/incoming.
func (h *FriendsHandler) IncomingRequests(c *gin.Context) {
	userID := mw.GetUserID(c)
	var reqs []model.FriendRequest
	if err := h.db.Where("to_user_id = ? AND status = ?", userID, model.FriendPending).
		Order("created_at DESC").Find(&reqs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// OutgoingRequests handles GET /api/friends/requests/outgoing.
func (h *FriendsHandler) OutgoingRequests(c *gin.Context) {
	userID := mw.GetUserID(c)
	var reqs []model.FriendRequest
	if err := h.db.Where("from_user_id = ? AND status = ?", userID, model.FriendPending).
		Order("created_at DESC").Find(&reqs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// SendRequest handles POST /api/friends/request.
func (h *FriendsHandler) SendRequest(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req struct {
		ToUserID string `json:"to_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ToUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot friend yourself"})
		return
	}

	var target model.User
	if err := h.db.Where("id = ?", req.ToUserID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	// One pending or accepted relation per pair, in either direction.
	var existing int64
	h.db.Model(&model.FriendRequest{}).
		Where("((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)) AND status IN ?",
			userID, req.ToUserID, req.ToUserID, userID,
			[]int{model.FriendPending, model.FriendAccepted}).
		Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "request already exists"})
		return
	}

	fr := model.FriendRequest{
		FromUserID: userID,
		ToUserID:   req.ToUserID,
		Status:     model.FriendPending,
	}
	if err := h.db.Create(&fr).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
		return
	}

	h.sm.SendEvent(req.ToUserID, "friend_request_incoming", gin.H{
		"request_id":   fr.ID,
		"from_user_id": userID,
	})
	h.sm.SendEvent(userID, "friend_request_outgoing", gin.H{
		"request_id": fr.ID,
		"to_user_id": req.ToUserID,
	})

	c.JSON(http.StatusCreated, gin.H{"request": fr})
}

// Respond handles POST /api/friends/respond. Only the recipient of a
// pending request may accept or reject it.
func (h *FriendsHandler) Respond(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req struct {
		RequestID int64 `json:"request_id" binding:"required"`
		Accept    *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var fr model.FriendRequest
	err := h.db.Where("id = ? AND status = ?", req.RequestID, model.FriendPending).First(&fr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if fr.ToUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your request"})
		return
	}

	status := model.FriendRejected
	event := "friend_request_rejected"
	if *req.Accept {
		status = model.FriendAccepted
		event = "friend_request_accepted"
	}
	if err := h.db.Model(&fr).Update("status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	payload := gin.H{"request_id": fr.ID, "from_user_id": fr.FromUserID, "to_user_id": fr.ToUserID}
	h.sm.SendEvent(fr.FromUserID, event, payload)
	h.sm.SendEvent(fr.ToUserID, event, payload)

	c.JSON(http.StatusOK, gin.H{"message": "responded", "status": status})
}

// Remove handles DELETE /api/friends/:id: drops the accepted friendship
// with the given user, in either direction.
func (h *FriendsHandler) Remove(c *gin.Context) {
	userID := mw.GetUserID(c)
	otherID := c.Param("id")

	res := h.db.Where(
		"((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)) AND status = ?",
		userID, otherID, otherID, userID, model.FriendAccepted).
		Delete(&model.FriendRequest{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "friendship not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

// ListBlocks handles GET /api/blocks: users the caller has blocked.
func (h *FriendsHandler) ListBlocks(c *gin.Context) {
	userID := mw.GetUserID(c)
	var blocks []model.FriendBlock
	if err := h.db.Where("blocker_user_id = ?", userID).Find(&blocks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// Block handles POST /api/blocks/:id. Blocking twice is a no-op.
func (h *FriendsHandler) Block(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID := c.Param("id")
	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
		return
	}

	var target model.User
	if err := h.db.Where("id = ?", targetID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var existing int64
	h.db.Model(&model.FriendBlock{}).
		Where("blocker_user_id = ? AND blocked_user_id = ?", userID, targetID).
		Count(&existing)
	if existing == 0 {
		if err := h.db.Create(&model.FriendBlock{
			BlockerUserID: userID,
			BlockedUserID: targetID,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "block failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "blocked"})
}

// Unblock handles DELETE /api/blocks/:id.
func (h *FriendsHandler) Unblock(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID := c.Param("id")

	if err := h.db.Where("blocker_user_id = ? AND blocked_user_id = ?", userID, targetID).
		Delete(&model.FriendBlock{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unblocked"})
}
