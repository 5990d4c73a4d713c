package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/azattekce/redischat/chat"
	mw "github.com/azattekce/redischat/middleware"
	"github.com/gin-gonic/gin"
)

// MessagesHandler handles chat history REST endpoints.
type MessagesHandler struct {
	store *chat.MessageStore
}

// NewMessagesHandler creates a new MessagesHandler.
func NewMessagesHandler(store *chat.MessageStore) *MessagesHandler {
	return &MessagesHandler{store: store}
}

// ListConversation handles GET /api/messages/:id: the conversation between
// the caller and the given user, oldest first, with the caller's deleted
// messages filtered out.
func (h *MessagesHandler) ListConversation(c *gin.Context) {
	userID := mw.GetUserID(c)
	otherID := c.Param("id")
	if otherID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
		return
	}

	msgs, err := h.store.ListConversation(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Delete handles POST /api/messages/:id/delete: hides the message from the
// caller's view only. Deleting an already-deleted message succeeds.
func (h *MessagesHandler) Delete(c *gin.Context) {
	userID := mw.GetUserID(c)
	msgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	err = h.store.SoftDelete(c.Request.Context(), msgID, userID)
	switch {
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not your message"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "deleted"})
	}
}
