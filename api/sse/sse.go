package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/chat"
	"github.com/azattekce/redischat/config"
	mw "github.com/azattekce/redischat/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const keepaliveInterval = 30 * time.Second

// Handler streams chat messages over server-sent events, as a fallback
// transport for clients that cannot hold a WebSocket open. Each stream
// carries the global room plus the private channel of the authenticated
// user.
type Handler struct {
	pubsub cache.PubSub
	c      cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, sec: sec, logger: logger}
}

// authenticate resolves the ?token= query parameter to a user ID. SSE
// cannot send custom headers from EventSource, so the token rides in the
// query string like it does for the WebSocket upgrade.
func (h *Handler) authenticate(c *gin.Context) (string, bool) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return "", false
	}

	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.c.Exists(ctx, mw.SessionKey(tokenStr))
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return "", false
	}
	return claims.UserID, true
}

// ServeSSE handles GET /sse?token=<jwt>.
func (h *Handler) ServeSSE(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	globalCh, unsubGlobal, err := h.pubsub.Subscribe(subCtx, chat.GlobalChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsubGlobal()

	privateCh, unsubPrivate, err := h.pubsub.Subscribe(subCtx, chat.UserChannel(userID))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsubPrivate()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-globalCh:
			if !ok {
				return
			}
			h.writeEvent(c, "message", msg.Payload)

		case msg, ok := <-privateCh:
			if !ok {
				return
			}
			h.writeEvent(c, "private_message", msg.Payload)

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) writeEvent(c *gin.Context, event, payload string) {
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload)
	c.Writer.Flush()
}
