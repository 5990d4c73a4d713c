package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/config"
	"github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades HTTP connections to WebSocket sessions and pumps
// inbound messages into the Router.
type Handler struct {
	router   *Router
	sm       *session.Manager
	cache    cache.Cache
	security config.SecurityConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// OnConnect runs after a session is registered, before the read loop.
	OnConnect func(ctx context.Context, s *session.Session)
}

func NewHandler(router *Router, sm *session.Manager, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	h := &Handler{
		router:   router,
		sm:       sm,
		cache:    c,
		security: sec,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.security.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.security.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Handle is the gin handler for GET /ws?token=<jwt>.
// Auth happens before the upgrade so bad tokens get a plain 401.
func (h *Handler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := middleware.ParseToken(token, h.security.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	ok, err := h.cache.Exists(ctx, middleware.SessionKey(token))
	cancel()
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := session.New(claims.UserID, conn, h.logger)
	h.sm.Register(s)
	h.logger.Info("websocket connected",
		zap.String("user_id", s.UserID),
		zap.String("session_id", s.ID))

	if h.OnConnect != nil {
		h.OnConnect(c.Request.Context(), s)
	}

	go h.readPump(s)
}

func (h *Handler) readPump(s *session.Session) {
	defer func() {
		h.sm.Unregister(s)
		s.Close()
		h.logger.Info("websocket disconnected",
			zap.String("user_id", s.UserID),
			zap.String("session_id", s.ID))
	}()

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error",
					zap.String("user_id", s.UserID),
					zap.Error(err))
			}
			return
		}
		// Reset read deadline on any message (heartbeat or otherwise).
		s.SetReadDeadline()
		h.router.Dispatch(s, raw)
	}
}
