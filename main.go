package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	apirest "github.com/azattekce/redischat/api/rest"
	"github.com/azattekce/redischat/api/sse"
	apows "github.com/azattekce/redischat/api/ws"
	"github.com/azattekce/redischat/audit"
	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/chat"
	"github.com/azattekce/redischat/config"
	dbadapter "github.com/azattekce/redischat/db"
	"github.com/azattekce/redischat/mail"
	mw "github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/model"
	"github.com/azattekce/redischat/scheduler"
	"github.com/azattekce/redischat/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Mail ----
	mailer := mail.New(cfg.Mail, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Core services ----
	sm := session.NewManager(logger)
	defer sm.CloseAll()

	policy := chat.NewPolicy(db)
	store := chat.NewMessageStore(db)
	chatH := chat.NewHandler(store, policy, c, pubsub, sm, auditSvc, logger)
	rtcH := chat.NewRTCHandlers(policy, sm, logger)

	// Fan-in from the pub/sub bus to connected sessions. With Redis
	// configured, this is what carries messages across server instances.
	subscriber := chat.NewSubscriber(pubsub, sm, logger)
	subscriber.Start(context.Background())
	defer subscriber.Stop()

	sched.AddTicker("session_stats", 1*time.Minute, func() {
		logger.Info("session stats", zap.Int("connections", sm.Count()))
	})

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	wsRouter.On("send_message", chatH.HandleSendMessage)
	wsRouter.On("send_private_message", chatH.HandleSendPrivateMessage)
	wsRouter.On("send_private_attachment", chatH.HandleSendPrivateAttachment)
	wsRouter.On("send_private_location", chatH.HandleSendPrivateLocation)
	wsRouter.On("rtc_offer", rtcH.HandleOffer)
	wsRouter.On("rtc_answer", rtcH.HandleAnswer)
	wsRouter.On("rtc_ice_candidate", rtcH.HandleIceCandidate)
	wsRouter.On("rtc_hangup", rtcH.HandleHangup)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, sm, mailer, cfg.Security)
	usersH := apirest.NewUsersHandler(db, sm)
	friendsH := apirest.NewFriendsHandler(db, sm)
	profileH := apirest.NewProfileHandler(db)
	messagesH := apirest.NewMessagesHandler(store)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/forgot-password", authH.ForgotPassword)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.GET("/me", mw.Auth(cfg.Security, c), authH.Me)

		usersG := api.Group("/users")
		usersG.Use(mw.Auth(cfg.Security, c))
		usersG.GET("", usersH.List)
		usersG.GET("/:id", usersH.Get)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(cfg.Security, c))
		friendsG.GET("", friendsH.List)
		friendsG.GET("/requests/incoming", friendsH.IncomingRequests)
		friendsG.GET("/requests/outgoing", friendsH.OutgoingRequests)
		friendsG.POST("/request", friendsH.SendRequest)
		friendsG.POST("/respond", friendsH.Respond)
		friendsG.DELETE("/:id", friendsH.Remove)

		blocksG := api.Group("/blocks")
		blocksG.Use(mw.Auth(cfg.Security, c))
		blocksG.GET("", friendsH.ListBlocks)
		blocksG.POST("/:id", friendsH.Block)
		blocksG.DELETE("/:id", friendsH.Unblock)

		profileG := api.Group("/profile")
		profileG.Use(mw.Auth(cfg.Security, c))
		profileG.GET("", profileH.Get)
		profileG.PUT("", profileH.Update)
		profileG.POST("/password", profileH.ChangePassword)

		messagesG := api.Group("/messages")
		messagesG.Use(mw.Auth(cfg.Security, c))
		messagesG.GET("/:id", messagesH.ListConversation)
		messagesG.POST("/:id/delete", messagesH.Delete)
	}

	// ---- WebSocket ----
	wsH := apows.NewHandler(wsRouter, sm, c, cfg.Security, logger)
	wsH.OnConnect = func(ctx context.Context, s *session.Session) {
		chatH.SendGlobalHistory(ctx, s, 50)
	}
	r.GET("/ws", wsH.Handle)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	// ---- Web client static files ----
	if cfg.Server.StaticDir != "" {
		r.Static("/static", cfg.Server.StaticDir)
		r.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		logger.Info("Serving static files", zap.String("dir", cfg.Server.StaticDir))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
