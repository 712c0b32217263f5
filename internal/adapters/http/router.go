package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Chat/internal/adapters/rtc"
	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// API holds what the REST handlers need.
type API struct {
	Cfg   *config.Config
	Store *store.DB
	Orch  *orch.Orchestrator
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *orch.Orchestrator, db *store.DB) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookies := cookie.NewStore([]byte(cfg.Secret))
	cookies.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("ChatSessions", cookies))
	r.Use(SessionUserMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Str("uploads", cfg.UploadDir).Msg("router setup")

	a := &API{Cfg: cfg, Store: db, Orch: orch}
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", a.register)
	auth.POST("/login", a.login)
	auth.POST("/logout", a.logout)
	auth.GET("/me", RequireUser(), a.me)

	users := api.Group("/users", RequireUser())
	users.GET("", a.getUser)
	users.GET("/search", a.searchUsers)
	users.PUT("/:id", a.updateUser)
	users.PUT("/:id/friend-request", a.friendRequest)
	users.PUT("/:id/accept-friend", a.acceptFriend)
	users.PUT("/:id/unfriend", a.unfriend)
	users.GET("/:id/friends", a.friends)
	users.GET("/:id/friend-requests", a.friendRequests)
	// Legacy web client paths.
	users.GET("/friends/:id", a.friends)
	users.GET("/friend-requests/:id", a.friendRequests)

	chat := api.Group("/chat", RequireUser())
	chat.POST("/conversations", a.directConversation)
	chat.POST("/groups", a.createGroup)
	chat.GET("/conversations/:userId", a.conversations)
	chat.POST("/messages", a.createMessage)
	chat.GET("/messages/:conversationId", a.messages)
	chat.POST("/upload", a.upload)
	chat.POST("", a.directConversation)
	chat.POST("/group", a.createGroup)
	chat.GET("/:userId", a.conversations)
	chat.POST("/message", a.createMessage)
	chat.GET("/message/:conversationId", a.messages)

	ice := rtc.ForClient(rtc.Configuration(cfg.RTC.ICEServers))
	api.GET("/rtc/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, ice)
	})

	api.GET("/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": orch.Registry.Snapshot()})
	})
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": orch.Rooms.List()})
	})

	ctrl := signal.NewSignalWSController(orch, cfg.WS)
	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("user", c.GetString(signal.SessionUserKey)).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
