package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/playpong/backend/internal/api/handlers"
	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/middleware"
	"github.com/playpong/backend/internal/store"
	"github.com/playpong/backend/internal/ws"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Cfg         *config.Config
	Store       *store.Store
	Redis       *redis.Client
	Tokens      *auth.TokenService
	TwoFactor   *auth.TwoFactor
	Hub         *ws.Hub
	Registry    *game.Registry
	Matchmaker  *game.Matchmaker
	Challenges  *game.Challenges
	Tournaments *game.Tournaments
}

// SetupRoutes configures all API and WebSocket routes
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.CORSMiddleware(d.Cfg))

	// No-cache headers in development so the SPA never sees stale JSON
	if d.Cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	api := router.Group("/api")
	api.Use(middleware.AuthGate(d.Tokens))
	{
		api.GET("/health", handlers.HealthCheck)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", handlers.Register(d.Store))
			authGroup.POST("/login", handlers.Login(d.Store, d.Redis, d.Tokens))
			authGroup.POST("/verify-2fa", handlers.Verify2FA(d.Store, d.Redis, d.Tokens, d.TwoFactor))
			authGroup.POST("/use-backup-code", handlers.UseBackupCode(d.Store, d.Redis, d.Tokens, d.TwoFactor))
			authGroup.POST("/logout", middleware.RequireAuth(), handlers.Logout(d.Tokens))
			authGroup.GET("/setup-2fa", middleware.RequireAuth(), handlers.Setup2FA(d.Store, d.TwoFactor))
			authGroup.POST("/enable-2fa", middleware.RequireAuth(), handlers.Enable2FA(d.Store, d.TwoFactor))
			authGroup.POST("/disable-2fa", middleware.RequireAuth(), handlers.Disable2FA(d.Store, d.TwoFactor))
		}

		play := api.Group("/play", middleware.RequireAuth())
		{
			play.POST("/request-game", handlers.RequestGame(d.Matchmaker))
			play.POST("/request-game-with-player", handlers.RequestGameWithPlayer(d.Challenges))
			play.POST("/accept-game-request", handlers.AcceptGameRequest(d.Challenges))
			play.POST("/reject-game-request", handlers.RejectGameRequest(d.Challenges))
		}

		api.GET("/history/matches/:username", handlers.MatchHistory(d.Store))
		api.POST("/create-tournament", middleware.RequireAuth(), handlers.CreateTournament(d.Tournaments))

		players := api.Group("/players", middleware.RequireAuth())
		{
			players.GET("", handlers.ListPlayers(d.Store))
			players.GET("/me", handlers.Me(d.Store))
			players.GET("/blocked", handlers.ListBlocked(d.Store))
			players.GET("/:username", handlers.PlayerProfile(d.Store))
			players.POST("/:username/block", handlers.BlockPlayer(d.Store))
			players.POST("/:username/unblock", handlers.UnblockPlayer(d.Store))
		}

		friends := api.Group("/friends", middleware.RequireAuth())
		{
			friends.GET("", handlers.ListFriends(d.Store))
			friends.POST("/request", handlers.SendFriendRequest(d.Store, d.Hub))
			friends.PATCH("/:id/accept", handlers.AcceptFriend(d.Store))
			friends.DELETE("/:id", handlers.DeleteFriend(d.Store))
		}

		conversations := api.Group("/conversations", middleware.RequireAuth())
		{
			conversations.GET("", handlers.ListConversations(d.Store))
			conversations.POST("", handlers.OpenConversation(d.Store))
			conversations.GET("/:id/messages", handlers.ListMessages(d.Store))
			conversations.POST("/:id/messages", handlers.SendMessage(d.Store, d.Hub))
			conversations.DELETE("/:id", handlers.ClearConversation(d.Store))
		}
	}

	// WebSocket routes skip the rotating token gate on purpose: the upgrade
	// response is hijacked, so rotated cookies could never reach the client.
	// Each upgrade authenticates off the access cookie directly.
	wsGroup := router.Group("/ws", middleware.WebSocketCORSCheck(d.Cfg))
	{
		wsGroup.GET("/notification/", ws.ServeNotification(d.Hub, d.Tokens))
		wsGroup.GET("/matchmaking/", ws.ServeMatchmaking(d.Hub, d.Tokens, d.Matchmaker))
		wsGroup.GET("/pong/:game_id/", ws.ServePong(d.Registry, d.Tokens))
		wsGroup.GET("/tournament/", ws.ServeTournament(d.Hub, d.Tokens))
		wsGroup.GET("/chat/", ws.ServeChat(d.Hub, d.Tokens))
	}
}
