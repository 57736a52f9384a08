package routes

import (
	"log"
	"net/http"
	"strconv"

	"quizlive/handlers"
	"quizlive/middleware"
	"quizlive/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	hub *services.Hub,
	sessions *services.SessionService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Host commands
		host := api.Group("/sessions")
		host.Use(middleware.AuthMiddleware(jwtSecret))
		{
			host.POST("", sessionHandler.Start)
			host.POST("/:id/advance", sessionHandler.Advance)
			host.POST("/:id/lock", sessionHandler.LockQuestion)
			host.POST("/:id/end", sessionHandler.End)
			host.PUT("/:id/locked", sessionHandler.SetLocked)
		}

		// Player and spectator surface
		public := api.Group("/sessions")
		{
			public.POST("/join", sessionHandler.Join)
			public.POST("/:id/answers", sessionHandler.Submit)
			public.GET("/:id", sessionHandler.GetSession)
			public.GET("/:id/roster", sessionHandler.Roster)
			public.GET("/:id/leaderboard", sessionHandler.Leaderboard)
			public.GET("/pin/:pin", sessionHandler.Observe)
		}
	}

	// WebSocket endpoint for live session events. Players authenticate
	// with their join token, the host with a JWT; anyone else attaches
	// as a read-only observer.
	router.GET("/ws/sessions/:id", func(c *gin.Context) {
		sessionID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "kind": services.KindValidation, "error": "invalid session id"})
			return
		}
		sessionID := uint(sessionID64)

		session, err := sessions.Session(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "kind": services.KindNotFound, "error": "session not found"})
			return
		}

		var playerID, hostID uint
		if token := c.Query("player_token"); token != "" {
			player, err := sessions.PlayerByToken(session, token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": services.KindUnauthorized, "error": "unknown player token"})
				return
			}
			playerID = player.ID
		} else if token := c.Query("host_token"); token != "" {
			id, err := verifyHostToken(token, jwtSecret)
			if err != nil || id != session.HostID {
				c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": services.KindUnauthorized, "error": "invalid host token"})
				return
			}
			hostID = id
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for session %d: %v", sessionID, err)
			return
		}

		hub.RegisterClient(conn, sessionID, playerID, hostID)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func verifyHostToken(tokenString, jwtSecret string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, jwt.ErrTokenUnverifiable
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	hostID, ok := claims["host_id"].(float64)
	if !ok || hostID <= 0 {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return uint(hostID), nil
}
