package controllers

import (
	"madrese_go/config"
	"madrese_go/database"
	"madrese_go/middleware"
	"madrese_go/models"
	ws "madrese_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// WebSocketController upgrades authenticated clients onto the broadcast hub.
// The token rides in the "token" query param because browsers cannot set
// headers on WebSocket upgrades.
type WebSocketController struct {
	hub *ws.Hub
}

func NewWebSocketController(hub *ws.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// UpgradeRequired rejects plain HTTP requests to the /ws endpoint and stores
// the authenticated user ID in locals for the upgrade handler.
func (wc *WebSocketController) UpgradeRequired(c *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID, err := wc.authenticate(c.Query("token"))
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	c.Locals("ws_user_id", userID)
	return c.Next()
}

// Handle runs the connection on the hub until the client goes away
func (wc *WebSocketController) Handle() fiber.Handler {
	return fiberws.New(func(conn *fiberws.Conn) {
		userID, _ := conn.Locals("ws_user_id").(uint)
		wc.hub.ServeFiberWS(conn, userID)
	})
}

func (wc *WebSocketController) authenticate(tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, fiber.ErrUnauthorized
	}

	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, fiber.ErrUnauthorized
	}

	var user models.User
	if err := database.DB.Select("id", "status").First(&user, claims.UserID).Error; err != nil {
		return 0, fiber.ErrUnauthorized
	}
	if user.Status != "active" {
		return 0, fiber.ErrUnauthorized
	}
	return user.ID, nil
}
