package controllers

import (
	"context"
	"madrese_go/database"
	ws "madrese_go/services/websocket"
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	hub *ws.Hub
}

func NewHealthController(hub *ws.Hub) *HealthController {
	return &HealthController{hub: hub}
}

// Health reports database and Redis connectivity plus hub fan-out size
func (hc *HealthController) Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbStatus := "ok"
	redisStatus := "ok"

	sqlDB, err := database.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
		status = fiber.StatusServiceUnavailable
	}

	if rdb := database.GetRedisClient(); rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}
	} else {
		redisStatus = "disabled"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":     dbStatus,
		"database":   dbStatus,
		"redis":      redisStatus,
		"ws_clients": hc.hub.GetClientCount(),
		"time":       time.Now().Format(time.RFC3339),
	})
}
