// Package notifications persists in-app notifications and pushes them over
// the WebSocket hub. With Redis enabled, writes go through a queue drained by
// a background worker; without it they fall back to direct inserts.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"madrese_go/config"
	"madrese_go/database"
	"madrese_go/models"
	ws "madrese_go/services/websocket"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const redisListKey = "notifications:queue"

// queuedNotification is the minimal payload stored in Redis. One item can
// fan out to many users.
type queuedNotification struct {
	UserIDs   []uint    `json:"user_ids"`
	Title     string    `json:"title"`
	TitleFa   string    `json:"title_fa"`
	Message   string    `json:"message"`
	MessageFa string    `json:"message_fa"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// WSHub is the slice of the hub this package needs.
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

// defaultHub lets services created anywhere in the app (schedulers included)
// share one hub without manual wiring.
var defaultHub WSHub

// SetDefaultWSHub sets the package-level default WebSocket hub.
func SetDefaultWSHub(h WSHub) {
	defaultHub = h
}

type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub
}

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
		wsHub:    defaultHub,
	}
}

// SetWebSocketHub sets the hub used for real-time pushes.
func (s *Service) SetWebSocketHub(hub WSHub) {
	s.wsHub = hub
}

// Queued builds a notification payload for EnqueueOrCreate.
func Queued(title, titleFa, message, messageFa, typ string) queuedNotification {
	if typ == "" {
		typ = "info"
	}
	return queuedNotification{Title: title, TitleFa: titleFa, Message: message, MessageFa: messageFa, Type: typ}
}

// EnqueueOrCreate stores notifications via the Redis queue when enabled,
// otherwise inserts directly.
func (s *Service) EnqueueOrCreate(userIDs []uint, n queuedNotification) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n.UserIDs = userIDs
	n.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
			return nil
		}
		logrus.WithField("queue", redisListKey).Warn("Redis queue failed, falling back to direct insert")
	}

	return s.createDirect(userIDs, n)
}

// NotifyAdmins delivers one notification to every active admin user.
func (s *Service) NotifyAdmins(n queuedNotification) error {
	var admins []models.User
	if err := s.db.Where("role = ? AND status = ?", "admin", "active").Find(&admins).Error; err != nil {
		return err
	}
	ids := make([]uint, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	return s.EnqueueOrCreate(ids, n)
}

func (s *Service) createDirect(userIDs []uint, n queuedNotification) error {
	rows := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.Notification{
			UserID:    id,
			Title:     n.Title,
			TitleFa:   n.TitleFa,
			Message:   n.Message,
			MessageFa: n.MessageFa,
			Type:      n.Type,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return err
	}

	if s.wsHub != nil {
		for _, row := range rows {
			s.wsHub.BroadcastToUser(row.UserID, ws.Message{Type: ws.EventNotification, Data: row})
		}
	}
	return nil
}

// StartWorker drains the Redis queue until stop is closed.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		logrus.Info("Notification worker not started (Redis queue disabled)")
		return
	}

	go func() {
		logrus.Info("Notification worker started")
		for {
			select {
			case <-stop:
				logrus.Info("Notification worker stopped")
				return
			default:
			}

			res, err := s.redis.BLPop(context.Background(), 5*time.Second, redisListKey).Result()
			if err != nil {
				if err != redis.Nil {
					logrus.WithError(err).Warn("Notification queue pop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			var n queuedNotification
			if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
				logrus.WithError(err).Error("Malformed notification in queue, dropped")
				continue
			}
			if err := s.createDirect(n.UserIDs, n); err != nil {
				logrus.WithError(err).Error("Failed to persist queued notification")
			}
		}
	}()
}
